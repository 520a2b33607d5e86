// Package errcode holds the error codes hookwarden adds on top of the platform taxonomy.
package errcode

import (
	perrors "github.com/jmgilman/go/errors"
)

// CodeIO marks filesystem read, write, rename and permission failures.
const CodeIO perrors.ErrorCode = "IO_ERROR"

// IO wraps a filesystem failure. Returns nil if err is nil.
func IO(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return perrors.Wrapf(err, CodeIO, format, args...)
}

// ConfigUnavailable wraps a project configuration load failure.
func ConfigUnavailable(err error, path string) error {
	if err == nil {
		return nil
	}
	return perrors.Wrapf(err, perrors.CodeInvalidConfig, "failed to load configuration %s", path)
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code perrors.ErrorCode) bool {
	for err != nil {
		var pe perrors.PlatformError
		if !perrors.As(err, &pe) {
			return false
		}
		if pe.Code() == code {
			return true
		}
		err = pe.Unwrap()
	}
	return false
}
