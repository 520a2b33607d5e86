package hook

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
	"github.com/irahardianto/hookwarden/internal/platform/printer"
)

// InstallOptions control how a hook script is installed.
type InstallOptions struct {
	ScriptOptions
	// Overwrite replaces an existing script without keeping a .legacy copy.
	Overwrite bool
}

// Manager installs and removes hook scripts in one hooks directory.
// Callers act on one hook type at a time; the manager does no locking.
type Manager struct {
	hooksDir string
	printer  *printer.Printer
}

// NewManager creates a Manager for hooksDir, reporting through p.
func NewManager(hooksDir string, p *printer.Printer) *Manager {
	if p == nil {
		p = printer.Discard()
	}
	return &Manager{hooksDir: hooksDir, printer: p}
}

// Path returns where the script for t lives.
func (m *Manager) Path(t Type) string {
	return filepath.Join(m.hooksDir, t.String())
}

// LegacyPath returns where a displaced foreign script for t is kept.
func (m *Manager) LegacyPath(t Type) string {
	return m.Path(t) + ".legacy"
}

// Install writes the hookwarden script for t. A foreign script already in place
// is moved to the legacy path unless opts.Overwrite is set.
func (m *Manager) Install(ctx context.Context, t Type, opts InstallOptions) error {
	log := logger.FromContext(ctx).With("hook_type", t.String())
	hookPath := m.Path(t)

	if opts.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return errcode.IO(err, "locating hookwarden executable")
		}
		opts.Executable = exe
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	exists, err := fileExists(hookPath)
	if err != nil {
		return err
	}
	if exists {
		if opts.Overwrite {
			fmt.Fprintf(m.printer.Stdout(), "Overwriting existing hook at %s\n", m.printer.Path(hookPath))
		} else {
			managed, err := IsManaged(hookPath)
			if err != nil {
				return err
			}
			if !managed {
				legacy := m.LegacyPath(t)
				if err := os.Rename(hookPath, legacy); err != nil {
					return errcode.IO(err, "moving %s to %s", hookPath, legacy)
				}
				fmt.Fprintf(m.printer.Stdout(), "Hook already exists at %s, moved it to %s.\n",
					m.printer.Path(hookPath), m.printer.LegacyPath(legacy))
			} else {
				log.Debug("replacing managed hook in place", "path", hookPath)
			}
		}
	}

	if err := writeScript(hookPath, Script(t, opts.ScriptOptions)); err != nil {
		return err
	}

	log.Debug("hook installed", "path", hookPath)
	fmt.Fprintf(m.printer.Stdout(), "hookwarden installed at %s\n", m.printer.Path(hookPath))
	return nil
}

// Uninstall removes the hookwarden script for t and restores a legacy script if one was kept.
// Missing and foreign scripts are reported and left alone.
func (m *Manager) Uninstall(ctx context.Context, t Type) error {
	hookPath := m.Path(t)
	legacy := m.LegacyPath(t)

	exists, err := fileExists(hookPath)
	if err != nil {
		return err
	}
	if !exists {
		fmt.Fprintf(m.printer.Stderr(), "%s does not exist, skipping.\n", m.printer.Path(hookPath))
		return nil
	}

	managed, err := IsManaged(hookPath)
	if err != nil {
		return err
	}
	if !managed {
		fmt.Fprintf(m.printer.Stderr(), "%s is not managed by hookwarden, skipping.\n", m.printer.Path(hookPath))
		return nil
	}

	if err := os.Remove(hookPath); err != nil {
		return errcode.IO(err, "removing %s", hookPath)
	}
	fmt.Fprintf(m.printer.Stdout(), "Uninstalled %s\n", m.printer.Name(t.String()))

	hasLegacy, err := fileExists(legacy)
	if err != nil {
		return err
	}
	if hasLegacy {
		if err := os.Rename(legacy, hookPath); err != nil {
			return errcode.IO(err, "restoring %s", legacy)
		}
		fmt.Fprintf(m.printer.Stdout(), "Restored previous hook to %s\n", m.printer.Path(hookPath))
	}

	logger.FromContext(ctx).Debug("hook uninstalled", "hook_type", t.String(), "restored", hasLegacy)
	return nil
}

// writeScript truncates path, writes content and marks it executable.
func writeScript(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil { // #nosec G306 -- hook must be executable
		return errcode.IO(err, "writing hook %s", path)
	}
	if runtime.GOOS == "windows" {
		return nil
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o755); err != nil { // #nosec G302 -- hook must be executable
		return errcode.IO(err, "making %s executable", path)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errcode.IO(err, "checking %s", path)
}
