// Package hook installs and removes the shell shims git runs at each hook event.
package hook

import (
	"fmt"
	"strings"

	perrors "github.com/jmgilman/go/errors"
	"gopkg.in/yaml.v3"
)

// Type is a git hook event hookwarden can be installed for.
type Type int

// Supported hook types.
const (
	CommitMsg Type = iota
	PostCheckout
	PostCommit
	PostMerge
	PostRewrite
	PreCommit
	PreMergeCommit
	PrePush
	PreRebase
	PrepareCommitMsg
)

var typeNames = [...]string{
	CommitMsg:        "commit-msg",
	PostCheckout:     "post-checkout",
	PostCommit:       "post-commit",
	PostMerge:        "post-merge",
	PostRewrite:      "post-rewrite",
	PreCommit:        "pre-commit",
	PreMergeCommit:   "pre-merge-commit",
	PrePush:          "pre-push",
	PreRebase:        "pre-rebase",
	PrepareCommitMsg: "prepare-commit-msg",
}

// AllTypes returns every supported hook type.
func AllTypes() []Type {
	types := make([]Type, len(typeNames))
	for i := range typeNames {
		types[i] = Type(i)
	}
	return types
}

// String returns the hook's file name in the hooks directory.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// ParseType maps a git hook name to its Type.
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return 0, perrors.Newf(perrors.CodeInvalidInput,
		"unknown hook type %q (expected one of: %s)", s, strings.Join(typeNames[:], ", "))
}

// ParseTypes parses each name in order.
func ParseTypes(names []string) ([]Type, error) {
	types := make([]Type, 0, len(names))
	for _, n := range names {
		t, err := ParseType(n)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// UnmarshalYAML rejects unknown hook names while decoding configuration.
func (t *Type) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*t = parsed
	return nil
}

// MarshalYAML writes the hook name.
func (t Type) MarshalYAML() (any, error) {
	return t.String(), nil
}

// ResolveTypes picks the hook types to act on: explicit ones when given, else the
// configured defaults, else pre-commit alone. defaults is nil when no
// configuration could be loaded.
func ResolveTypes(explicit, defaults []Type) []Type {
	if len(explicit) > 0 {
		return explicit
	}
	if len(defaults) > 0 {
		return defaults
	}
	return []Type{PreCommit}
}
