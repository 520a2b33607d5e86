package hook

import (
	_ "embed"
	"os"
	"slices"
	"strings"

	perrors "github.com/jmgilman/go/errors"

	"github.com/irahardianto/hookwarden/internal/platform/errcode"
)

//go:embed hook.sh.tmpl
var scriptTemplate string

// CurrentHash marks scripts generated from the current template.
// Change it whenever the template changes and move the old value to PriorHashes.
const CurrentHash = "7c3f9a2e51d84b06a1e4c0d9b8f62e17"

// PriorHashes are markers of earlier templates still recognized as ours.
// Entries are only ever appended.
var PriorHashes = []string{}

const (
	argsPlaceholder = "ARGS=(hook-impl)"
	exePlaceholder  = `HOOKWARDEN="hookwarden"`
)

// ScriptOptions parameterize a generated hook script.
type ScriptOptions struct {
	// ConfigFile is passed through as --config when non-empty.
	ConfigFile string
	// SkipOnMissingConfig makes the hook succeed when the configuration is absent.
	SkipOnMissingConfig bool
	// Executable is the hookwarden binary the script re-invokes.
	Executable string
}

// Validate rejects paths that cannot be embedded in the script as a single
// line.
func (o ScriptOptions) Validate() error {
	for _, p := range []struct{ name, value string }{
		{"configuration path", o.ConfigFile},
		{"hookwarden executable path", o.Executable},
	} {
		if strings.ContainsAny(p.value, "\n\r\x00") {
			return perrors.Newf(perrors.CodeInvalidInput,
				"%s %q cannot be written into a hook script: it contains a line break or NUL", p.name, p.value)
		}
	}
	return nil
}

// shellQuoter escapes the characters bash still interprets inside double quotes.
var shellQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")

func doubleQuote(s string) string {
	return `"` + shellQuoter.Replace(s) + `"`
}

// Args returns the command line the script passes to hookwarden for t.
func (o ScriptOptions) Args(t Type) []string {
	args := []string{"hook-impl", "--hook-type=" + t.String()}
	if o.ConfigFile != "" {
		args = append(args, "--config="+doubleQuote(o.ConfigFile))
	}
	if o.SkipOnMissingConfig {
		args = append(args, "--skip-on-missing-config")
	}
	return args
}

// Script renders the hook script for t. Paths are quoted for bash; callers
// check them with Validate first.
func Script(t Type, opts ScriptOptions) string {
	return strings.NewReplacer(
		argsPlaceholder, "ARGS=("+strings.Join(opts.Args(t), " ")+")",
		exePlaceholder, "HOOKWARDEN="+doubleQuote(opts.Executable),
	).Replace(scriptTemplate)
}

// IsManaged reports whether the script at path was written by hookwarden.
func IsManaged(path string) (bool, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is inside the hooks directory
	if err != nil {
		return false, errcode.IO(err, "reading hook %s", path)
	}
	return containsMarker(string(data)), nil
}

func containsMarker(content string) bool {
	if strings.Contains(content, CurrentHash) {
		return true
	}
	return slices.ContainsFunc(PriorHashes, func(h string) bool {
		return strings.Contains(content, h)
	})
}
