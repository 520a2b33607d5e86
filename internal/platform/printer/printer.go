// Package printer renders user-facing messages, separate from diagnostic logging.
package printer

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dim    = lipgloss.NewStyle().Faint(true)
	bold   = lipgloss.NewStyle().Bold(true)
)

// Printer writes human-readable output to stdout and stderr.
type Printer struct {
	stdout io.Writer
	stderr io.Writer
	color  bool
	cwd    string
}

// New creates a Printer. Paths are displayed relative to the current directory when below it.
func New(stdout, stderr io.Writer, color bool) *Printer {
	cwd, _ := os.Getwd()
	return &Printer{stdout: stdout, stderr: stderr, color: color, cwd: cwd}
}

// Discard returns a Printer that drops everything.
func Discard() *Printer {
	return New(io.Discard, io.Discard, false)
}

// Stdout returns the standard output writer.
func (p *Printer) Stdout() io.Writer { return p.stdout }

// Stderr returns the standard error writer.
func (p *Printer) Stderr() io.Writer { return p.stderr }

// Path renders a filesystem path for display.
func (p *Printer) Path(path string) string {
	return p.render(cyan, p.display(path))
}

// LegacyPath renders the path a displaced hook was moved to.
func (p *Printer) LegacyPath(path string) string {
	return p.render(yellow, p.display(path))
}

// Name highlights an identifier such as a hook type.
func (p *Printer) Name(s string) string { return p.render(cyan, s) }

// Passed renders a success marker.
func (p *Printer) Passed(s string) string { return p.render(green, s) }

// Failed renders a failure marker.
func (p *Printer) Failed(s string) string { return p.render(red, s) }

// Skipped renders a neutral marker.
func (p *Printer) Skipped(s string) string { return p.render(yellow, s) }

// Dim renders de-emphasized text.
func (p *Printer) Dim(s string) string { return p.render(dim, s) }

// Bold renders emphasized text.
func (p *Printer) Bold(s string) string { return p.render(bold, s) }

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

func (p *Printer) display(path string) string {
	if p.cwd == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(p.cwd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

// ColorEnabled decides whether output to f should be coloured.
// noColor and the NO_COLOR / HOOKWARDEN_NO_COLOR variables always win.
func ColorEnabled(f *os.File, noColor bool, getenv func(string) string) bool {
	if noColor || getenv("NO_COLOR") != "" || getenv("HOOKWARDEN_NO_COLOR") != "" {
		return false
	}
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
