package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/irahardianto/hookwarden/internal/platform/printer"
)

const (
	noFiles   = "(no files to check)"
	statusLen = len("Passed")
	minCols   = 79
)

// Progress renders one dotted status line per hook.
type Progress struct {
	p    *printer.Printer
	cols int
}

// NewProgress sizes the status column to fit the longest hook name.
func NewProgress(p *printer.Printer, names []string) *Progress {
	longest := 0
	for _, n := range names {
		longest = max(longest, len(n))
	}
	return &Progress{p: p, cols: max(minCols, longest+3+len(noFiles)+len("Skipped"))}
}

// Start prints the hook name and its dots; Passed or Failed completes the line.
func (pr *Progress) Start(name string) {
	fmt.Fprint(pr.p.Stdout(), name+dots(pr.cols-len(name)-statusLen))
}

func (pr *Progress) Passed() {
	fmt.Fprintln(pr.p.Stdout(), pr.p.Passed("Passed"))
}

func (pr *Progress) Failed() {
	fmt.Fprintln(pr.p.Stdout(), pr.p.Failed("Failed"))
}

// Skipped prints a whole line for a hook that had nothing to check.
func (pr *Progress) Skipped(name string) {
	fmt.Fprintln(pr.p.Stdout(), name+dots(pr.cols-len(name)-len(noFiles)-len("Skipped"))+noFiles+pr.p.Skipped("Skipped"))
}

// Details prints what a hook reported below its status line.
func (pr *Progress) Details(id string, status int, modified bool, dur time.Duration, verbose bool, output []byte) {
	w := pr.p.Stdout()
	fmt.Fprintln(w, pr.p.Dim("- hook id: "+id))
	if verbose {
		fmt.Fprintln(w, pr.p.Dim("- duration: "+formatDuration(dur)))
	}
	if status != 0 {
		fmt.Fprintln(w, pr.p.Dim(fmt.Sprintf("- exit code: %d", status)))
	}
	if modified {
		fmt.Fprintln(w, pr.p.Dim("- files were modified by this hook"))
	}
	if out := strings.TrimSpace(string(output)); out != "" {
		fmt.Fprintf(w, "\n%s\n\n", out)
	}
}

func dots(n int) string {
	return strings.Repeat(".", max(n, 1))
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
