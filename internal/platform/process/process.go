// Package process spawns external tools with a controlled environment and
// captures their output.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"sort"
	"strings"
	"sync"

	perrors "github.com/jmgilman/go/errors"
	"github.com/k1LoW/exec"

	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

var errConsumed = errors.New("invocation already executed")

// Result is the outcome of a finished process.
type Result struct {
	Status int
	Stdout []byte
	Stderr []byte
}

// Success reports whether the process exited with status 0.
func (r *Result) Success() bool {
	return r.Status == 0
}

// ExitError is returned when a strictly checked process exits non-zero.
type ExitError struct {
	Summary string
	Command []string
	Status  int
	Stdout  []byte
	Stderr  []byte
}

func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command `%s` exited with status %d", e.Summary, e.Status)
	if stderr := strings.TrimSpace(string(e.Stderr)); stderr != "" {
		b.WriteString("\n[stderr]\n")
		b.WriteString(stderr)
	}
	return b.String()
}

// SpawnError is returned when the OS could not create the process.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Invocation describes a single run of an external program.
// It is built, optionally adjusted, then consumed once by Output.
type Invocation struct {
	program    string
	summary    string
	args       []string
	dir        string
	env        map[string]string
	inheritEnv bool
	stdin      io.Reader
	check      bool
	consumed   bool
}

// New creates an Invocation of program. summary names the operation in logs and errors.
func New(program, summary string) *Invocation {
	return &Invocation{
		program:    program,
		summary:    summary,
		env:        map[string]string{},
		inheritEnv: true,
	}
}

// Arg appends a single argument.
func (inv *Invocation) Arg(arg string) *Invocation {
	inv.args = append(inv.args, arg)
	return inv
}

// Args appends arguments in order.
func (inv *Invocation) Args(args ...string) *Invocation {
	inv.args = append(inv.args, args...)
	return inv
}

// Dir overrides the working directory.
func (inv *Invocation) Dir(dir string) *Invocation {
	inv.dir = dir
	return inv
}

// Env sets or overrides one environment variable.
func (inv *Invocation) Env(key, value string) *Invocation {
	inv.env[key] = value
	return inv
}

// Envs sets or overrides several environment variables.
func (inv *Invocation) Envs(env map[string]string) *Invocation {
	for k, v := range env {
		inv.env[k] = v
	}
	return inv
}

// ClearEnv stops the child from inheriting the ambient environment;
// only variables set through Env/Envs are passed.
func (inv *Invocation) ClearEnv() *Invocation {
	inv.inheritEnv = false
	return inv
}

// Stdin feeds r to the child. Without it the child reads from the null device.
func (inv *Invocation) Stdin(r io.Reader) *Invocation {
	inv.stdin = r
	return inv
}

// Check decides whether a non-zero exit status is an error.
func (inv *Invocation) Check(check bool) *Invocation {
	inv.check = check
	return inv
}

// Command returns the program followed by its arguments.
func (inv *Invocation) Command() []string {
	return append([]string{inv.program}, inv.args...)
}

// Summary returns the human description of the invocation.
func (inv *Invocation) Summary() string {
	return inv.summary
}

// Output runs the program, waits for it to exit and drains both output streams.
// Cancelling ctx kills the child together with its process group.
func (inv *Invocation) Output(ctx context.Context) (*Result, error) {
	if inv.consumed {
		return nil, errConsumed
	}
	inv.consumed = true

	path, err := LookPath(inv.program)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Debug("running command",
		"summary", inv.summary,
		"command", strings.Join(inv.Command(), " "),
		"dir", inv.dir,
	)

	cmd := exec.CommandContext(ctx, path, inv.args...)
	cmd.Dir = inv.dir
	cmd.Env = inv.environ()
	cmd.Stdin = inv.stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", inv.summary, ctxErr)
	}
	if runErr != nil {
		var exitErr *osexec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, perrors.Wrapf(&SpawnError{Program: inv.program, Err: runErr}, perrors.CodeExecutionFailed, "%s", inv.summary)
		}
	}

	res := &Result{
		Status: cmd.ProcessState.ExitCode(),
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if inv.check {
		if err := inv.CheckStatus(res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// CheckStatus converts a non-zero result into the error a checked invocation returns.
func (inv *Invocation) CheckStatus(res *Result) error {
	if res.Success() {
		return nil
	}
	return perrors.Wrapf(&ExitError{
		Summary: inv.summary,
		Command: inv.Command(),
		Status:  res.Status,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
	}, perrors.CodeExecutionFailed, "failed to %s", inv.summary)
}

// environ builds the child environment, sorted for reproducibility.
func (inv *Invocation) environ() []string {
	merged := map[string]string{}
	if inv.inheritEnv {
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				merged[k] = v
			}
		}
	}
	for k, v := range inv.env {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

var lookups sync.Map // program name -> func() (string, error)

// LookPath resolves program on PATH once per process and caches the outcome.
func LookPath(program string) (string, error) {
	fn, _ := lookups.LoadOrStore(program, sync.OnceValues(func() (string, error) {
		path, err := osexec.LookPath(program)
		if err != nil {
			return "", perrors.Wrapf(err, perrors.CodeNotFound, "failed to find %s", program)
		}
		return path, nil
	}))
	return fn.(func() (string, error))()
}

// IsToolNotFound reports whether err means the program could not be resolved.
func IsToolNotFound(err error) bool {
	return errcode.Is(err, perrors.CodeNotFound)
}

// AsExitError extracts the ExitError from err, if any.
func AsExitError(err error) (*ExitError, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr, true
	}
	return nil, false
}
