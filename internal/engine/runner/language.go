package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/pool"
	"github.com/irahardianto/hookwarden/internal/platform/process"
)

// argMax bounds one command line. Longer file lists are split into batches.
const argMax = 1 << 17

// ContainerPool hands out warm containers for docker_image hooks.
type ContainerPool interface {
	Pull(ctx context.Context, img string) error
	Argv(ctx context.Context, c pool.Command, extra []string) ([]string, error)
	GetOrCreate(ctx context.Context, img, projectPath string) (string, error)
}

// ContainerExecutor runs commands inside pool containers.
type ContainerExecutor interface {
	Run(ctx context.Context, containerID string, argv []string) (*pool.ExecResult, error)
}

// Docker bundles what docker_image hooks need.
type Docker struct {
	Pool      ContainerPool
	Exec      ContainerExecutor
	Preflight func(ctx context.Context) error
}

var errNoDocker = errors.New("docker_image hooks need Docker, which is not configured")

// outcome is what one hook produced across all of its batches.
type outcome struct {
	status int
	output []byte
}

func (o *outcome) add(status int, out ...[]byte) {
	o.status = max(o.status, status)
	for _, b := range out {
		o.output = append(o.output, b...)
	}
}

// execute runs h against files from the root of the work tree.
func (e *Engine) execute(ctx context.Context, h Resolved, files []string, env map[string]string) (outcome, error) {
	if h.Language == config.LanguageFail {
		var b bytes.Buffer
		b.WriteString(h.Entry)
		b.WriteString("\n\n")
		b.WriteString(strings.Join(files, "\n"))
		b.WriteString("\n")
		return outcome{status: 1, output: b.Bytes()}, nil
	}

	tokens, err := shlex.Split(h.Entry)
	if err != nil {
		return outcome{}, fmt.Errorf("hook %s: parsing entry: %w", h.ID, err)
	}
	if len(tokens) == 0 {
		return outcome{}, fmt.Errorf("hook %s: empty entry", h.ID)
	}

	switch h.Language {
	case config.LanguageSystem, config.LanguageScript:
		return e.executeHost(ctx, h, tokens, files, env)
	case config.LanguageDockerImage:
		return e.executeDocker(ctx, h, tokens, files)
	default:
		return outcome{}, fmt.Errorf("hook %s: unsupported language %q", h.ID, h.Language)
	}
}

func (e *Engine) executeHost(ctx context.Context, h Resolved, tokens, files []string, env map[string]string) (outcome, error) {
	program := tokens[0]
	switch {
	case h.Language == config.LanguageScript:
		program = filepath.Join(h.RepoDir, program)
	case strings.ContainsRune(program, '/') && !filepath.IsAbs(program):
		program = filepath.Join(e.toplevel, program)
	}
	prefix := append(append([]string{program}, tokens[1:]...), h.Args...)

	var o outcome
	for _, batch := range partition(prefix, files, argMax) {
		res, err := process.New(program, "run hook "+h.ID).
			Args(prefix[1:]...).
			Args(batch...).
			Dir(e.toplevel).
			Env("HOOKWARDEN", "1").
			Envs(env).
			Output(ctx)
		if err != nil {
			if process.IsToolNotFound(err) {
				o.add(1, []byte(fmt.Sprintf("Executable `%s` not found", tokens[0])))
				return o, nil
			}
			var spawnErr *process.SpawnError
			if errors.As(err, &spawnErr) {
				o.add(1, []byte(spawnErr.Error()))
				return o, nil
			}
			return o, err
		}
		o.add(res.Status, res.Stdout, res.Stderr)
	}
	return o, nil
}

func (e *Engine) executeDocker(ctx context.Context, h Resolved, tokens, files []string) (outcome, error) {
	if e.docker == nil {
		return outcome{}, errNoDocker
	}
	cmd, err := pool.ParseEntry(tokens)
	if err != nil {
		return outcome{}, fmt.Errorf("hook %s: %w", h.ID, err)
	}

	containerID, err := e.docker.Pool.GetOrCreate(ctx, cmd.Image, e.toplevel)
	if err != nil {
		return outcome{}, fmt.Errorf("hook %s: %w", h.ID, err)
	}

	prefix := append(append([]string{cmd.Entrypoint}, cmd.Args...), h.Args...)
	var o outcome
	for _, batch := range partition(prefix, files, argMax) {
		argv, err := e.docker.Pool.Argv(ctx, cmd, append(append([]string{}, h.Args...), batch...))
		if err != nil {
			return o, fmt.Errorf("hook %s: %w", h.ID, err)
		}
		res, err := e.docker.Exec.Run(ctx, containerID, argv)
		if err != nil {
			return o, fmt.Errorf("hook %s: %w", h.ID, err)
		}
		o.add(res.ExitCode, res.Stdout, res.Stderr)
	}
	return o, nil
}

// partition splits files into batches that keep prefix plus the batch under
// limit bytes. Every batch holds at least one file, and an empty file list
// yields a single empty batch so the command still runs once.
func partition(prefix, files []string, limit int) [][]string {
	if len(files) == 0 {
		return [][]string{nil}
	}

	base := 0
	for _, p := range prefix {
		base += len(p) + 1
	}

	var batches [][]string
	var current []string
	size := base
	for _, f := range files {
		n := len(f) + 1
		if len(current) > 0 && size+n > limit {
			batches = append(batches, current)
			current, size = nil, base
		}
		current = append(current, f)
		size += n
	}
	return append(batches, current)
}
