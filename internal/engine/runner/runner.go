// Package runner resolves configured hooks and runs the ones selected for a
// stage against the right set of files.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
	"github.com/irahardianto/hookwarden/internal/platform/printer"
)

// ErrHooksFailed is returned by Run when at least one hook failed.
var ErrHooksFailed = errors.New("hooks failed")

// ErrAborted is returned by Run when it refused to run hooks. The reason has
// already been printed.
var ErrAborted = errors.New("run aborted")

// Options selects hooks and files for one run.
type Options struct {
	// Stage is a hook type name or "manual".
	Stage string
	// HookID restricts the run to hooks with this id.
	HookID string
	// Files, when non-nil, is used as-is instead of asking git.
	Files []string
	// AllFiles runs against every tracked file.
	AllFiles bool
	// FromRef and ToRef run against the files changed between two revisions.
	FromRef, ToRef string
	// Verbose prints hook output even when hooks pass.
	Verbose bool
	// Env is added to the environment of host hooks.
	Env map[string]string
}

// usesIndex reports whether the run checks what is about to be committed.
func (o Options) usesIndex() bool {
	return o.Files == nil && !o.AllFiles && o.FromRef == "" && o.ToRef == ""
}

// Engine runs hooks for one repository.
type Engine struct {
	git      git.Service
	store    RepoStore
	docker   *Docker
	printer  *printer.Printer
	manifest ManifestLoader
	toplevel string
}

// NewEngine builds an Engine for the work tree at toplevel. docker may be nil
// when no docker_image hook is configured.
func NewEngine(gitSvc git.Service, store RepoStore, docker *Docker, p *printer.Printer, toplevel string) *Engine {
	if p == nil {
		p = printer.Discard()
	}
	return &Engine{
		git:      gitSvc,
		store:    store,
		docker:   docker,
		printer:  p,
		manifest: config.LoadManifest,
		toplevel: toplevel,
	}
}

// Run executes the hooks of proj selected by opts. It returns ErrHooksFailed
// when any hook failed, and other errors when hooks could not be run at all.
func (e *Engine) Run(ctx context.Context, proj *config.Project, opts Options) (runErr error) {
	log := logger.FromContext(ctx).With("stage", opts.Stage)
	start := time.Now()

	if opts.usesIndex() {
		unmerged, err := e.git.HasUnmergedPaths(ctx)
		if err != nil {
			return err
		}
		if unmerged {
			fmt.Fprintln(e.printer.Stderr(), "Unmerged files. Resolve before committing.")
			return ErrAborted
		}

		configPath := proj.ConfigFile()
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(e.toplevel, configPath)
		}
		dirty, err := e.git.IsDirty(ctx, configPath)
		if err != nil {
			return err
		}
		if dirty {
			fmt.Fprintln(e.printer.Stderr(), "Your pre-commit configuration is unstaged.")
			fmt.Fprintf(e.printer.Stderr(), "`git add %s` to fix this.\n", proj.ConfigFile())
			return ErrAborted
		}
	}

	resolved, err := Resolve(ctx, proj, e.toplevel, e.store, e.manifest)
	if err != nil {
		return err
	}

	var selected []Resolved
	for _, h := range resolved {
		if opts.HookID != "" && h.ID != opts.HookID {
			continue
		}
		if inStage(h.Stages, proj.DefaultStages, opts.Stage) {
			selected = append(selected, h)
		}
	}
	if opts.HookID != "" && len(selected) == 0 {
		fmt.Fprintf(e.printer.Stderr(), "No hook with id `%s` in stage `%s`\n", opts.HookID, opts.Stage)
		return ErrAborted
	}

	if e.docker != nil && e.docker.Preflight != nil && slices.ContainsFunc(selected, func(h Resolved) bool {
		return h.Language == config.LanguageDockerImage
	}) {
		if err := e.docker.Preflight(ctx); err != nil {
			return err
		}
	}

	if opts.usesIndex() {
		restore, err := e.keepStagedOnly(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := restore(context.WithoutCancel(ctx)); rerr != nil {
				log.Error("failed to restore working tree", "error", rerr)
				if runErr == nil {
					runErr = rerr
				}
			}
		}()
	}

	files, err := e.files(ctx, opts)
	if err != nil {
		return err
	}
	global, err := newPathFilter(proj.Files, proj.Exclude)
	if err != nil {
		return err
	}
	files = global.apply(files)

	failed, err := e.runHooks(ctx, selected, files, proj.FailFast, opts)
	log.Debug("run finished", "hooks", len(selected), "failed", failed, "duration", time.Since(start))
	if err != nil {
		return err
	}
	if failed > 0 {
		return ErrHooksFailed
	}
	return nil
}

func (e *Engine) files(ctx context.Context, opts Options) ([]string, error) {
	switch {
	case opts.Files != nil:
		return opts.Files, nil
	case opts.AllFiles:
		return e.git.AllFiles(ctx)
	case opts.FromRef != "" && opts.ToRef != "":
		return e.git.ChangedFiles(ctx, opts.FromRef, opts.ToRef)
	default:
		return e.git.StagedFiles(ctx)
	}
}

func (e *Engine) runHooks(ctx context.Context, hooks []Resolved, files []string, failFast bool, opts Options) (int, error) {
	names := make([]string, len(hooks))
	for i := range hooks {
		names[i] = hooks[i].DisplayName()
	}
	progress := NewProgress(e.printer, names)

	failed := 0
	for _, h := range hooks {
		filter, err := newPathFilter(h.Files, h.Exclude)
		if err != nil {
			return failed, fmt.Errorf("hook %s: %w", h.ID, err)
		}
		matched := filter.apply(files)

		if len(matched) == 0 && !h.AlwaysRun {
			progress.Skipped(h.DisplayName())
			continue
		}
		if !h.IsPassFilenames() {
			matched = nil
		}

		progress.Start(h.DisplayName())
		ok, err := e.runOne(ctx, progress, h, matched, opts)
		if err != nil {
			progress.Failed()
			return failed + 1, err
		}
		if !ok {
			failed++
			if failFast {
				break
			}
		}
	}
	return failed, nil
}

// runOne runs a single hook and reports it. A hook fails when it exits
// non-zero or when it changed the working tree.
func (e *Engine) runOne(ctx context.Context, progress *Progress, h Resolved, files []string, opts Options) (bool, error) {
	before, err := e.git.Diff(ctx)
	if err != nil {
		return false, err
	}

	start := time.Now()
	out, err := e.execute(ctx, h, files, opts.Env)
	if err != nil {
		return false, err
	}
	dur := time.Since(start)

	after, err := e.git.Diff(ctx)
	if err != nil {
		return false, err
	}
	modified := !bytes.Equal(before, after)

	ok := out.status == 0 && !modified
	if ok {
		progress.Passed()
	} else {
		progress.Failed()
	}
	if !ok || h.Verbose || opts.Verbose {
		progress.Details(h.ID, out.status, modified, dur, h.Verbose || opts.Verbose, out.output)
	}
	return ok, nil
}
