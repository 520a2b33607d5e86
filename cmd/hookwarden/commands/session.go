package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/engine/pool"
	"github.com/irahardianto/hookwarden/internal/engine/runner"
	"github.com/irahardianto/hookwarden/internal/engine/store"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
	"github.com/irahardianto/hookwarden/internal/platform/printer"
)

// session is the composition root shared by commands that act on the
// repository containing the working directory.
type session struct {
	git      *git.Client
	toplevel string
	settings *config.Settings
	printer  *printer.Printer
}

// getwd is a variable for testability (defaults to os.Getwd).
var getwd = os.Getwd

// openSession locates the work tree and loads user settings.
func openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()

	settings, err := config.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	toplevel, err := git.NewClient("").Toplevel(ctx)
	if err != nil {
		return nil, fmt.Errorf("locating the work tree (is this a git repository?): %w", err)
	}

	color := printer.ColorEnabled(os.Stdout, flagNoColor || !settings.OutputColor, os.Getenv)
	return &session{
		git:      git.NewClient(toplevel),
		toplevel: toplevel,
		settings: settings,
		printer:  printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), color),
	}, nil
}

// configPath resolves --config. A path that exists from the working
// directory is used as-is; anything else is taken relative to the work tree.
func (s *session) configPath() string {
	if filepath.IsAbs(flagConfig) {
		return flagConfig
	}
	if _, err := os.Stat(flagConfig); err == nil {
		if abs, err := filepath.Abs(flagConfig); err == nil {
			return abs
		}
	}
	return filepath.Join(s.toplevel, flagConfig)
}

// scriptConfigPath is the --config value baked into installed hook scripts.
// Git runs hooks from the work tree root, so paths inside it stay relative.
func (s *session) scriptConfigPath(path string) string {
	rel, err := filepath.Rel(s.toplevel, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func (s *session) openStore() (*store.Store, error) {
	return store.Open(s.settings.Home, s.git)
}

// dockerRuntime connects to the Docker daemon configured in the environment.
// It is a variable so tests can swap in a mock.
var dockerRuntime = func() (pool.ContainerRuntime, func() error, error) {
	rt, err := pool.NewDockerRuntime()
	if err != nil {
		return nil, nil, err
	}
	return rt, rt.Close, nil
}

// docker wires the container pool for docker_image hooks. It returns nil
// when no Docker client can be configured; such hooks then fail on their own.
func (s *session) docker(ctx context.Context) (*runner.Docker, *pool.Pool, func()) {
	rt, closeFn, err := dockerRuntime()
	if err != nil {
		logger.FromContext(ctx).Debug("docker client unavailable", "error", err)
		return nil, nil, func() {}
	}
	p := pool.NewPool(rt)
	d := &runner.Docker{
		Pool: p,
		Exec: pool.NewExecutor(rt),
		Preflight: func(ctx context.Context) error {
			return pool.CheckDocker(ctx, rt)
		},
	}
	return d, p, func() {
		if err := closeFn(); err != nil {
			logger.FromContext(ctx).Debug("closing docker client", "error", err)
		}
	}
}

// engine builds a runner for the work tree. The returned function retires
// pool containers that outlived the configured TTL and closes the Docker client.
func (s *session) engine(ctx context.Context, proj *config.Project) (*runner.Engine, func(), error) {
	st, err := s.openStore()
	if err != nil {
		return nil, nil, err
	}

	d, p, closeDocker := s.docker(ctx)
	done := func() {
		defer closeDocker()
		if p == nil || !usesDocker(proj) {
			return
		}
		n, err := p.CleanupStale(context.WithoutCancel(ctx), s.settings.ContainerTTL)
		if err != nil {
			logger.FromContext(ctx).Debug("stale container cleanup failed", "error", err)
			return
		}
		logger.FromContext(ctx).Debug("removed stale containers", "count", n)
	}
	return runner.NewEngine(s.git, st, d, s.printer, s.toplevel), done, nil
}

// usesDocker reports whether any local hook is a docker_image hook, or any
// remote repository is configured whose hooks might be.
func usesDocker(proj *config.Project) bool {
	for _, r := range proj.Repos {
		if !r.IsLocal() {
			return true
		}
		for _, h := range r.Hooks {
			if h.Language == config.LanguageDockerImage {
				return true
			}
		}
	}
	return false
}
