package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/engine/pool"
	"github.com/irahardianto/hookwarden/internal/engine/runner"
	"github.com/irahardianto/hookwarden/internal/engine/store"
	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// maxParallelClones bounds concurrent repository fetches.
const maxParallelClones = 4

var installHooksCmd = &cobra.Command{
	Use:   "install-hooks",
	Short: "Fetch hook repositories and pull hook images ahead of time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		return s.installHooks(cmd.Context())
	},
}

func (s *session) installHooks(ctx context.Context) error {
	log := logger.FromContext(ctx)

	path := s.configPath()
	proj, err := config.Load(ctx, path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return err
		}
		return errcode.ConfigUnavailable(err, path)
	}

	st, err := s.openStore()
	if err != nil {
		return err
	}
	if err := fetchRepos(ctx, st, proj); err != nil {
		return err
	}

	images, err := hookImages(ctx, proj, st)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return nil
	}

	d, p, closeDocker := s.docker(ctx)
	defer closeDocker()
	if d == nil {
		return errors.New("docker_image hooks are configured but no Docker client is available")
	}
	if err := d.Preflight(ctx); err != nil {
		return err
	}
	for _, img := range images {
		fmt.Fprintf(s.printer.Stdout(), "Pulling %s\n", s.printer.Name(img))
		if err := p.Pull(ctx, img); err != nil {
			return err
		}
	}
	log.Debug("hook images ready", "count", len(images))
	return nil
}

// fetchRepos clones every remote repository the configuration names, several
// at a time, while holding the store lock.
func fetchRepos(ctx context.Context, st *store.Store, proj *config.Project) error {
	release, err := st.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			logger.FromContext(ctx).Warn("releasing store lock", "error", err)
		}
	}()

	seen := map[git.RepositorySource]bool{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelClones)
	for _, r := range proj.Repos {
		if r.IsLocal() {
			continue
		}
		src := git.RepositorySource{URL: r.Repo, Rev: r.Rev}
		if seen[src] {
			continue
		}
		seen[src] = true
		g.Go(func() error {
			_, err := st.Repo(gctx, src)
			return err
		})
	}
	return g.Wait()
}

// hookImages lists the distinct images of docker_image hooks in order.
func hookImages(ctx context.Context, proj *config.Project, st *store.Store) ([]string, error) {
	resolved, err := runner.Resolve(ctx, proj, "", st, config.LoadManifest)
	if err != nil {
		return nil, err
	}

	var images []string
	seen := map[string]bool{}
	for _, h := range resolved {
		if h.Language != config.LanguageDockerImage {
			continue
		}
		tokens, err := shlex.Split(h.Entry)
		if err != nil {
			return nil, fmt.Errorf("hook %s: parsing entry: %w", h.ID, err)
		}
		c, err := pool.ParseEntry(tokens)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", h.ID, err)
		}
		if !seen[c.Image] {
			seen[c.Image] = true
			images = append(images, c.Image)
		}
	}
	return images, nil
}

func init() {
	rootCmd.AddCommand(installHooksCmd)
}
