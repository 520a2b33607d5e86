package runner

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// RepoStore provides checkouts of remote hook repositories.
type RepoStore interface {
	Lock(ctx context.Context) (func() error, error)
	Repo(ctx context.Context, src git.RepositorySource) (string, error)
	PatchPath(tree string) string
}

// ManifestLoader reads a hook repository's manifest.
type ManifestLoader func(ctx context.Context, path string) ([]config.Hook, error)

// Resolved is a configured hook with its manifest defaults applied.
type Resolved struct {
	config.Hook
	// RepoDir is the checkout the hook comes from. Script entries are relative to it.
	RepoDir string
	// Repo is the configured repository, "local" for local hooks.
	Repo string
}

// Resolve expands every configured hook. Local hooks are taken as written;
// remote hooks are merged over the definition in their repository's manifest,
// cloning the repository under the store lock when needed.
func Resolve(ctx context.Context, proj *config.Project, toplevel string, store RepoStore, manifest ManifestLoader) ([]Resolved, error) {
	var out []Resolved

	for _, repo := range proj.Repos {
		if repo.IsLocal() {
			for _, h := range repo.Hooks {
				out = append(out, Resolved{Hook: h, RepoDir: toplevel, Repo: repo.Repo})
			}
			continue
		}

		if store == nil {
			return nil, fmt.Errorf("repository %s needs a store", repo.Repo)
		}
		release, err := store.Lock(ctx)
		if err != nil {
			return nil, err
		}
		dir, err := store.Repo(ctx, git.RepositorySource{URL: repo.Repo, Rev: repo.Rev})
		if rerr := release(); rerr != nil {
			logger.FromContext(ctx).Warn("releasing store lock", "error", rerr)
		}
		if err != nil {
			return nil, err
		}

		defs, err := manifest(ctx, filepath.Join(dir, config.ManifestFile))
		if err != nil {
			return nil, fmt.Errorf("reading hooks of %s: %w", repo.Repo, err)
		}
		byID := make(map[string]config.Hook, len(defs))
		for _, d := range defs {
			byID[d.ID] = d
		}

		for _, h := range repo.Hooks {
			base, ok := byID[h.ID]
			if !ok {
				return nil, fmt.Errorf("`%s` is not present in repository %s. Typo? Perhaps it is introduced in a newer version?", h.ID, repo.Repo)
			}
			out = append(out, Resolved{Hook: h.Merge(base), RepoDir: dir, Repo: repo.Repo})
		}
		logger.FromContext(ctx).Debug("resolved repository", "repo", repo.Repo, "rev", repo.Rev, "hooks", len(repo.Hooks))
	}
	return out, nil
}
