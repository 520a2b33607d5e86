package git

import (
	"context"

	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// Clone initialises dest, then fetches src.Rev into it. A shallow fetch is tried
// first; servers that refuse to serve the revision directly get a full fetch.
func (c *Client) Clone(ctx context.Context, src RepositorySource, dest string) error {
	log := logger.FromContext(ctx).With("repo", src.URL, "rev", src.Rev)

	if _, err := c.output(ctx, "init git repo", "init", "--template=", dest); err != nil {
		return err
	}
	repo := NewClient(dest)
	if _, err := repo.output(ctx, "add git remote", "remote", "add", "origin", src.URL); err != nil {
		return err
	}

	if err := repo.shallowFetch(ctx, src.Rev); err != nil {
		log.Warn("failed to shallow clone, falling back to full clone", "error", err)
		return repo.fullFetch(ctx, src.Rev)
	}
	log.Debug("shallow clone complete", "dest", dest)
	return nil
}

func (c *Client) shallowFetch(ctx context.Context, rev string) error {
	if _, err := c.output(ctx, "git shallow clone",
		"-c", "protocol.version=2", "fetch", "origin", rev, "--depth=1"); err != nil {
		return err
	}
	if _, err := c.output(ctx, "git checkout", "checkout", "FETCH_HEAD"); err != nil {
		return err
	}
	_, err := c.output(ctx, "update git submodules",
		"-c", "protocol.version=2", "submodule", "update", "--init", "--recursive", "--depth=1")
	return err
}

func (c *Client) fullFetch(ctx context.Context, rev string) error {
	if _, err := c.output(ctx, "git full clone", "fetch", "origin", "--tags"); err != nil {
		return err
	}
	if _, err := c.output(ctx, "git checkout", "checkout", rev); err != nil {
		return err
	}
	_, err := c.output(ctx, "update git submodules", "submodule", "update", "--init", "--recursive")
	return err
}
