// Package git wraps the git executable for the queries and mutations hookwarden needs.
package git

import (
	"context"
)

// RepositorySource identifies a remote hook repository at a pinned revision.
type RepositorySource struct {
	URL string
	Rev string
}

func (s RepositorySource) String() string {
	return s.URL + "@" + s.Rev
}

// Service abstracts git operations for testability.
type Service interface {
	// IntentToAddFiles lists files recorded with `git add --intent-to-add`.
	IntentToAddFiles(ctx context.Context) ([]string, error)
	// ChangedFiles lists files changed between the merge base of oldRev and newRev, and newRev.
	ChangedFiles(ctx context.Context, oldRev, newRev string) ([]string, error)
	// AllFiles lists every tracked file.
	AllFiles(ctx context.Context) ([]string, error)
	// StagedFiles lists staged files, excluding deletions.
	StagedFiles(ctx context.Context) ([]string, error)
	// HasUnmergedPaths reports whether the index has conflict entries.
	HasUnmergedPaths(ctx context.Context) (bool, error)
	// IsDirty reports whether path has unstaged modifications.
	IsDirty(ctx context.Context, path string) (bool, error)
	// HasHooksPathSet reports whether core.hooksPath is configured.
	HasHooksPathSet(ctx context.Context) (bool, error)

	// GitDir returns the repository's git directory.
	GitDir(ctx context.Context) (string, error)
	// GitCommonDir returns the directory shared by all worktrees.
	GitCommonDir(ctx context.Context) (string, error)
	// Toplevel returns the root of the working tree.
	Toplevel(ctx context.Context) (string, error)
	// HeadRevision returns the commit HEAD points at.
	HeadRevision(ctx context.Context) (string, error)

	// Diff returns the unstaged changes as a patch.
	Diff(ctx context.Context) ([]byte, error)
	// WriteTree writes the index as a tree object and returns its id.
	WriteTree(ctx context.Context) (string, error)
	// CheckoutWorkTree discards unstaged changes to tracked files.
	CheckoutWorkTree(ctx context.Context) error
	// ApplyPatch applies a patch file to the working tree.
	ApplyPatch(ctx context.Context, patch string) error
	// RemoveCached removes paths from the index, keeping them on disk.
	RemoveCached(ctx context.Context, paths []string) error
	// AddIntentToAdd records paths with `git add --intent-to-add`.
	AddIntentToAdd(ctx context.Context, paths []string) error

	// Clone fetches src into dest, which must not yet be a repository.
	Clone(ctx context.Context, src RepositorySource, dest string) error
}
