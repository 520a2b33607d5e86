// Package store manages hookwarden's cache directory: cloned hook repositories,
// saved patches and the lock serializing writers.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

const (
	reposDir   = "repos"
	patchesDir = "patches"
	lockFile   = ".lock"

	lockRetry = 100 * time.Millisecond
)

// Store is an opened cache directory.
type Store struct {
	root string
	git  git.Service
	now  func() time.Time
}

// Open creates the store layout under root if needed. gitSvc clones repositories.
func Open(root string, gitSvc git.Service) (*Store, error) {
	for _, dir := range []string{root, filepath.Join(root, reposDir), filepath.Join(root, patchesDir)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errcode.IO(err, "creating store directory %s", dir)
		}
	}
	return &Store{root: root, git: gitSvc, now: time.Now}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Lock blocks until this process holds the store lock or ctx is done.
// The returned function releases it.
func (s *Store) Lock(ctx context.Context) (func() error, error) {
	path := filepath.Join(s.root, lockFile)
	fl := flock.New(path)

	locked, err := fl.TryLock()
	if err != nil {
		return nil, errcode.IO(err, "locking %s", path)
	}
	if !locked {
		logger.FromContext(ctx).Info("waiting for store lock", "path", path)
		locked, err = fl.TryLockContext(ctx, lockRetry)
		if err != nil {
			return nil, fmt.Errorf("waiting for store lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("store lock %s not acquired", path)
		}
	}
	return fl.Unlock, nil
}

// RepoPath returns where src is checked out, whether or not it exists yet.
func (s *Store) RepoPath(src git.RepositorySource) string {
	sum := sha256.Sum256([]byte(src.String()))
	return filepath.Join(s.root, reposDir, hex.EncodeToString(sum[:])[:16])
}

// Repo returns the checkout of src, cloning it first when absent.
// A failed clone leaves nothing behind.
func (s *Store) Repo(ctx context.Context, src git.RepositorySource) (string, error) {
	log := logger.FromContext(ctx).With("repo", src.URL, "rev", src.Rev)
	dest := s.RepoPath(src)

	if _, err := os.Stat(dest); err == nil {
		log.Debug("repository already in store", "path", dest)
		return dest, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", errcode.IO(err, "checking %s", dest)
	}

	tmp, err := os.MkdirTemp(filepath.Dir(dest), ".clone-")
	if err != nil {
		return "", errcode.IO(err, "creating clone directory")
	}

	log.Info("cloning hook repository")
	if err := s.git.Clone(ctx, src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return "", fmt.Errorf("cloning %s: %w", src, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.RemoveAll(tmp)
		// Another process finished the same clone first.
		if _, statErr := os.Stat(dest); statErr == nil {
			return dest, nil
		}
		return "", errcode.IO(err, "moving clone into %s", dest)
	}
	return dest, nil
}

// PatchPath names a fresh file for saving the unstaged changes on top of tree.
func (s *Store) PatchPath(tree string) string {
	return filepath.Join(s.root, patchesDir, fmt.Sprintf("patch-%s-%d", tree, s.now().UnixNano()))
}

// Clean removes every cloned repository and saved patch.
func (s *Store) Clean(ctx context.Context) error {
	for _, dir := range []string{reposDir, patchesDir} {
		path := filepath.Join(s.root, dir)
		logger.FromContext(ctx).Debug("removing store directory", "path", path)
		if err := os.RemoveAll(path); err != nil {
			return errcode.IO(err, "removing %s", path)
		}
		if err := os.MkdirAll(path, 0o750); err != nil {
			return errcode.IO(err, "recreating %s", path)
		}
	}
	return nil
}
