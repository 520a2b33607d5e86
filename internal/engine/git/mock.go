package git

import (
	"context"
	"os"
	"path/filepath"
)

// MockService is a test double for git.Service.
type MockService struct {
	IntentToAdd    []string
	Changed        []string
	All            []string
	Staged         []string
	Unmerged       bool
	Dirty          map[string]bool
	HooksPathSet   bool
	GitDirPath     string
	CommonDirPath  string
	ToplevelPath   string
	Head           string
	Patch          []byte
	Tree           string
	FilesErr       error
	QueryErr       error
	MutateErr      error
	CloneErr       error
	CloneFiles     map[string]string
	Calls          []string
	Applied        []string
	RemovedCached  []string
	ReaddedIntents []string
	Clones         []RepositorySource
}

var _ Service = (*MockService)(nil)

func (m *MockService) record(call string) { m.Calls = append(m.Calls, call) }

// IntentToAddFiles returns the configured intent-to-add list.
func (m *MockService) IntentToAddFiles(_ context.Context) ([]string, error) {
	m.record("IntentToAddFiles")
	return m.IntentToAdd, m.FilesErr
}

// ChangedFiles returns the configured changed list.
func (m *MockService) ChangedFiles(_ context.Context, _, _ string) ([]string, error) {
	m.record("ChangedFiles")
	return m.Changed, m.FilesErr
}

// AllFiles returns the configured tracked files.
func (m *MockService) AllFiles(_ context.Context) ([]string, error) {
	m.record("AllFiles")
	return m.All, m.FilesErr
}

// StagedFiles returns the configured staged files.
func (m *MockService) StagedFiles(_ context.Context) ([]string, error) {
	m.record("StagedFiles")
	return m.Staged, m.FilesErr
}

// HasUnmergedPaths returns the configured flag.
func (m *MockService) HasUnmergedPaths(_ context.Context) (bool, error) {
	return m.Unmerged, m.QueryErr
}

// IsDirty looks path up in Dirty.
func (m *MockService) IsDirty(_ context.Context, path string) (bool, error) {
	return m.Dirty[path], m.QueryErr
}

// HasHooksPathSet returns the configured flag.
func (m *MockService) HasHooksPathSet(_ context.Context) (bool, error) {
	return m.HooksPathSet, m.QueryErr
}

// GitDir returns the configured directory.
func (m *MockService) GitDir(_ context.Context) (string, error) {
	return m.GitDirPath, m.QueryErr
}

// GitCommonDir returns CommonDirPath, or GitDirPath when unset.
func (m *MockService) GitCommonDir(_ context.Context) (string, error) {
	if m.CommonDirPath == "" {
		return m.GitDirPath, m.QueryErr
	}
	return m.CommonDirPath, m.QueryErr
}

// Toplevel returns the configured root.
func (m *MockService) Toplevel(_ context.Context) (string, error) {
	return m.ToplevelPath, m.QueryErr
}

// HeadRevision returns the configured revision.
func (m *MockService) HeadRevision(_ context.Context) (string, error) {
	return m.Head, m.QueryErr
}

// Diff returns the configured patch.
func (m *MockService) Diff(_ context.Context) ([]byte, error) {
	m.record("Diff")
	return m.Patch, m.QueryErr
}

// WriteTree returns the configured tree id.
func (m *MockService) WriteTree(_ context.Context) (string, error) {
	m.record("WriteTree")
	return m.Tree, m.QueryErr
}

// CheckoutWorkTree records the call.
func (m *MockService) CheckoutWorkTree(_ context.Context) error {
	m.record("CheckoutWorkTree")
	return m.MutateErr
}

// ApplyPatch records the patch path.
func (m *MockService) ApplyPatch(_ context.Context, patch string) error {
	m.record("ApplyPatch")
	m.Applied = append(m.Applied, patch)
	return m.MutateErr
}

// RemoveCached records the paths.
func (m *MockService) RemoveCached(_ context.Context, paths []string) error {
	m.record("RemoveCached")
	m.RemovedCached = append(m.RemovedCached, paths...)
	return m.MutateErr
}

// AddIntentToAdd records the paths.
func (m *MockService) AddIntentToAdd(_ context.Context, paths []string) error {
	m.record("AddIntentToAdd")
	m.ReaddedIntents = append(m.ReaddedIntents, paths...)
	return m.MutateErr
}

// Clone records the source and materialises CloneFiles under dest.
func (m *MockService) Clone(_ context.Context, src RepositorySource, dest string) error {
	m.record("Clone")
	m.Clones = append(m.Clones, src)
	if m.CloneErr != nil {
		return m.CloneErr
	}
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return err
	}
	for name, content := range m.CloneFiles {
		p := filepath.Join(dest, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			return err
		}
	}
	return nil
}
