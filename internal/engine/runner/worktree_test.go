package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/engine/store"
	"github.com/irahardianto/hookwarden/internal/platform/printer"
)

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
}

func write(t *testing.T, dir, name, content string, mode os.FileMode) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), mode))
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

const recordHook = `#!/bin/sh
for f in "$@"; do echo "file:$f" >> "$OUT"; done
echo "a.txt:$(cat a.txt)" >> "$OUT"
`

const fixerHook = `#!/bin/sh
for f in "$@"; do echo fixed >> "$f"; done
`

// setupProject creates a repository whose config runs hooks/<script> on
// staged files, with a.txt and the config committed.
func setupProject(t *testing.T, script string) (string, *config.Project) {
	t.Helper()
	dir := t.TempDir()
	gitRun(t, dir, "init")
	gitRun(t, dir, "config", "user.email", "test@test.com")
	gitRun(t, dir, "config", "user.name", "Test")
	gitRun(t, dir, "config", "commit.gpgsign", "false")

	write(t, dir, "hooks/hook.sh", script, 0o755)
	write(t, dir, config.DefaultConfigFile, `repos:
  - repo: local
    hooks:
      - id: hook
        name: hook
        entry: hooks/hook.sh
        language: script
        files: '\.txt$'
`, 0o644)
	write(t, dir, "a.txt", "one\n", 0o644)
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "init")

	proj, err := config.Load(context.Background(), filepath.Join(dir, config.DefaultConfigFile))
	require.NoError(t, err)
	return dir, proj
}

func realEngine(t *testing.T, dir string) (*Engine, *store.Store) {
	t.Helper()
	client := git.NewClient(dir)
	st, err := store.Open(filepath.Join(t.TempDir(), "store"), client)
	require.NoError(t, err)
	return NewEngine(client, st, nil, printer.Discard(), dir), st
}

func TestRun_HooksSeeOnlyStagedContent(t *testing.T) {
	dir, proj := setupProject(t, recordHook)
	write(t, dir, "a.txt", "one\nunstaged\n", 0o644)
	write(t, dir, "b.txt", "staged\n", 0o644)
	gitRun(t, dir, "add", "b.txt")
	write(t, dir, "c.txt", "intent\n", 0o644)
	gitRun(t, dir, "add", "--intent-to-add", "c.txt")

	out := filepath.Join(t.TempDir(), "record")
	engine, st := realEngine(t, dir)

	err := engine.Run(context.Background(), proj, Options{Stage: "pre-commit", Env: map[string]string{"OUT": out}})
	require.NoError(t, err)

	assert.Equal(t, "file:b.txt\na.txt:one\n", read(t, out))
	assert.Equal(t, "one\nunstaged\n", read(t, filepath.Join(dir, "a.txt")), "unstaged changes are restored")

	patches, err := os.ReadDir(filepath.Join(st.Root(), "patches"))
	require.NoError(t, err)
	assert.Len(t, patches, 1)

	intents, err := git.NewClient(dir).IntentToAddFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c.txt"}, intents)
}

func TestRun_HookModifyingFilesFails(t *testing.T) {
	dir, proj := setupProject(t, fixerHook)
	write(t, dir, "b.txt", "staged\n", 0o644)
	gitRun(t, dir, "add", "b.txt")

	engine, _ := realEngine(t, dir)
	var stdout strings.Builder
	engine.printer = printer.New(&stdout, &stdout, false)

	err := engine.Run(context.Background(), proj, Options{Stage: "pre-commit"})
	require.ErrorIs(t, err, ErrHooksFailed)
	assert.Contains(t, stdout.String(), "- files were modified by this hook")
	assert.Equal(t, "staged\nfixed\n", read(t, filepath.Join(dir, "b.txt")))
}

func TestRun_ConflictingFixesAreRolledBack(t *testing.T) {
	dir, proj := setupProject(t, fixerHook)
	write(t, dir, "a.txt", "one\ntwo\n", 0o644)
	gitRun(t, dir, "add", "a.txt")
	write(t, dir, "a.txt", "one\ntwo\nthree\n", 0o644)

	engine, _ := realEngine(t, dir)
	err := engine.Run(context.Background(), proj, Options{Stage: "pre-commit"})
	require.ErrorIs(t, err, ErrHooksFailed)

	assert.Equal(t, "one\ntwo\nthree\n", read(t, filepath.Join(dir, "a.txt")), "user changes win over hook fixes")
}

func TestRun_UnstagedConfigRefused(t *testing.T) {
	dir, proj := setupProject(t, recordHook)
	write(t, dir, config.DefaultConfigFile, "repos: []\n", 0o644)

	engine, _ := realEngine(t, dir)
	var stderr strings.Builder
	engine.printer = printer.New(&strings.Builder{}, &stderr, false)

	err := engine.Run(context.Background(), proj, Options{Stage: "pre-commit"})
	require.ErrorIs(t, err, ErrAborted)
	assert.Contains(t, stderr.String(), "Your pre-commit configuration is unstaged.\n")
	assert.Contains(t, stderr.String(), "`git add "+proj.ConfigFile()+"` to fix this.\n")
	assert.Equal(t, "run aborted", err.Error())
}
