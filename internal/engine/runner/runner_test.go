package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/engine/pool"
	"github.com/irahardianto/hookwarden/internal/engine/store"
	"github.com/irahardianto/hookwarden/internal/platform/printer"
)

type harness struct {
	git    *git.MockService
	store  *store.Store
	out    bytes.Buffer
	errOut bytes.Buffer
	engine *Engine
}

func newHarness(t *testing.T, svc *git.MockService, docker *Docker) *harness {
	t.Helper()
	if svc == nil {
		svc = &git.MockService{}
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "store"), svc)
	require.NoError(t, err)

	h := &harness{git: svc, store: st}
	h.engine = NewEngine(svc, st, docker, printer.New(&h.out, &h.errOut, false), t.TempDir())
	return h
}

func localProject(hooks ...config.Hook) *config.Project {
	return &config.Project{Repos: []config.Repo{{Repo: config.LocalRepo, Hooks: hooks}}}
}

func failHook(id string) config.Hook {
	return config.Hook{ID: id, Name: id, Entry: "found:", Language: config.LanguageFail}
}

func passHook(id string) config.Hook {
	return config.Hook{ID: id, Name: id, Entry: "true", Language: config.LanguageSystem}
}

func boolPtr(b bool) *bool { return &b }

func TestRun_PassingAndFailingHooks(t *testing.T) {
	h := newHarness(t, nil, nil)
	proj := localProject(passHook("ok"), failHook("forbid"))

	err := h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit", Files: []string{"a.go", "b.rej"}})
	require.ErrorIs(t, err, ErrHooksFailed)

	out := h.out.String()
	assert.Regexp(t, `(?m)^ok\.+Passed$`, out)
	assert.Regexp(t, `(?m)^forbid\.+Failed$`, out)
	assert.Contains(t, out, "- hook id: forbid")
	assert.Contains(t, out, "- exit code: 1")
	assert.Contains(t, out, "found:\n\na.go\nb.rej")
	assert.NotContains(t, out, "- hook id: ok", "passing hooks stay quiet")
}

func TestRun_AllPass(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.engine.Run(context.Background(), localProject(passHook("a"), passHook("b")), Options{Stage: "pre-commit", Files: []string{"x"}}))
}

func TestRun_FileFilters(t *testing.T) {
	h := newHarness(t, nil, nil)
	proj := localProject(config.Hook{
		ID: "rej", Name: "rej", Entry: "found:", Language: config.LanguageFail,
		Files: `\.rej$`, Exclude: `^keep/`,
	})
	proj.Exclude = `^vendor/`

	files := []string{"a.rej", "keep/b.rej", "vendor/c.rej", "d.go", "nested/e.rej"}
	err := h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit", Files: files})
	require.ErrorIs(t, err, ErrHooksFailed)

	assert.Contains(t, h.out.String(), "found:\n\na.rej\nnested/e.rej\n")
	assert.NotContains(t, h.out.String(), "keep/b.rej")
	assert.NotContains(t, h.out.String(), "vendor/c.rej")
}

func TestRun_SkipsHooksWithoutFiles(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := failHook("yaml")
	hook.Files = `\.ya?ml$`

	require.NoError(t, h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"main.go"}}))
	assert.Regexp(t, `(?m)^yaml\.+\(no files to check\)Skipped$`, h.out.String())
}

func TestRun_AlwaysRunWithoutFilenames(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := failHook("always")
	hook.Files = `\.nothing$`
	hook.AlwaysRun = true
	hook.PassFilenames = boolPtr(false)

	err := h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"main.go"}})
	require.ErrorIs(t, err, ErrHooksFailed)
	assert.Contains(t, h.out.String(), "found:\n\n")
	assert.NotContains(t, h.out.String(), "main.go")
}

func TestRun_FailFast(t *testing.T) {
	h := newHarness(t, nil, nil)
	proj := localProject(failHook("first"), failHook("second"))
	proj.FailFast = true

	err := h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit", Files: []string{"x"}})
	require.ErrorIs(t, err, ErrHooksFailed)
	assert.Contains(t, h.out.String(), "first")
	assert.NotContains(t, h.out.String(), "second")
}

func TestRun_StageSelection(t *testing.T) {
	pushOnly := failHook("push-only")
	pushOnly.Stages = []string{"pre-push"}
	manual := failHook("manual-only")
	manual.Stages = []string{config.StageManual}
	defaulted := failHook("defaulted")

	tests := []struct {
		name          string
		stage         string
		defaultStages []string
		want          []string
	}{
		{"pre-commit without defaults", "pre-commit", nil, []string{"defaulted"}},
		{"pre-push", "pre-push", nil, []string{"push-only", "defaulted"}},
		{"manual", "manual", nil, []string{"manual-only", "defaulted"}},
		{"defaults exclude stage", "pre-commit", []string{"pre-push"}, nil},
		{"defaults include stage", "pre-push", []string{"pre-push"}, []string{"push-only", "defaulted"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, nil)
			proj := localProject(pushOnly, manual, defaulted)
			proj.DefaultStages = tt.defaultStages

			_ = h.engine.Run(context.Background(), proj, Options{Stage: tt.stage, Files: []string{"f"}})
			for _, id := range []string{"push-only", "manual-only", "defaulted"} {
				if contains(tt.want, id) {
					assert.Contains(t, h.out.String(), "- hook id: "+id)
				} else {
					assert.NotContains(t, h.out.String(), "- hook id: "+id)
				}
			}
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestRun_HookID(t *testing.T) {
	h := newHarness(t, nil, nil)
	proj := localProject(failHook("one"), passHook("two"))

	require.NoError(t, h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit", HookID: "two", Files: []string{"x"}}))
	assert.NotContains(t, h.out.String(), "one")

	err := h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit", HookID: "three", Files: []string{"x"}})
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, "No hook with id `three` in stage `pre-commit`\n", h.errOut.String())
}

func TestRun_Verbose(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := config.Hook{ID: "echo", Name: "echo", Entry: "echo hello", Language: config.LanguageSystem, PassFilenames: boolPtr(false)}

	require.NoError(t, h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"x"}, Verbose: true}))
	assert.Contains(t, h.out.String(), "- hook id: echo")
	assert.Contains(t, h.out.String(), "- duration: ")
	assert.Contains(t, h.out.String(), "\nhello\n")
}

func TestRun_SystemHookReceivesArgsFilesAndEnv(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := config.Hook{
		ID: "show", Name: "show", Language: config.LanguageSystem, Verbose: true,
		Entry: `sh -c 'echo "$HOOKWARDEN $EXTRA $*"' --`,
		Args:  []string{"--flag"},
	}

	opts := Options{Stage: "pre-commit", Files: []string{"a b.txt", "c.txt"}, Env: map[string]string{"EXTRA": "x"}}
	require.NoError(t, h.engine.Run(context.Background(), localProject(hook), opts))
	assert.Contains(t, h.out.String(), "1 x --flag a b.txt c.txt")
}

func TestRun_MissingExecutable(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := config.Hook{ID: "ghost", Name: "ghost", Entry: "hookwarden-definitely-not-installed", Language: config.LanguageSystem}

	err := h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"x"}})
	require.ErrorIs(t, err, ErrHooksFailed)
	assert.Contains(t, h.out.String(), "Executable `hookwarden-definitely-not-installed` not found")
}

func TestRun_ScriptResolvedInRepo(t *testing.T) {
	h := newHarness(t, nil, nil)
	script := filepath.Join(h.engine.toplevel, "bin", "check.sh")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o750))
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"checked $#\"\nexit 3\n"), 0o755))

	hook := config.Hook{ID: "script", Name: "script", Entry: "bin/check.sh", Language: config.LanguageScript}
	err := h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"a", "b"}})
	require.ErrorIs(t, err, ErrHooksFailed)
	assert.Contains(t, h.out.String(), "- exit code: 3")
	assert.Contains(t, h.out.String(), "checked 2")
}

func TestRun_UnsupportedLanguage(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := config.Hook{ID: "rusty", Name: "rusty", Entry: "cargo", Language: "rust"}

	err := h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported language "rust"`)
}

func TestRun_BadEntryQuoting(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := config.Hook{ID: "q", Name: "q", Entry: `echo "unterminated`, Language: config.LanguageSystem}

	err := h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing entry")
}

func TestRun_DockerImage(t *testing.T) {
	mp := &pool.MockPool{ContainerID: "ctr-1", ImageEntrypoint: []string{"ruff"}}
	me := &pool.MockExecutor{Result: &pool.ExecResult{ExitCode: 1, Stdout: []byte("E501 line too long\n")}}
	preflights := 0
	docker := &Docker{Pool: mp, Exec: me, Preflight: func(context.Context) error {
		preflights++
		return nil
	}}
	h := newHarness(t, nil, docker)

	hook := config.Hook{ID: "ruff", Name: "ruff", Entry: "ghcr.io/astral-sh/ruff:0.5 check", Language: config.LanguageDockerImage, Args: []string{"--fix"}}
	err := h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"a.py"}})
	require.ErrorIs(t, err, ErrHooksFailed)

	assert.Equal(t, 1, preflights)
	assert.Equal(t, []string{"ghcr.io/astral-sh/ruff:0.5"}, mp.Images)
	assert.Equal(t, [][]string{{"ruff", "check", "--fix", "a.py"}}, me.Argvs)
	assert.Contains(t, h.out.String(), "E501 line too long")
}

func TestRun_DockerPreflightFailureAbortsBeforeStashing(t *testing.T) {
	svc := &git.MockService{Patch: []byte("diff"), Tree: "abc"}
	docker := &Docker{Pool: &pool.MockPool{}, Exec: &pool.MockExecutor{}, Preflight: func(context.Context) error {
		return &pool.PreflightError{Hint: "Docker is not running."}
	}}
	h := newHarness(t, svc, docker)
	hook := config.Hook{ID: "img", Name: "img", Entry: "alpine true", Language: config.LanguageDockerImage}
	proj := localProject(hook)

	err := h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit"})
	require.Error(t, err)
	assert.Equal(t, "Docker is not running.", err.Error())
	assert.NotContains(t, svc.Calls, "CheckoutWorkTree")
}

func TestRun_DockerNotConfigured(t *testing.T) {
	h := newHarness(t, nil, nil)
	hook := config.Hook{ID: "img", Name: "img", Entry: "alpine true", Language: config.LanguageDockerImage}

	err := h.engine.Run(context.Background(), localProject(hook), Options{Stage: "pre-commit", Files: []string{"x"}})
	require.ErrorIs(t, err, errNoDocker)
}

func TestRun_RemoteRepository(t *testing.T) {
	svc := &git.MockService{CloneFiles: map[string]string{
		config.ManifestFile: `
- id: no-rej
  name: forbid rej files
  entry: rej files found
  language: fail
  files: '\.rej$'
`,
	}}
	h := newHarness(t, svc, nil)
	proj := &config.Project{Repos: []config.Repo{{
		Repo:  "https://example.com/hooks",
		Rev:   "v1.0.0",
		Hooks: []config.Hook{{ID: "no-rej", Exclude: "^ok/"}},
	}}}

	err := h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit", Files: []string{"x.rej", "ok/y.rej", "z.go"}})
	require.ErrorIs(t, err, ErrHooksFailed)

	assert.Regexp(t, `(?m)^forbid rej files\.+Failed$`, h.out.String())
	assert.Contains(t, h.out.String(), "rej files found\n\nx.rej\n")
	assert.NotContains(t, h.out.String(), "ok/y.rej")
	require.Len(t, svc.Clones, 1)
	assert.Equal(t, git.RepositorySource{URL: "https://example.com/hooks", Rev: "v1.0.0"}, svc.Clones[0])
}

func TestRun_RemoteHookMissing(t *testing.T) {
	svc := &git.MockService{CloneFiles: map[string]string{config.ManifestFile: "[]\n"}}
	h := newHarness(t, svc, nil)
	proj := &config.Project{Repos: []config.Repo{{Repo: "https://example.com/hooks", Rev: "v1", Hooks: []config.Hook{{ID: "nope"}}}}}

	err := h.engine.Run(context.Background(), proj, Options{Stage: "pre-commit", Files: []string{"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "`nope` is not present in repository https://example.com/hooks")
}

func TestRun_UnmergedPaths(t *testing.T) {
	h := newHarness(t, &git.MockService{Unmerged: true}, nil)

	err := h.engine.Run(context.Background(), localProject(passHook("a")), Options{Stage: "pre-commit"})
	require.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, "Unmerged files. Resolve before committing.\n", h.errOut.String())
	assert.Equal(t, "run aborted", err.Error(), "reason is printed, not carried in the error")
}

func TestRun_KeepsUnstagedChangesAside(t *testing.T) {
	svc := &git.MockService{
		Staged:      []string{"staged.go"},
		IntentToAdd: []string{"new.go"},
		Tree:        "4b825dc",
		Patch:       []byte("diff --git a/x b/x\n"),
	}
	h := newHarness(t, svc, nil)

	require.NoError(t, h.engine.Run(context.Background(), localProject(passHook("ok")), Options{Stage: "pre-commit"}))

	assert.Equal(t, []string{"new.go"}, svc.RemovedCached)
	assert.Equal(t, []string{"new.go"}, svc.ReaddedIntents)
	require.Len(t, svc.Applied, 1)
	assert.Contains(t, filepath.Base(svc.Applied[0]), "patch-4b825dc-")

	saved, err := os.ReadFile(svc.Applied[0])
	require.NoError(t, err)
	assert.Equal(t, svc.Patch, saved)

	idx := func(call string) int {
		for i, c := range svc.Calls {
			if c == call {
				return i
			}
		}
		return -1
	}
	assert.Less(t, idx("RemoveCached"), idx("WriteTree"))
	assert.Less(t, idx("CheckoutWorkTree"), idx("StagedFiles"))
	assert.Less(t, idx("ApplyPatch"), idx("AddIntentToAdd"))

	assert.Contains(t, h.errOut.String(), "Unstaged files detected.")
	assert.Contains(t, h.errOut.String(), "Restored changes from")
}

func TestRun_NothingUnstaged(t *testing.T) {
	svc := &git.MockService{Staged: []string{"a.go"}, Tree: "t"}
	h := newHarness(t, svc, nil)

	require.NoError(t, h.engine.Run(context.Background(), localProject(passHook("ok")), Options{Stage: "pre-commit"}))
	assert.NotContains(t, svc.Calls, "CheckoutWorkTree")
	assert.Empty(t, svc.Applied)
	assert.Empty(t, h.errOut.String())
}

func TestRun_GitFailureSurfaces(t *testing.T) {
	svc := &git.MockService{QueryErr: errors.New("not a git repository")}
	h := newHarness(t, svc, nil)

	err := h.engine.Run(context.Background(), localProject(passHook("ok")), Options{Stage: "pre-commit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a git repository")
}

func TestPartition(t *testing.T) {
	assert.Equal(t, [][]string{nil}, partition([]string{"cmd"}, nil, 100))
	assert.Equal(t, [][]string{{"a", "b", "c"}}, partition([]string{"cmd"}, []string{"a", "b", "c"}, 100))

	// "cmd " is 4 bytes and each file adds 2, so a limit of 8 fits two files.
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, partition([]string{"cmd"}, []string{"a", "b", "c", "d", "e"}, 8))

	long := strings.Repeat("x", 50)
	assert.Equal(t, [][]string{{long}, {"y"}}, partition([]string{"cmd"}, []string{long, "y"}, 10), "oversized files still get a batch")
}

func TestInStage(t *testing.T) {
	assert.True(t, inStage(nil, nil, "pre-commit"))
	assert.True(t, inStage([]string{"pre-push", "pre-commit"}, nil, "pre-commit"))
	assert.False(t, inStage([]string{"pre-push"}, []string{"pre-commit"}, "pre-commit"))
	assert.True(t, inStage(nil, []string{"commit-msg"}, "commit-msg"))
	assert.False(t, inStage(nil, []string{"commit-msg"}, "pre-commit"))
}
