package commands

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/engine/hook"
	"github.com/irahardianto/hookwarden/internal/engine/runner"
)

const (
	sha1 = "1111111111111111111111111111111111111111"
	sha2 = "2222222222222222222222222222222222222222"
	zero = "0000000000000000000000000000000000000000"
)

func TestHookOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("pre-commit checks the index", func(t *testing.T) {
		eng := runner.NewEngine(&git.MockService{}, nil, nil, nil, "/repo")
		opts, ok, err := hookOptions(ctx, eng, hook.PreCommit, nil, nil)
		if err != nil || !ok {
			t.Fatalf("hookOptions() ok=%v err=%v", ok, err)
		}
		if opts.Stage != "pre-commit" {
			t.Errorf("Stage = %q, want pre-commit", opts.Stage)
		}
		if opts.Files != nil {
			t.Errorf("Files = %v, want nil", opts.Files)
		}
	})

	t.Run("pre-push uses the pushed range", func(t *testing.T) {
		mock := &git.MockService{Changed: []string{"b.go", "a.go"}}
		eng := runner.NewEngine(mock, nil, nil, nil, "/repo")
		stdin := []byte("refs/heads/main " + sha2 + " refs/heads/main " + sha1 + "\n")

		opts, ok, err := hookOptions(ctx, eng, hook.PrePush, []string{"origin", "git@example.com:r.git"}, stdin)
		if err != nil || !ok {
			t.Fatalf("hookOptions() ok=%v err=%v", ok, err)
		}
		if !slices.Equal(opts.Files, []string{"a.go", "b.go"}) {
			t.Errorf("Files = %v, want [a.go b.go]", opts.Files)
		}
		if got := opts.Env["HOOKWARDEN_REMOTE_NAME"]; got != "origin" {
			t.Errorf("HOOKWARDEN_REMOTE_NAME = %q", got)
		}
		if got := opts.Env["HOOKWARDEN_REMOTE_URL"]; got != "git@example.com:r.git" {
			t.Errorf("HOOKWARDEN_REMOTE_URL = %q", got)
		}
	})

	t.Run("pre-push deleting a branch checks nothing", func(t *testing.T) {
		eng := runner.NewEngine(&git.MockService{}, nil, nil, nil, "/repo")
		stdin := []byte("(delete) " + zero + " refs/heads/old " + sha1 + "\n")

		_, ok, err := hookOptions(ctx, eng, hook.PrePush, []string{"origin", "url"}, stdin)
		if err != nil {
			t.Fatalf("hookOptions() error = %v", err)
		}
		if ok {
			t.Error("expected nothing to check for a deleted branch")
		}
	})

	t.Run("pre-push rejects malformed input", func(t *testing.T) {
		eng := runner.NewEngine(&git.MockService{}, nil, nil, nil, "/repo")
		if _, _, err := hookOptions(ctx, eng, hook.PrePush, nil, []byte("garbage\n")); err == nil {
			t.Fatal("expected an error for malformed pre-push input")
		}
	})

	t.Run("commit-msg checks the message file", func(t *testing.T) {
		eng := runner.NewEngine(&git.MockService{}, nil, nil, nil, "/repo")
		opts, ok, err := hookOptions(ctx, eng, hook.CommitMsg, []string{".git/COMMIT_EDITMSG"}, nil)
		if err != nil || !ok {
			t.Fatalf("hookOptions() ok=%v err=%v", ok, err)
		}
		if !slices.Equal(opts.Files, []string{".git/COMMIT_EDITMSG"}) {
			t.Errorf("Files = %v", opts.Files)
		}
	})

	t.Run("commit-msg without a file", func(t *testing.T) {
		eng := runner.NewEngine(&git.MockService{}, nil, nil, nil, "/repo")
		_, _, err := hookOptions(ctx, eng, hook.PrepareCommitMsg, nil, nil)
		if err == nil || !strings.Contains(err.Error(), "commit message file") {
			t.Fatalf("hookOptions() error = %v, want commit message file error", err)
		}
	})

	t.Run("other hooks get no files", func(t *testing.T) {
		eng := runner.NewEngine(&git.MockService{}, nil, nil, nil, "/repo")
		opts, ok, err := hookOptions(ctx, eng, hook.PostCheckout, []string{sha1, sha2, "1"}, nil)
		if err != nil || !ok {
			t.Fatalf("hookOptions() ok=%v err=%v", ok, err)
		}
		if opts.Files == nil || len(opts.Files) != 0 {
			t.Errorf("Files = %#v, want empty non-nil", opts.Files)
		}
	})
}

func TestReadsStdin(t *testing.T) {
	tests := map[hook.Type]bool{
		hook.PrePush:     true,
		hook.PostRewrite: true,
		hook.PreCommit:   false,
		hook.CommitMsg:   false,
	}
	for typ, want := range tests {
		if got := readsStdin(typ); got != want {
			t.Errorf("readsStdin(%s) = %v, want %v", typ, got, want)
		}
	}
}

func TestScriptConfigPath(t *testing.T) {
	s := &session{toplevel: "/repo"}
	tests := map[string]string{
		"/repo/.pre-commit-config.yaml": ".pre-commit-config.yaml",
		"/repo/ci/hooks.yaml":           "ci/hooks.yaml",
		"/elsewhere/hooks.yaml":         "/elsewhere/hooks.yaml",
	}
	for in, want := range tests {
		if got := s.scriptConfigPath(in); got != want {
			t.Errorf("scriptConfigPath(%q) = %q, want %q", in, got, want)
		}
	}
}
