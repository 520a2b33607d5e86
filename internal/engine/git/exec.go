package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/irahardianto/hookwarden/internal/platform/logger"
	"github.com/irahardianto/hookwarden/internal/platform/process"
)

// keepEnv lists the GIT_ variables that survive sanitization.
var keepEnv = map[string]bool{
	"GIT_EXEC_PATH":             true,
	"GIT_SSH":                   true,
	"GIT_SSH_COMMAND":           true,
	"GIT_SSL_CAINFO":            true,
	"GIT_SSL_NO_VERIFY":         true,
	"GIT_CONFIG_COUNT":          true,
	"GIT_HTTP_PROXY_AUTHMETHOD": true,
	"GIT_ALLOW_PROTOCOL":        true,
	"GIT_ASKPASS":               true,
}

// gitEnv is the environment every git child runs with.
// Hooks run with GIT_DIR, GIT_INDEX_FILE and friends pointing at the calling
// repository; they must not leak into commands aimed at other repositories.
var gitEnv = sync.OnceValue(func() map[string]string {
	return SanitizeEnv(os.Environ())
})

// SanitizeEnv drops GIT_ variables from environ except the allow-listed ones.
func SanitizeEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if strings.HasPrefix(k, "GIT_") &&
			!keepEnv[k] &&
			!strings.HasPrefix(k, "GIT_CONFIG_KEY_") &&
			!strings.HasPrefix(k, "GIT_CONFIG_VALUE_") {
			continue
		}
		env[k] = v
	}
	return env
}

// SplitNUL splits NUL-terminated git output. Empty output yields no entries.
func SplitNUL(out []byte) []string {
	s := strings.TrimRight(string(out), "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\x00")
}

// Client implements Service by running the git executable.
type Client struct {
	// Dir is the working directory for git commands.
	// If empty, the current directory is used.
	Dir string
}

// NewClient creates a Client rooted at dir.
func NewClient(dir string) *Client {
	return &Client{Dir: dir}
}

var _ Service = (*Client)(nil)

// command builds a git invocation with the sanitized environment.
func (c *Client) command(summary string) *process.Invocation {
	return process.New("git", summary).
		Args("-c", "core.useBuiltinFSMonitor=false").
		ClearEnv().
		Envs(gitEnv()).
		Dir(c.Dir)
}

// output runs a strictly checked git command and returns stdout.
func (c *Client) output(ctx context.Context, summary string, args ...string) ([]byte, error) {
	res, err := c.command(summary).Args(args...).Check(true).Output(ctx)
	if err != nil {
		return nil, err
	}
	return res.Stdout, nil
}

func (c *Client) list(ctx context.Context, summary string, args ...string) ([]string, error) {
	out, err := c.output(ctx, summary, args...)
	if err != nil {
		return nil, err
	}
	return SplitNUL(out), nil
}

// IntentToAddFiles lists files added with --intent-to-add.
func (c *Client) IntentToAddFiles(ctx context.Context) ([]string, error) {
	return c.list(ctx, "get intent to add files",
		"diff", "--no-ext-diff", "--ignore-submodules", "--diff-filter=A", "--name-only", "-z")
}

// ChangedFiles lists files changed in oldRev...newRev.
func (c *Client) ChangedFiles(ctx context.Context, oldRev, newRev string) ([]string, error) {
	return c.list(ctx, "get changed files",
		"diff", "--name-only", "--diff-filter=ACMRT", "--no-ext-diff", "-z", oldRev+"..."+newRev)
}

// AllFiles lists all tracked files.
func (c *Client) AllFiles(ctx context.Context) ([]string, error) {
	return c.list(ctx, "get all files", "ls-files", "-z")
}

// StagedFiles lists staged files. Deletions are excluded.
func (c *Client) StagedFiles(ctx context.Context) ([]string, error) {
	logger.FromContext(ctx).Debug("getting staged file list")
	return c.list(ctx, "get staged files",
		"diff", "--staged", "--name-only", "--diff-filter=ACMRTUXB", "--no-ext-diff", "-z")
}

// HasUnmergedPaths reports whether a merge left conflicting entries in the index.
func (c *Client) HasUnmergedPaths(ctx context.Context) (bool, error) {
	out, err := c.output(ctx, "check unmerged paths", "ls-files", "--unmerged")
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

// IsDirty reports whether path differs between the index and the working tree.
func (c *Client) IsDirty(ctx context.Context, path string) (bool, error) {
	inv := c.command("check dirty").Args("diff", "--quiet", "--no-ext-diff", "--", path)
	res, err := inv.Output(ctx)
	if err != nil {
		return false, err
	}
	switch res.Status {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, inv.CheckStatus(res)
	}
}

// HasHooksPathSet reports whether core.hooksPath is set to a non-empty value.
func (c *Client) HasHooksPathSet(ctx context.Context) (bool, error) {
	res, err := c.command("get hooks path").Args("config", "--get", "core.hooksPath").Output(ctx)
	if err != nil {
		return false, err
	}
	if !res.Success() {
		return false, nil
	}
	return len(bytes.TrimSpace(res.Stdout)) > 0, nil
}

// GitDir returns the absolute path of the git directory.
func (c *Client) GitDir(ctx context.Context) (string, error) {
	return c.path(ctx, "get git dir", "rev-parse", "--git-dir")
}

// GitCommonDir returns the common git directory, falling back to GitDir when git prints nothing.
func (c *Client) GitCommonDir(ctx context.Context) (string, error) {
	dir, err := c.path(ctx, "get git common dir", "rev-parse", "--git-common-dir")
	if err != nil {
		return "", err
	}
	if dir == "" {
		return c.GitDir(ctx)
	}
	return dir, nil
}

// Toplevel returns the absolute path of the working tree root.
func (c *Client) Toplevel(ctx context.Context) (string, error) {
	return c.path(ctx, "get toplevel", "rev-parse", "--show-toplevel")
}

// HeadRevision returns the full commit id of HEAD.
func (c *Client) HeadRevision(ctx context.Context) (string, error) {
	out, err := c.output(ctx, "get head revision", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// path runs a rev-parse style query and resolves a relative answer against Dir.
func (c *Client) path(ctx context.Context, summary string, args ...string) (string, error) {
	out, err := c.output(ctx, summary, args...)
	if err != nil {
		return "", err
	}
	p := strings.TrimSpace(string(out))
	if p == "" || filepath.IsAbs(p) {
		return p, nil
	}
	abs, err := filepath.Abs(filepath.Join(c.Dir, p))
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	return abs, nil
}
