package git

import (
	"context"
	"strings"
)

// Diff returns the unstaged changes to tracked files as a binary-safe patch.
func (c *Client) Diff(ctx context.Context) ([]byte, error) {
	return c.output(ctx, "git diff",
		"diff", "--no-ext-diff", "--no-textconv", "--ignore-submodules", "--binary", "--no-color")
}

// WriteTree creates a tree object from the index. The index must be fully merged.
func (c *Client) WriteTree(ctx context.Context) (string, error) {
	out, err := c.output(ctx, "git write-tree", "write-tree")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CheckoutWorkTree resets tracked files in the working tree to the index.
func (c *Client) CheckoutWorkTree(ctx context.Context) error {
	_, err := c.output(ctx, "git checkout", "checkout", "--", ".")
	return err
}

// ApplyPatch applies a patch produced by Diff.
func (c *Client) ApplyPatch(ctx context.Context, patch string) error {
	_, err := c.output(ctx, "git apply", "apply", "--whitespace=nowarn", patch)
	return err
}

// RemoveCached drops paths from the index.
func (c *Client) RemoveCached(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.output(ctx, "git rm --cached", append([]string{"rm", "--cached", "--quiet", "--"}, paths...)...)
	return err
}

// AddIntentToAdd records paths as intent-to-add.
func (c *Client) AddIntentToAdd(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := c.output(ctx, "git add --intent-to-add", append([]string{"add", "--intent-to-add", "--"}, paths...)...)
	return err
}
