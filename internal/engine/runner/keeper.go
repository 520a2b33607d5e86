package runner

import (
	"context"
	"fmt"
	"os"

	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// keepStagedOnly clears intent-to-add entries and unstaged changes so hooks
// see exactly what will be committed. The returned function puts everything
// back and must run even when the hooks were interrupted.
func (e *Engine) keepStagedOnly(ctx context.Context) (func(context.Context) error, error) {
	log := logger.FromContext(ctx)

	intents, err := e.git.IntentToAddFiles(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.git.RemoveCached(ctx, intents); err != nil {
		return nil, err
	}
	readd := func(ctx context.Context) error {
		return e.git.AddIntentToAdd(ctx, intents)
	}

	tree, err := e.git.WriteTree(ctx)
	if err != nil {
		return nil, joinRestore(ctx, err, readd)
	}
	diff, err := e.git.Diff(ctx)
	if err != nil {
		return nil, joinRestore(ctx, err, readd)
	}
	if len(diff) == 0 {
		return readd, nil
	}

	patch := e.store.PatchPath(tree)
	if err := os.WriteFile(patch, diff, 0o600); err != nil {
		return nil, joinRestore(ctx, errcode.IO(err, "saving unstaged changes to %s", patch), readd)
	}
	fmt.Fprintf(e.printer.Stderr(), "%s Unstaged files detected.\n", e.printer.Skipped("[WARNING]"))
	fmt.Fprintf(e.printer.Stderr(), "[INFO] Stashing unstaged files to %s.\n", e.printer.Path(patch))
	log.Debug("saved unstaged changes", "patch", patch, "tree", tree)

	if err := e.git.CheckoutWorkTree(ctx); err != nil {
		return nil, joinRestore(ctx, err, e.restorePatch(patch), readd)
	}

	return func(ctx context.Context) error {
		if err := e.restorePatch(patch)(ctx); err != nil {
			return err
		}
		return readd(ctx)
	}, nil
}

// restorePatch reapplies the saved patch. When hooks modified the same lines,
// their edits are discarded first so the user's changes always survive.
func (e *Engine) restorePatch(patch string) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := e.git.ApplyPatch(ctx, patch); err != nil {
			logger.FromContext(ctx).Debug("patch did not apply cleanly", "error", err)
			fmt.Fprintf(e.printer.Stderr(), "%s Stashed changes conflicted with hook auto-fixes... Rolling back fixes...\n", e.printer.Skipped("[WARNING]"))
			if err := e.git.CheckoutWorkTree(ctx); err != nil {
				return err
			}
			if err := e.git.ApplyPatch(ctx, patch); err != nil {
				return fmt.Errorf("restoring unstaged changes from %s: %w", patch, err)
			}
		}
		fmt.Fprintf(e.printer.Stderr(), "[INFO] Restored changes from %s.\n", e.printer.Path(patch))
		return nil
	}
}

func joinRestore(ctx context.Context, err error, undo ...func(context.Context) error) error {
	for _, fn := range undo {
		if uerr := fn(ctx); uerr != nil {
			logger.FromContext(ctx).Error("failed to undo partial setup", "error", uerr)
		}
	}
	return err
}
