package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/hook"
	"github.com/irahardianto/hookwarden/internal/engine/runner"
	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
	"github.com/irahardianto/hookwarden/internal/platform/process"
)

var (
	flagImplHookType     string
	flagImplHookDir      string
	flagSkipOnMissingCfg bool
)

var hookImplCmd = &cobra.Command{
	Use:    "hook-impl [flags] -- [git hook arguments]",
	Short:  "Entry point of installed hook scripts",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		t, err := hook.ParseType(flagImplHookType)
		if err != nil {
			return err
		}
		s, err := openSession(cmd)
		if err != nil {
			return err
		}

		var stdin []byte
		if readsStdin(t) {
			if stdin, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return errcode.IO(err, "reading hook input")
			}
		}
		return s.hookImpl(ctx, t, args, stdin)
	},
}

// readsStdin reports whether git feeds t a list on standard input.
// Other hooks may inherit a terminal, which must not be drained.
func readsStdin(t hook.Type) bool {
	return t == hook.PrePush || t == hook.PostRewrite
}

// hookImpl runs a displaced legacy script, then every configured hook for t.
// Both always run; the hook fails when either does.
func (s *session) hookImpl(ctx context.Context, t hook.Type, args []string, stdin []byte) error {
	log := logger.FromContext(ctx).With("hook_type", t.String())

	legacyErr := s.runLegacy(ctx, t, args, stdin)

	path := s.configPath()
	proj, err := config.Load(ctx, path)
	if errors.Is(err, config.ErrConfigNotFound) {
		if flagSkipOnMissingCfg || s.settings.AllowNoConfig {
			fmt.Fprintf(s.printer.Stdout(), "`%s` config file not found. Skipping `%s`.\n", flagConfig, t)
			return legacyErr
		}
		w := s.printer.Stderr()
		fmt.Fprintf(w, "No %s file was found\n", flagConfig)
		fmt.Fprintln(w, "- To temporarily silence this, run `HOOKWARDEN_ALLOW_NO_CONFIG=1 git ...`")
		fmt.Fprintln(w, "- To permanently silence this, install hookwarden with the --allow-missing-config option")
		fmt.Fprintln(w, "- To uninstall hookwarden run `hookwarden uninstall`")
		return errSilent
	}
	if err != nil {
		return errcode.ConfigUnavailable(err, path)
	}

	eng, done, err := s.engine(ctx, proj)
	if err != nil {
		return err
	}
	defer done()

	opts, ok, err := hookOptions(ctx, eng, t, args, stdin)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug("nothing to check")
		return legacyErr
	}
	opts.Verbose = s.settings.OutputVerbose

	if err := eng.Run(ctx, proj, opts); err != nil {
		return err
	}
	return legacyErr
}

// hookOptions decides which files the hooks of t look at. ok is false when
// the event has nothing to check, as with a push that only deletes refs.
func hookOptions(ctx context.Context, eng *runner.Engine, t hook.Type, args []string, stdin []byte) (runner.Options, bool, error) {
	opts := runner.Options{Stage: t.String()}

	switch t {
	case hook.PreCommit, hook.PreMergeCommit:
		// Staged files, with unstaged changes kept aside.
	case hook.PrePush:
		updates, err := runner.ParsePushUpdates(bytes.NewReader(stdin))
		if err != nil {
			return opts, false, err
		}
		files, pushed, err := eng.PushFiles(ctx, updates)
		if err != nil || !pushed {
			return opts, false, err
		}
		opts.Files = files
		if len(args) >= 2 {
			opts.Env = map[string]string{
				"HOOKWARDEN_REMOTE_NAME": args[0],
				"HOOKWARDEN_REMOTE_URL":  args[1],
			}
		}
	case hook.CommitMsg, hook.PrepareCommitMsg:
		if len(args) == 0 {
			return opts, false, fmt.Errorf("%s hook expects the commit message file as its first argument", t)
		}
		opts.Files = []string{args[0]}
	default:
		opts.Files = []string{}
	}
	return opts, true, nil
}

// runLegacy runs the script install moved aside for t, when there is one,
// with the same arguments and input git gave us.
func (s *session) runLegacy(ctx context.Context, t hook.Type, args []string, stdin []byte) error {
	if flagImplHookDir == "" {
		return nil
	}
	legacy := filepath.Join(flagImplHookDir, t.String()+".legacy")
	info, err := os.Stat(legacy)
	if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
		return nil
	}

	res, err := process.New(legacy, "run legacy "+t.String()+" hook").
		Args(args...).
		Dir(s.toplevel).
		Stdin(bytes.NewReader(stdin)).
		Output(ctx)
	if err != nil {
		return err
	}
	_, _ = s.printer.Stdout().Write(res.Stdout)
	_, _ = s.printer.Stderr().Write(res.Stderr)
	if res.Status != 0 {
		logger.FromContext(ctx).Debug("legacy hook failed", "path", legacy, "status", res.Status)
		return errSilent
	}
	return nil
}

func init() {
	hookImplCmd.Flags().StringVar(&flagImplHookType, "hook-type", hook.PreCommit.String(), "Hook type git is running")
	hookImplCmd.Flags().StringVar(&flagImplHookDir, "hook-dir", "", "Directory holding the running hook script")
	hookImplCmd.Flags().BoolVar(&flagSkipOnMissingCfg, "skip-on-missing-config", false, "Pass when the configuration is missing")

	rootCmd.AddCommand(hookImplCmd)
}
