package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/hook"
	"github.com/irahardianto/hookwarden/internal/engine/runner"
	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

var (
	flagAllFiles bool
	flagFiles    []string
	flagFromRef  string
	flagToRef    string
	flagStage    string
	flagVerbose  bool
)

var runCmd = &cobra.Command{
	Use:   "run [hook-id]",
	Short: "Run hooks against the staged files",
	Long: `Run the hooks configured for a stage, by default pre-commit, against the staged
files. --all-files, --files or --from-ref/--to-ref pick the files instead.
Naming a hook id runs only that hook.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)

		if (flagFromRef == "") != (flagToRef == "") {
			return errors.New("--from-ref and --to-ref must be given together")
		}
		if flagStage != config.StageManual {
			if _, err := hook.ParseType(flagStage); err != nil {
				return err
			}
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		path := s.configPath()
		proj, err := config.Load(ctx, path)
		if err != nil {
			if errors.Is(err, config.ErrConfigNotFound) {
				return err
			}
			return errcode.ConfigUnavailable(err, path)
		}

		eng, done, err := s.engine(ctx, proj)
		if err != nil {
			return err
		}
		defer done()

		opts := runner.Options{
			Stage:    flagStage,
			AllFiles: flagAllFiles,
			FromRef:  flagFromRef,
			ToRef:    flagToRef,
			Verbose:  flagVerbose || s.settings.OutputVerbose,
		}
		if len(args) == 1 {
			opts.HookID = args[0]
		}
		if cmd.Flags().Changed("files") {
			opts.Files = append([]string{}, flagFiles...)
		}

		log.Debug("run started", "stage", opts.Stage, "hook", opts.HookID)
		return eng.Run(ctx, proj, opts)
	},
}

func init() {
	runCmd.Flags().BoolVarP(&flagAllFiles, "all-files", "a", false, "Run on every tracked file")
	runCmd.Flags().StringSliceVar(&flagFiles, "files", nil, "Run on these files")
	runCmd.Flags().StringVar(&flagFromRef, "from-ref", "", "Run on files changed since this revision (with --to-ref)")
	runCmd.Flags().StringVar(&flagToRef, "to-ref", "", "Run on files changed up to this revision (with --from-ref)")
	runCmd.Flags().StringVar(&flagStage, "hook-stage", hook.PreCommit.String(), "Stage whose hooks run")
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Show hook output even when hooks pass")

	rootCmd.AddCommand(runCmd)
}
