// Package commands implements the CLI commands for hookwarden.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	perrors "github.com/jmgilman/go/errors"
	"github.com/spf13/cobra"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/runner"
	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// Global flag values accessible to all commands.
var (
	flagDebug   bool
	flagJSONLog bool
	flagNoColor bool
	flagConfig  string
)

// errSilent ends the process with status 1 after the command already told
// the user what went wrong.
var errSilent = errors.New("silent failure")

// rootCmd is the base command for the hookwarden CLI.
var rootCmd = &cobra.Command{
	Use:   "hookwarden",
	Short: "Install and run git hooks declared in .pre-commit-config.yaml",
	Long: `Hookwarden installs small scripts into a repository's hooks directory that
hand control back to hookwarden, which then runs the hooks declared in
.pre-commit-config.yaml against the files git is about to commit or push.

Hooks run on the host (system, script) or in warm Docker containers (docker_image).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		l := logger.New(cmd.ErrOrStderr(), flagDebug, flagJSONLog)
		ctx := logger.WithContext(cmd.Context(), l)
		cmd.SetContext(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log every git and tool invocation")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLog, "json-log", false, "Write diagnostics as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultConfigFile, "Path to the project configuration")
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	return exitStatus(rootCmd.ErrOrStderr(), err)
}

// exitStatus reports err on w and maps it to an exit status.
func exitStatus(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errSilent), errors.Is(err, runner.ErrHooksFailed), errors.Is(err, runner.ErrAborted):
		return 1
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Interrupted (^C): KeyboardInterrupt")
		return 130
	}

	fmt.Fprintf(w, "error: %v\n", err)
	if errcode.Is(err, perrors.CodeNotFound) {
		fmt.Fprintln(w, "hint: install git and make sure it is on your PATH")
	}
	return 1
}
