package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/hook"
	"github.com/irahardianto/hookwarden/internal/platform/errcode"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

var (
	flagHookTypes          []string
	flagOverwrite          bool
	flagInstallHooks       bool
	flagAllowMissingConfig bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install hook scripts into the repository's hooks directory",
	Long: `Install a hook script for each requested hook type. Without --hook-type the
types come from default_install_hook_types in the configuration, or pre-commit.

A script that hookwarden did not write is moved aside to <hook>.legacy and still
runs before hookwarden's hooks, unless --overwrite is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		if err := s.install(ctx); err != nil {
			return err
		}
		if flagInstallHooks {
			return s.installHooks(ctx)
		}
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove hookwarden's hook scripts and restore displaced ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		return s.uninstall(ctx)
	},
}

// hooksManager returns a manager for the hooks directory shared by all worktrees.
func (s *session) hooksManager(ctx context.Context) (*hook.Manager, error) {
	common, err := s.git.GitCommonDir(ctx)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(common, "hooks")
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 -- git's own hooks directory
		return nil, errcode.IO(err, "creating %s", dir)
	}
	return hook.NewManager(dir, s.printer), nil
}

// hookTypes resolves the types to act on. proj is nil when no configuration
// could be loaded.
func hookTypes(proj *config.Project) ([]hook.Type, error) {
	explicit, err := hook.ParseTypes(flagHookTypes)
	if err != nil {
		return nil, err
	}
	var defaults []hook.Type
	if proj != nil {
		defaults = proj.DefaultInstallHookTypes
	}
	return hook.ResolveTypes(explicit, defaults), nil
}

// loadOptional reads the project configuration, treating a missing or broken
// file as absent.
func (s *session) loadOptional(ctx context.Context) *config.Project {
	proj, err := config.Load(ctx, s.configPath())
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			logger.FromContext(ctx).Warn("ignoring unreadable configuration", "path", s.configPath(), "error", err)
		}
		return nil
	}
	return proj
}

func (s *session) install(ctx context.Context) error {
	set, err := s.git.HasHooksPathSet(ctx)
	if err != nil {
		return err
	}
	if set {
		fmt.Fprintln(s.printer.Stderr(), "Cowardly refusing to install hooks with `core.hooksPath` set.")
		fmt.Fprintln(s.printer.Stderr(), "hint: `git config --unset-all core.hooksPath` to fix this.")
		return errSilent
	}

	mgr, err := s.hooksManager(ctx)
	if err != nil {
		return err
	}

	proj := s.loadOptional(ctx)
	types, err := hookTypes(proj)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return errcode.IO(err, "locating hookwarden executable")
	}

	opts := hook.InstallOptions{
		ScriptOptions: hook.ScriptOptions{
			SkipOnMissingConfig: flagAllowMissingConfig,
			Executable:          exe,
		},
		Overwrite: flagOverwrite,
	}
	if proj != nil {
		opts.ConfigFile = s.scriptConfigPath(proj.ConfigFile())
	}

	for _, t := range types {
		if err := mgr.Install(ctx, t, opts); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) uninstall(ctx context.Context) error {
	mgr, err := s.hooksManager(ctx)
	if err != nil {
		return err
	}

	types, err := hookTypes(s.loadOptional(ctx))
	if err != nil {
		return err
	}
	for _, t := range types {
		if err := mgr.Uninstall(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{installCmd, uninstallCmd} {
		c.Flags().StringArrayVarP(&flagHookTypes, "hook-type", "t", nil, "Hook type to act on (repeatable)")
	}
	installCmd.Flags().BoolVarP(&flagOverwrite, "overwrite", "f", false, "Replace existing hook scripts instead of keeping them as .legacy")
	installCmd.Flags().BoolVar(&flagInstallHooks, "install-hooks", false, "Also fetch hook repositories and pull hook images")
	installCmd.Flags().BoolVar(&flagAllowMissingConfig, "allow-missing-config", false, "Let the installed hooks pass when the configuration is missing")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}
