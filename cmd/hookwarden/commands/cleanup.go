package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/engine/git"
	"github.com/irahardianto/hookwarden/internal/engine/pool"
	"github.com/irahardianto/hookwarden/internal/engine/store"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

var flagStaleOnly bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove hookwarden containers and cached hook repositories",
	Long: `Stop and remove Docker containers labelled hookwarden.managed=true, then empty
the store of cloned hook repositories and saved patches. With --stale only
containers older than the configured container TTL are removed and the store is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		out := cmd.OutOrStdout()

		settings, err := config.LoadSettings(ctx)
		if err != nil {
			return err
		}

		rt, closeFn, err := dockerRuntime()
		if err != nil {
			log.Warn("skipping container cleanup", "error", err)
		} else {
			defer func() { _ = closeFn() }()
			p := pool.NewPool(rt)
			var count int
			if flagStaleOnly {
				count, err = p.CleanupStale(ctx, settings.ContainerTTL)
			} else {
				count, err = p.CleanupAll(ctx)
			}
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}
			fmt.Fprintf(out, "Removed %d hookwarden container(s)\n", count)
		}

		if flagStaleOnly {
			return nil
		}
		st, err := store.Open(settings.Home, git.NewClient(""))
		if err != nil {
			return err
		}
		release, err := st.Lock(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = release() }()
		if err := st.Clean(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "Cleaned %s\n", st.Root())
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&flagStaleOnly, "stale", false, "Only remove containers older than the container TTL")
	rootCmd.AddCommand(cleanupCmd)
}
