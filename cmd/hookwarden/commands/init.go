package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irahardianto/hookwarden/internal/engine/config"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// InitFS abstracts file system operations needed by the init command.
type InitFS interface {
	Stat(name string) (fs.FileInfo, error)
	IsNotExist(err error) bool
	ReadDir(name string) ([]fs.DirEntry, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
}

// hostFS is the InitFS of the real file system.
type hostFS struct{}

func (hostFS) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (hostFS) IsNotExist(err error) bool                   { return errors.Is(err, fs.ErrNotExist) }
func (hostFS) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }

func (hostFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm) // #nosec G306 -- config file, not sensitive
}

var sampleConfigCmd = &cobra.Command{
	Use:   "sample-config",
	Short: "Print a .pre-commit-config.yaml for the project in the working directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		stacks, err := detectStacks(hostFS{}, dir)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), config.GenerateSampleConfig(stacks))
		return err
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .pre-commit-config.yaml for the detected stack",
	Long: `Detect the project's technology stack from marker files in the working
directory and write a starter .pre-commit-config.yaml unless one exists.
Run 'hookwarden install' afterwards to activate it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)

		dir, err := getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		if err := initProject(dir, hostFS{}, cmd.OutOrStdout()); err != nil {
			return err
		}
		log.Debug("init completed", "dir", dir)
		return nil
	},
}

// initProject writes the sample configuration into dir with injected
// dependencies for testability.
func initProject(dir string, fsys InitFS, out io.Writer) error {
	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := fsys.Stat(configPath); !fsys.IsNotExist(err) {
		if err != nil {
			return fmt.Errorf("checking %s: %w", configPath, err)
		}
		fmt.Fprintf(out, "Config already exists at %s. Skipping generation.\n", configPath)
		return nil
	}

	stacks, err := detectStacks(fsys, dir)
	if err != nil {
		return err
	}
	if err := fsys.WriteFile(configPath, []byte(config.GenerateSampleConfig(stacks)), 0o644); err != nil { // #nosec G306 -- config file, not sensitive
		return fmt.Errorf("writing %s: %w", config.DefaultConfigFile, err)
	}

	if len(stacks) > 0 {
		fmt.Fprintf(out, "Detected %s project. Generated %s.\n", formatStacks(stacks), configPath)
	} else {
		fmt.Fprintf(out, "No stack detected. Created minimal %s, customize it.\n", configPath)
	}
	return nil
}

func detectStacks(fsys InitFS, dir string) ([]config.Stack, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading project directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		files = append(files, e.Name())
	}
	return config.DetectStacks(files), nil
}

// formatStacks returns a human-readable string of detected stacks.
func formatStacks(stacks []config.Stack) string {
	names := make([]string, len(stacks))
	for i, s := range stacks {
		names[i] = string(s)
	}
	return strings.Join(names, " + ")
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(sampleConfigCmd)
}
