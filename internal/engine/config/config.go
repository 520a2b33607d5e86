// Package config handles parsing and validation of hookwarden configuration files.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/irahardianto/hookwarden/internal/engine/hook"
	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// DefaultConfigFile is the project configuration looked up at the repository root.
const DefaultConfigFile = ".pre-commit-config.yaml"

// ManifestFile lists the hooks a hook repository provides.
const ManifestFile = ".pre-commit-hooks.yaml"

// LocalRepo is the repo value for hooks defined inline in the project configuration.
const LocalRepo = "local"

// StageManual marks hooks that only run when requested by id.
const StageManual = "manual"

// Language selects how a hook's entry is executed.
type Language string

const (
	// LanguageSystem runs entry as a command found on PATH.
	LanguageSystem Language = "system"
	// LanguageScript runs entry as a path relative to the hook repository.
	LanguageScript Language = "script"
	// LanguageDockerImage runs entry inside a container of the named image.
	LanguageDockerImage Language = "docker_image"
	// LanguageFail always fails, printing entry. Used to forbid files.
	LanguageFail Language = "fail"
)

var languages = []Language{LanguageSystem, LanguageScript, LanguageDockerImage, LanguageFail}

// ErrConfigNotFound is returned when the config file does not exist.
var ErrConfigNotFound = errors.New("no .pre-commit-config.yaml found. Run 'hookwarden sample-config' to create one")

// Project is the top-level project configuration.
type Project struct {
	Repos                   []Repo      `yaml:"repos"`
	DefaultInstallHookTypes []hook.Type `yaml:"default_install_hook_types,omitempty"`
	DefaultStages           []string    `yaml:"default_stages,omitempty"`
	FailFast                bool        `yaml:"fail_fast,omitempty"`
	Files                   string      `yaml:"files,omitempty"`
	Exclude                 string      `yaml:"exclude,omitempty"`

	path string
}

// ConfigFile returns the path the configuration was loaded from.
func (p *Project) ConfigFile() string {
	return p.path
}

// Repo is a source of hooks: a git repository pinned to a revision, or "local".
type Repo struct {
	Repo  string `yaml:"repo"`
	Rev   string `yaml:"rev,omitempty"`
	Hooks []Hook `yaml:"hooks"`
}

// IsLocal reports whether the hooks are defined inline.
func (r *Repo) IsLocal() bool {
	return r.Repo == LocalRepo
}

// Hook is one hook, either defined in full (local repos, manifests) or as an
// id with overrides for a manifest entry.
type Hook struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name,omitempty"`
	Entry         string   `yaml:"entry,omitempty"`
	Language      Language `yaml:"language,omitempty"`
	Args          []string `yaml:"args,omitempty"`
	Files         string   `yaml:"files,omitempty"`
	Exclude       string   `yaml:"exclude,omitempty"`
	Stages        []string `yaml:"stages,omitempty"`
	PassFilenames *bool    `yaml:"pass_filenames,omitempty"`
	AlwaysRun     bool     `yaml:"always_run,omitempty"`
	Verbose       bool     `yaml:"verbose,omitempty"`
}

// DisplayName returns the name shown in run output, falling back to the id.
func (h *Hook) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

// IsPassFilenames returns whether matched files are appended to the command.
// Falls back to true if not explicitly set.
func (h *Hook) IsPassFilenames() bool {
	if h.PassFilenames != nil {
		return *h.PassFilenames
	}
	return true
}

// Merge returns base with every field set in h applied on top.
func (h Hook) Merge(base Hook) Hook {
	merged := base
	if h.Name != "" {
		merged.Name = h.Name
	}
	if h.Entry != "" {
		merged.Entry = h.Entry
	}
	if h.Language != "" {
		merged.Language = h.Language
	}
	if h.Args != nil {
		merged.Args = h.Args
	}
	if h.Files != "" {
		merged.Files = h.Files
	}
	if h.Exclude != "" {
		merged.Exclude = h.Exclude
	}
	if h.Stages != nil {
		merged.Stages = h.Stages
	}
	if h.PassFilenames != nil {
		merged.PassFilenames = h.PassFilenames
	}
	merged.AlwaysRun = merged.AlwaysRun || h.AlwaysRun
	merged.Verbose = merged.Verbose || h.Verbose
	return merged
}

// Loader handles loading configuration from the file system.
type Loader struct {
	fs     FileSystem
	getenv func(string) string
}

// NewLoader creates a new Loader with the given file system.
// Uses os.Getenv for environment variable lookups by default.
func NewLoader(fs FileSystem) *Loader {
	return &Loader{fs: fs, getenv: os.Getenv}
}

// NewLoaderWithEnv creates a Loader with a custom getenv function for testability.
func NewLoaderWithEnv(fs FileSystem, getenv func(string) string) *Loader {
	return &Loader{fs: fs, getenv: getenv}
}

// Load reads and parses a project configuration file from the given path.
// Returns ErrConfigNotFound if the file does not exist.
func (l *Loader) Load(ctx context.Context, path string) (*Project, error) {
	logger.FromContext(ctx).Debug("loading config file", "path", path)
	path = filepath.Clean(path)

	data, err := l.fs.ReadFile(path)
	if err != nil {
		if l.fs.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Project
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.path = path

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadManifest reads the hook definitions a hook repository publishes.
func (l *Loader) LoadManifest(ctx context.Context, path string) ([]Hook, error) {
	logger.FromContext(ctx).Debug("loading hook manifest", "path", path)
	path = filepath.Clean(path)

	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hook manifest: %w", err)
	}

	var hooks []Hook
	if err := yaml.Unmarshal(data, &hooks); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var errs []error
	for i := range hooks {
		errs = append(errs, validateDefinition(&hooks[i])...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return hooks, nil
}

// Load reads and parses a project configuration file from the given path using the real file system.
// Returns ErrConfigNotFound if the file does not exist.
func Load(ctx context.Context, path string) (*Project, error) {
	return NewLoader(&RealFileSystem{}).Load(ctx, path)
}

// LoadManifest reads a hook manifest using the real file system.
func LoadManifest(ctx context.Context, path string) ([]Hook, error) {
	return NewLoader(&RealFileSystem{}).LoadManifest(ctx, path)
}

// validate checks repos and hooks for required fields.
// Returns a joined error if multiple entries have issues, so users can fix all at once.
func validate(cfg *Project) error {
	var errs []error

	errs = append(errs, validatePattern("files", cfg.Files)...)
	errs = append(errs, validatePattern("exclude", cfg.Exclude)...)
	for _, s := range cfg.DefaultStages {
		errs = append(errs, validateStage("default_stages", s)...)
	}

	for i := range cfg.Repos {
		r := &cfg.Repos[i]
		if r.Repo == "" {
			errs = append(errs, fmt.Errorf("repo at position %d: missing required field 'repo'", i))
			continue
		}
		if !r.IsLocal() && r.Rev == "" {
			errs = append(errs, fmt.Errorf("repo %q: missing required field 'rev'", r.Repo))
		}
		for j := range r.Hooks {
			h := &r.Hooks[j]
			if h.ID == "" {
				errs = append(errs, fmt.Errorf("repo %q: hook at position %d has missing required field 'id'", r.Repo, j))
				continue
			}
			if r.IsLocal() {
				errs = append(errs, validateDefinition(h)...)
				continue
			}
			if h.Language != "" && !slices.Contains(languages, h.Language) {
				errs = append(errs, fmt.Errorf("hook %q: unknown language %q", h.ID, h.Language))
			}
			errs = append(errs, validateCommon(h)...)
		}
	}

	return errors.Join(errs...)
}

// validateDefinition checks a hook that must be fully specified.
func validateDefinition(h *Hook) []error {
	var errs []error
	if h.ID == "" {
		return []error{errors.New("hook has missing required field 'id'")}
	}
	if h.Name == "" {
		errs = append(errs, fmt.Errorf("hook %q: missing required field 'name'", h.ID))
	}
	if h.Entry == "" {
		errs = append(errs, fmt.Errorf("hook %q: missing required field 'entry'", h.ID))
	}
	switch {
	case h.Language == "":
		errs = append(errs, fmt.Errorf("hook %q: missing required field 'language'", h.ID))
	case !slices.Contains(languages, h.Language):
		errs = append(errs, fmt.Errorf("hook %q: unknown language %q (valid: system, script, docker_image, fail)", h.ID, h.Language))
	}
	return append(errs, validateCommon(h)...)
}

func validateCommon(h *Hook) []error {
	var errs []error
	errs = append(errs, validatePattern(fmt.Sprintf("hook %q: files", h.ID), h.Files)...)
	errs = append(errs, validatePattern(fmt.Sprintf("hook %q: exclude", h.ID), h.Exclude)...)
	for _, s := range h.Stages {
		errs = append(errs, validateStage(fmt.Sprintf("hook %q: stages", h.ID), s)...)
	}
	return errs
}

func validatePattern(field, pattern string) []error {
	if pattern == "" {
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return []error{fmt.Errorf("%s: invalid regex %q: %w", field, pattern, err)}
	}
	return nil
}

func validateStage(field, stage string) []error {
	if stage == StageManual {
		return nil
	}
	if _, err := hook.ParseType(stage); err != nil {
		return []error{fmt.Errorf("%s: unknown stage %q", field, stage)}
	}
	return nil
}
