package config

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irahardianto/hookwarden/internal/engine/hook"
)

func loadFromString(t *testing.T, content string) (*Project, error) {
	t.Helper()
	mockFS := NewMockFileSystem()
	mockFS.Files[DefaultConfigFile] = []byte(content)
	return NewLoader(mockFS).Load(context.Background(), DefaultConfigFile)
}

const validFull = `
default_install_hook_types: [pre-commit, pre-push]
default_stages: [pre-commit]
fail_fast: true
files: '^src/'
exclude: '^vendor/'
repos:
  - repo: https://github.com/example/hooks
    rev: v1.2.0
    hooks:
      - id: trailing-whitespace
        args: [--markdown-linebreak-ext=md]
      - id: check-yaml
        exclude: '^charts/'
  - repo: local
    hooks:
      - id: unit-tests
        name: unit tests
        entry: go test ./...
        language: system
        pass_filenames: false
        always_run: true
        stages: [pre-push]
      - id: lint
        name: lint
        entry: golangci/golangci-lint:latest golangci-lint run
        language: docker_image
        verbose: true
`

func TestLoad_ValidFull(t *testing.T) {
	cfg, err := loadFromString(t, validFull)
	require.NoError(t, err)

	assert.Equal(t, DefaultConfigFile, cfg.ConfigFile())
	assert.Equal(t, []hook.Type{hook.PreCommit, hook.PrePush}, cfg.DefaultInstallHookTypes)
	assert.True(t, cfg.FailFast)
	assert.Equal(t, "^src/", cfg.Files)
	assert.Equal(t, "^vendor/", cfg.Exclude)
	require.Len(t, cfg.Repos, 2)

	remote := cfg.Repos[0]
	assert.False(t, remote.IsLocal())
	assert.Equal(t, "v1.2.0", remote.Rev)
	require.Len(t, remote.Hooks, 2)
	assert.Equal(t, []string{"--markdown-linebreak-ext=md"}, remote.Hooks[0].Args)

	local := cfg.Repos[1]
	require.True(t, local.IsLocal())
	tests := local.Hooks[0]
	assert.False(t, tests.IsPassFilenames(), "pass_filenames: false not honoured")
	assert.True(t, tests.AlwaysRun)
	assert.Equal(t, []string{"pre-push"}, tests.Stages)

	lint := local.Hooks[1]
	assert.Equal(t, LanguageDockerImage, lint.Language)
	assert.True(t, lint.Verbose)
	assert.True(t, lint.IsPassFilenames())
}

func TestLoad_NotFound(t *testing.T) {
	_, err := NewLoader(NewMockFileSystem()).Load(context.Background(), "missing.yaml")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_ReadError(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.ReadErrors[DefaultConfigFile] = errors.New("permission denied")

	_, err := NewLoader(mockFS).Load(context.Background(), DefaultConfigFile)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfigNotFound)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := loadFromString(t, "repos: [unclosed\n")
	assert.Error(t, err)
}

func TestLoad_UnknownInstallHookType(t *testing.T) {
	_, err := loadFromString(t, "default_install_hook_types: [pre-comit]\nrepos: []\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pre-comit", "error should name the bad value")
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing repo",
			content: "repos:\n  - rev: v1\n    hooks: []\n",
			want:    "missing required field 'repo'",
		},
		{
			name:    "missing rev",
			content: "repos:\n  - repo: https://example.com/h\n    hooks: [{id: a}]\n",
			want:    "missing required field 'rev'",
		},
		{
			name:    "missing id",
			content: "repos:\n  - repo: local\n    hooks: [{name: a, entry: b, language: system}]\n",
			want:    "missing required field 'id'",
		},
		{
			name:    "local without entry",
			content: "repos:\n  - repo: local\n    hooks: [{id: a, name: a, language: system}]\n",
			want:    "missing required field 'entry'",
		},
		{
			name:    "local without language",
			content: "repos:\n  - repo: local\n    hooks: [{id: a, name: a, entry: b}]\n",
			want:    "missing required field 'language'",
		},
		{
			name:    "unknown language",
			content: "repos:\n  - repo: local\n    hooks: [{id: a, name: a, entry: b, language: rust}]\n",
			want:    `unknown language "rust"`,
		},
		{
			name:    "bad regex",
			content: "files: '(['\nrepos: []\n",
			want:    "invalid regex",
		},
		{
			name:    "bad stage",
			content: "repos:\n  - repo: local\n    hooks: [{id: a, name: a, entry: b, language: system, stages: [commit]}]\n",
			want:    `unknown stage "commit"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFromString(t, tt.content)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_JoinsAllErrors(t *testing.T) {
	content := `
repos:
  - repo: local
    hooks:
      - id: a
      - id: b
        name: b
        entry: b
        language: nope
`
	_, err := loadFromString(t, content)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `hook "a": missing required field 'name'`)
	assert.Contains(t, err.Error(), `hook "b": unknown language`)
}

func TestLoad_ManualStageAllowed(t *testing.T) {
	_, err := loadFromString(t, "repos:\n  - repo: local\n    hooks: [{id: a, name: a, entry: b, language: system, stages: [manual]}]\n")
	assert.NoError(t, err)
}

func TestLoadManifest(t *testing.T) {
	mockFS := NewMockFileSystem()
	mockFS.Files[ManifestFile] = []byte(`
- id: check-yaml
  name: check yaml
  entry: check.sh
  language: script
  files: '\.ya?ml$'
- id: forbid-binaries
  name: forbid binaries
  entry: binaries are not allowed
  language: fail
`)

	hooks, err := NewLoader(mockFS).LoadManifest(context.Background(), ManifestFile)
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	assert.Equal(t, LanguageScript, hooks[0].Language)
	assert.Equal(t, LanguageFail, hooks[1].Language)

	mockFS.Files[ManifestFile] = []byte("- id: broken\n")
	_, err = NewLoader(mockFS).LoadManifest(context.Background(), ManifestFile)
	assert.Error(t, err, "incomplete manifest entry")

	_, err = NewLoader(mockFS).LoadManifest(context.Background(), "absent.yaml")
	assert.Error(t, err, "missing manifest")
}

func TestHook_Merge(t *testing.T) {
	no := false
	base := Hook{
		ID:       "check-yaml",
		Name:     "check yaml",
		Entry:    "check.sh",
		Language: LanguageScript,
		Args:     []string{"--strict"},
		Files:    `\.ya?ml$`,
		Stages:   []string{"pre-commit"},
	}
	override := Hook{ID: "check-yaml", Args: []string{}, Exclude: "^charts/", PassFilenames: &no, Verbose: true}

	merged := override.Merge(base)

	assert.Equal(t, "check.sh", merged.Entry)
	assert.Equal(t, LanguageScript, merged.Language)
	assert.Equal(t, `\.ya?ml$`, merged.Files)
	assert.Empty(t, merged.Args, "explicit empty args clear base args")
	assert.Equal(t, "^charts/", merged.Exclude)
	assert.False(t, merged.IsPassFilenames())
	assert.True(t, merged.Verbose)
	assert.Empty(t, base.Exclude, "merge must not mutate the base hook")
}

func TestHook_DisplayName(t *testing.T) {
	assert.Equal(t, "x", (&Hook{ID: "x"}).DisplayName())
	assert.Equal(t, "Pretty", (&Hook{ID: "x", Name: "Pretty"}).DisplayName())
}
