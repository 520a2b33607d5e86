package config

import "strings"

// Stack represents a detected technology stack.
type Stack string

const (
	// StackGo indicates a Go project (detected by go.mod).
	StackGo Stack = "go"
	// StackNode indicates a Node.js project (detected by package.json).
	StackNode Stack = "node"
	// StackPython indicates a Python project (detected by requirements.txt or pyproject.toml).
	StackPython Stack = "python"
)

// markerFiles maps file names to their corresponding stack.
var markerFiles = map[string]Stack{
	"go.mod":           StackGo,
	"package.json":     StackNode,
	"requirements.txt": StackPython,
	"pyproject.toml":   StackPython,
}

// DetectStacks scans file names for well-known marker files and returns
// the detected technology stacks. Pure function, no I/O.
// Each stack is returned at most once even if multiple markers match.
func DetectStacks(files []string) []Stack {
	seen := make(map[Stack]bool)
	var stacks []Stack

	for _, f := range files {
		if stack, ok := markerFiles[f]; ok && !seen[stack] {
			seen[stack] = true
			stacks = append(stacks, stack)
		}
	}

	return stacks
}

// GenerateSampleConfig produces a .pre-commit-config.yaml for the given stacks.
// Without stacks only the language-agnostic hooks are emitted.
func GenerateSampleConfig(stacks []Stack) string {
	var b strings.Builder
	b.WriteString(sampleHeader)
	b.WriteString(genericHooks)

	for _, s := range stacks {
		switch s {
		case StackGo:
			b.WriteString(goHooks)
		case StackNode:
			b.WriteString(nodeHooks)
		case StackPython:
			b.WriteString(pythonHooks)
		}
	}

	return b.String()
}

const sampleHeader = `# hookwarden configuration, generated by 'hookwarden sample-config'
# Docs: https://github.com/irahardianto/hookwarden
default_install_hook_types: [pre-commit]
repos:
  - repo: local
    hooks:
`

const genericHooks = `      - id: forbid-rej-files
        name: forbid .rej files
        entry: patch rejects must not be committed
        language: fail
        files: '\.rej$'

`

const goHooks = `      # --- Go ---
      - id: gofmt
        name: gofmt
        entry: gofmt -l -d
        language: system
        files: '\.go$'

      - id: go-vet
        name: go vet
        entry: go vet ./...
        language: system
        files: '\.go$'
        pass_filenames: false

      # - id: golangci-lint
      #   name: golangci-lint
      #   entry: golangci/golangci-lint:latest golangci-lint run
      #   language: docker_image
      #   pass_filenames: false

`

const nodeHooks = `      # --- Node.js ---
      - id: eslint
        name: eslint
        entry: npx eslint
        language: system
        files: '\.(js|ts|jsx|tsx)$'

      # - id: prettier-check
      #   name: prettier
      #   entry: npx prettier --check
      #   language: system
      #   files: '\.(js|ts|jsx|tsx|json|md)$'

`

const pythonHooks = `      # --- Python ---
      - id: ruff
        name: ruff
        entry: ghcr.io/astral-sh/ruff:latest check
        language: docker_image
        files: '\.py$'

      # - id: pytest
      #   name: pytest
      #   entry: pytest
      #   language: system
      #   pass_filenames: false
      #   stages: [pre-push]

`
