package runner

import (
	"fmt"
	"regexp"
	"slices"
)

// pathFilter keeps paths matching include and not matching exclude.
// An empty include matches everything; an empty exclude matches nothing.
type pathFilter struct {
	include *regexp.Regexp
	exclude *regexp.Regexp
}

func newPathFilter(include, exclude string) (pathFilter, error) {
	var f pathFilter
	var err error
	if include != "" {
		if f.include, err = regexp.Compile(include); err != nil {
			return f, fmt.Errorf("invalid files pattern %q: %w", include, err)
		}
	}
	if exclude != "" {
		if f.exclude, err = regexp.Compile(exclude); err != nil {
			return f, fmt.Errorf("invalid exclude pattern %q: %w", exclude, err)
		}
	}
	return f, nil
}

func (f pathFilter) apply(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if f.include != nil && !f.include.MatchString(p) {
			continue
		}
		if f.exclude != nil && f.exclude.MatchString(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// inStage reports whether a hook declaring stages runs at stage. Hooks that
// declare nothing fall back to defaults, and with no defaults run everywhere.
func inStage(stages, defaults []string, stage string) bool {
	if len(stages) == 0 {
		stages = defaults
	}
	return len(stages) == 0 || slices.Contains(stages, stage)
}
