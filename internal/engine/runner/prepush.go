package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
)

// PushUpdate is one line git writes to a pre-push hook's stdin.
type PushUpdate struct {
	LocalRef  string
	LocalSHA  string
	RemoteRef string
	RemoteSHA string
}

func isZeroSHA(sha string) bool {
	return strings.Trim(sha, "0") == ""
}

// ParsePushUpdates reads "<local ref> <local sha> <remote ref> <remote sha>" lines.
func ParsePushUpdates(r io.Reader) ([]PushUpdate, error) {
	var updates []PushUpdate
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("unexpected pre-push input %q", line)
		}
		updates = append(updates, PushUpdate{
			LocalRef:  fields[0],
			LocalSHA:  fields[1],
			RemoteRef: fields[2],
			RemoteSHA: fields[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading pre-push input: %w", err)
	}
	return updates, nil
}

// PushFiles lists the files a push changes. Deleted refs contribute nothing;
// a ref the remote does not have yet contributes every tracked file. The
// second result is false when there is nothing to check.
func (e *Engine) PushFiles(ctx context.Context, updates []PushUpdate) ([]string, bool, error) {
	seen := map[string]struct{}{}
	var files []string
	pushed := false

	for _, u := range updates {
		if isZeroSHA(u.LocalSHA) {
			continue
		}
		pushed = true

		var changed []string
		var err error
		if isZeroSHA(u.RemoteSHA) {
			changed, err = e.git.AllFiles(ctx)
		} else {
			changed, err = e.git.ChangedFiles(ctx, u.RemoteSHA, u.LocalSHA)
		}
		if err != nil {
			return nil, false, err
		}
		for _, f := range changed {
			if _, dup := seen[f]; !dup {
				seen[f] = struct{}{}
				files = append(files, f)
			}
		}
	}
	slices.Sort(files)
	if files == nil {
		files = []string{}
	}
	return files, pushed, nil
}
