package pool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

const (
	labelManaged = "hookwarden.managed"
	labelPoolKey = "hookwarden.pool_key"
	labelImage   = "hookwarden.image"
	labelProject = "hookwarden.project"
	labelCreated = "hookwarden.created"
)

// Command is a parsed docker_image hook entry: an optional --entrypoint
// override, the image, then arguments.
type Command struct {
	Image      string
	Entrypoint string
	Args       []string
}

// ParseEntry splits the shell-split tokens of a docker_image entry.
// Accepted forms are "IMAGE ARGS..." and "--entrypoint EP IMAGE ARGS...".
func ParseEntry(tokens []string) (Command, error) {
	var c Command
	if len(tokens) > 0 {
		switch {
		case tokens[0] == "--entrypoint":
			if len(tokens) < 2 {
				return Command{}, errors.New("--entrypoint requires a value")
			}
			c.Entrypoint = tokens[1]
			tokens = tokens[2:]
		case strings.HasPrefix(tokens[0], "--entrypoint="):
			c.Entrypoint = strings.TrimPrefix(tokens[0], "--entrypoint=")
			tokens = tokens[1:]
		}
	}
	if len(tokens) == 0 || tokens[0] == "" {
		return Command{}, errors.New("docker_image entry must name an image")
	}
	c.Image = tokens[0]
	c.Args = tokens[1:]
	return c, nil
}

// Pool hands out one running container per (image, project) pair.
type Pool struct {
	runtime ContainerRuntime
	mu      sync.Mutex
	now     func() time.Time
}

func NewPool(runtime ContainerRuntime) *Pool {
	return &Pool{runtime: runtime, now: time.Now}
}

// Platform is the platform hook images are pulled and created for.
func Platform() *v1.Platform {
	return &v1.Platform{OS: "linux", Architecture: goruntime.GOARCH}
}

// Pull fetches img for Platform, draining the progress stream so a failed pull
// surfaces as an error.
func (p *Pool) Pull(ctx context.Context, img string) error {
	plat := Platform()
	logger.FromContext(ctx).Debug("pulling image", "image", img, "platform", plat.OS+"/"+plat.Architecture)

	reader, err := p.runtime.ImagePull(ctx, img, image.PullOptions{Platform: plat.OS + "/" + plat.Architecture})
	if err != nil {
		return fmt.Errorf("pulling image %q: %w", img, err)
	}
	if reader == nil {
		return nil
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("reading pull response for %q: %w", img, err)
	}
	return nil
}

// Argv builds the argument vector exec'd for c: the entrypoint (the override or
// the image's own) followed by c.Args and extra. Without any arguments the
// image's default command is used, as `docker run` would.
func (p *Pool) Argv(ctx context.Context, c Command, extra []string) ([]string, error) {
	args := append(append([]string{}, c.Args...), extra...)
	if c.Entrypoint != "" {
		return append([]string{c.Entrypoint}, args...), nil
	}

	info, err := p.runtime.ImageInspect(ctx, c.Image)
	if err != nil {
		return nil, fmt.Errorf("inspecting image %q: %w", c.Image, err)
	}
	var argv []string
	if info.Config != nil {
		argv = append(argv, info.Config.Entrypoint...)
		if len(args) == 0 {
			args = append(args, info.Config.Cmd...)
		}
	}
	argv = append(argv, args...)
	if len(argv) == 0 {
		return nil, fmt.Errorf("image %q has no entrypoint or command", c.Image)
	}
	return argv, nil
}

// GetOrCreate returns a running container of img with projectPath mounted at
// WorkDir, starting one when no warm container matches.
func (p *Pool) GetOrCreate(ctx context.Context, img, projectPath string) (string, error) {
	log := logger.FromContext(ctx).With("image", img, "project", projectPath)

	p.mu.Lock()
	defer p.mu.Unlock()

	key := poolKey(img, projectPath)
	running, err := p.runtime.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("label", labelPoolKey+"="+key),
			filters.Arg("status", "running"),
		),
		Limit: 1,
	})
	if err != nil {
		return "", fmt.Errorf("listing containers: %w", err)
	}
	if len(running) > 0 {
		log.Debug("reusing warm container", "container_id", running[0].ID)
		return running[0].ID, nil
	}

	id, err := p.start(ctx, img, projectPath, key)
	if err != nil {
		return "", err
	}
	log.Info("started hook container", "container_id", id)
	return id, nil
}

func (p *Pool) start(ctx context.Context, img, projectPath, key string) (string, error) {
	if err := p.Pull(ctx, img); err != nil {
		return "", err
	}

	uidGid, err := hostUser()
	if err != nil {
		return "", err
	}

	config := &container.Config{
		Image:      img,
		Entrypoint: []string{"sleep", "infinity"},
		User:       uidGid,
		WorkingDir: WorkDir,
		Labels: map[string]string{
			labelManaged: "true",
			labelPoolKey: key,
			labelImage:   img,
			labelProject: projectPath,
			labelCreated: p.now().UTC().Format(time.RFC3339),
		},
	}
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{projectMount(projectPath), tmpMount()},
	}

	resp, err := p.runtime.ContainerCreate(ctx, config, hostConfig, nil, Platform(), "")
	if err != nil {
		return "", fmt.Errorf("creating container for %q: %w", img, err)
	}
	if err := p.runtime.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = p.runtime.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("starting container for %q: %w", img, err)
	}
	return resp.ID, nil
}

// CleanupStale removes managed containers created more than ttl ago and
// returns how many were removed.
func (p *Pool) CleanupStale(ctx context.Context, ttl time.Duration) (int, error) {
	threshold := p.now().Add(-ttl)
	return p.remove(ctx, func(c container.Summary) bool {
		created, err := time.Parse(time.RFC3339, c.Labels[labelCreated])
		if err != nil {
			return false
		}
		return created.Before(threshold)
	})
}

// CleanupAll removes every managed container.
func (p *Pool) CleanupAll(ctx context.Context) (int, error) {
	return p.remove(ctx, func(container.Summary) bool { return true })
}

func (p *Pool) remove(ctx context.Context, match func(container.Summary) bool) (int, error) {
	log := logger.FromContext(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	containers, err := p.runtime.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", labelManaged+"=true")),
	})
	if err != nil {
		return 0, fmt.Errorf("listing containers: %w", err)
	}

	removed := 0
	for _, c := range containers {
		if !match(c) {
			continue
		}
		if err := p.runtime.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			log.Error("failed to remove container", "container_id", c.ID, "error", err)
			continue
		}
		removed++
	}
	log.Debug("removed hook containers", "count", removed)
	return removed, nil
}

func poolKey(img, projectPath string) string {
	sum := sha256.Sum256([]byte(img + "|" + projectPath))
	return hex.EncodeToString(sum[:])
}
