package pool

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/irahardianto/hookwarden/internal/platform/logger"
)

// ExecResult is the outcome of one command run inside a container.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Executor runs argument vectors inside pool containers.
type Executor struct {
	runtime ContainerRuntime
}

func NewExecutor(runtime ContainerRuntime) *Executor {
	return &Executor{runtime: runtime}
}

// Run executes argv in containerID as the host user, from WorkDir. No shell is
// involved: every element reaches the process as one argument.
func (e *Executor) Run(ctx context.Context, containerID string, argv []string) (*ExecResult, error) {
	log := logger.FromContext(ctx).With("container_id", containerID)
	start := time.Now()

	uidGid, err := hostUser()
	if err != nil {
		return nil, err
	}

	created, err := e.runtime.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		User:         uidGid,
		WorkingDir:   WorkDir,
		Cmd:          argv,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating exec: %w", err)
	}

	// Tty stays off so stdcopy can split the multiplexed stream.
	attached, err := e.runtime.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attaching to exec: %w", err)
	}
	defer attached.Close()

	var stdout, stderr bytes.Buffer
	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, attached.Reader)
		copied <- err
	}()

	select {
	case err := <-copied:
		if err != nil {
			return nil, fmt.Errorf("reading exec output: %w", err)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	inspect, err := e.runtime.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("inspecting exec: %w", err)
	}

	res := &ExecResult{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: inspect.ExitCode,
		Duration: time.Since(start),
	}
	log.Debug("exec finished", "argv", argv, "exit_code", res.ExitCode, "duration", res.Duration)
	return res, nil
}
