package pool

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// MockRuntime is a ContainerRuntime test double that records what it was asked to do.
type MockRuntime struct {
	PingErr         error
	ImagePullErr    error
	ImagePullReader io.ReadCloser
	InspectResp     image.InspectResponse
	InspectErr      error
	CreateResp      container.CreateResponse
	CreateErr       error
	StartErr        error
	ListResp        []container.Summary
	ListErr         error
	RemoveErr       error
	ExecCreateResp  container.ExecCreateResponse
	ExecCreateErr   error
	ExecAttachResp  types.HijackedResponse
	ExecAttachErr   error
	ExecInspectResp container.ExecInspect
	ExecInspectErr  error

	mu        sync.Mutex
	Pulled    []image.PullOptions
	Created   []*container.Config
	Hosts     []*container.HostConfig
	Platforms []*v1.Platform
	Started   []string
	Removed   []string
	Listed    []container.ListOptions
	Execs     []container.ExecOptions
}

func (m *MockRuntime) Ping(_ context.Context) error {
	return m.PingErr
}

func (m *MockRuntime) ImagePull(_ context.Context, _ string, options image.PullOptions) (io.ReadCloser, error) {
	m.mu.Lock()
	m.Pulled = append(m.Pulled, options)
	m.mu.Unlock()
	return m.ImagePullReader, m.ImagePullErr
}

func (m *MockRuntime) ImageInspect(_ context.Context, _ string) (image.InspectResponse, error) {
	return m.InspectResp, m.InspectErr
}

func (m *MockRuntime) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, platform *v1.Platform, _ string) (container.CreateResponse, error) {
	m.mu.Lock()
	m.Created = append(m.Created, config)
	m.Hosts = append(m.Hosts, hostConfig)
	m.Platforms = append(m.Platforms, platform)
	m.mu.Unlock()
	return m.CreateResp, m.CreateErr
}

func (m *MockRuntime) ContainerStart(_ context.Context, containerID string, _ container.StartOptions) error {
	m.mu.Lock()
	m.Started = append(m.Started, containerID)
	m.mu.Unlock()
	return m.StartErr
}

func (m *MockRuntime) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	m.mu.Lock()
	m.Listed = append(m.Listed, options)
	m.mu.Unlock()
	return m.ListResp, m.ListErr
}

func (m *MockRuntime) ContainerRemove(_ context.Context, containerID string, _ container.RemoveOptions) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.mu.Lock()
	m.Removed = append(m.Removed, containerID)
	m.mu.Unlock()
	return nil
}

func (m *MockRuntime) ContainerExecCreate(_ context.Context, _ string, config container.ExecOptions) (container.ExecCreateResponse, error) {
	m.mu.Lock()
	m.Execs = append(m.Execs, config)
	m.mu.Unlock()
	return m.ExecCreateResp, m.ExecCreateErr
}

func (m *MockRuntime) ContainerExecAttach(_ context.Context, _ string, _ container.ExecAttachOptions) (types.HijackedResponse, error) {
	return m.ExecAttachResp, m.ExecAttachErr
}

func (m *MockRuntime) ContainerExecInspect(_ context.Context, _ string) (container.ExecInspect, error) {
	return m.ExecInspectResp, m.ExecInspectErr
}

// MockPool stands in for Pool in runner and command tests.
type MockPool struct {
	ContainerID string
	Err         error
	PullErr     error
	// ImageEntrypoint is prepended by Argv when a Command has no override.
	ImageEntrypoint []string

	mu     sync.Mutex
	Pulled []string
	Images []string
}

func (m *MockPool) Pull(_ context.Context, img string) error {
	m.mu.Lock()
	m.Pulled = append(m.Pulled, img)
	m.mu.Unlock()
	return m.PullErr
}

func (m *MockPool) Argv(_ context.Context, c Command, extra []string) ([]string, error) {
	args := append(append([]string{}, c.Args...), extra...)
	if c.Entrypoint != "" {
		return append([]string{c.Entrypoint}, args...), nil
	}
	return append(append([]string{}, m.ImageEntrypoint...), args...), nil
}

func (m *MockPool) GetOrCreate(_ context.Context, img, _ string) (string, error) {
	m.mu.Lock()
	m.Images = append(m.Images, img)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.ContainerID, nil
}

func (m *MockPool) CleanupStale(_ context.Context, _ time.Duration) (int, error) {
	return 0, nil
}

func (m *MockPool) CleanupAll(_ context.Context) (int, error) {
	return 0, nil
}

// MockExecutor stands in for Executor, returning Result for every call.
type MockExecutor struct {
	Result *ExecResult
	Err    error
	Argvs  [][]string
}

func (m *MockExecutor) Run(_ context.Context, _ string, argv []string) (*ExecResult, error) {
	m.Argvs = append(m.Argvs, argv)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}
