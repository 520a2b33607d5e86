package pool

import (
	"context"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// DockerRuntime implements ContainerRuntime on top of the Docker SDK client.
type DockerRuntime struct {
	client client.APIClient
}

// NewDockerRuntime connects to the daemon named by DOCKER_HOST and friends,
// negotiating the API version.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return &DockerRuntime{client: cli}, nil
}

// Close releases the client's transport.
func (d *DockerRuntime) Close() error {
	return d.client.Close()
}

func (d *DockerRuntime) Ping(ctx context.Context) error {
	_, err := d.client.Ping(ctx)
	return err
}

func (d *DockerRuntime) ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error) {
	return d.client.ImagePull(ctx, ref, options)
}

func (d *DockerRuntime) ImageInspect(ctx context.Context, ref string) (image.InspectResponse, error) {
	return d.client.ImageInspect(ctx, ref)
}

func (d *DockerRuntime) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *v1.Platform, name string) (container.CreateResponse, error) {
	return d.client.ContainerCreate(ctx, config, hostConfig, networkingConfig, platform, name)
}

func (d *DockerRuntime) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	return d.client.ContainerStart(ctx, containerID, options)
}

func (d *DockerRuntime) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	return d.client.ContainerList(ctx, options)
}

func (d *DockerRuntime) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	return d.client.ContainerRemove(ctx, containerID, options)
}

func (d *DockerRuntime) ContainerExecCreate(ctx context.Context, ctr string, config container.ExecOptions) (container.ExecCreateResponse, error) {
	return d.client.ContainerExecCreate(ctx, ctr, config)
}

func (d *DockerRuntime) ContainerExecAttach(ctx context.Context, execID string, config container.ExecAttachOptions) (types.HijackedResponse, error) {
	return d.client.ContainerExecAttach(ctx, execID, config)
}

func (d *DockerRuntime) ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error) {
	return d.client.ContainerExecInspect(ctx, execID)
}
