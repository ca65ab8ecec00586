package container

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"time"

	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

// DockerRuntime implements Runtime on top of the Docker Engine API.
type DockerRuntime struct {
	cli    client.APIClient
	logger zerolog.Logger
}

// NewDockerRuntime connects to the Docker daemon configured by the DOCKER_* environment variables.
func NewDockerRuntime(logger zerolog.Logger) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewDockerRuntimeWithClient(cli, logger), nil
}

// NewDockerRuntimeWithClient wraps an existing Docker API client.
func NewDockerRuntimeWithClient(cli client.APIClient, logger zerolog.Logger) *DockerRuntime {
	return &DockerRuntime{cli: cli, logger: logger}
}

// Close releases the underlying Docker client.
func (d *DockerRuntime) Close() error {
	return d.cli.Close()
}

// Exec runs cmd inside the container, collecting stdout and stderr separately.
func (d *DockerRuntime) Exec(ctx context.Context, name string, cmd []string) (ExecResult, error) {
	start := time.Now()

	created, err := d.cli.ContainerExecCreate(ctx, name, dockercontainer.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to create exec in %s: %w", name, err)
	}

	attach, err := d.cli.ContainerExecAttach(ctx, created.ID, dockercontainer.ExecAttachOptions{})
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to attach to exec in %s: %w", name, err)
	}
	defer attach.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attach.Reader); err != nil {
		return ExecResult{}, fmt.Errorf("failed to read exec output in %s: %w", name, err)
	}

	inspect, err := d.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return ExecResult{}, fmt.Errorf("failed to inspect exec in %s: %w", name, err)
	}

	d.logger.Debug().
		Str("container", name).
		Strs("cmd", cmd).
		Int("exit_code", inspect.ExitCode).
		Dur("took", time.Since(start)).
		Msg("Exec completed")

	return ExecResult{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// ReadFile cats the file inside the container.
func (d *DockerRuntime) ReadFile(ctx context.Context, name, filePath string) ([]byte, error) {
	res, err := MustExec(ctx, d, name, []string{"cat", filePath})
	if err != nil {
		return nil, err
	}
	return []byte(res.Stdout), nil
}

// WriteFile copies data into the container as a single-entry tar archive.
func (d *DockerRuntime) WriteFile(ctx context.Context, name, filePath string, data []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name:    path.Base(filePath),
		Mode:    0600,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write tar body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to close tar archive: %w", err)
	}

	err := d.cli.CopyToContainer(ctx, name, path.Dir(filePath), &buf, dockercontainer.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("failed to copy %s into %s: %w", filePath, name, err)
	}
	return nil
}

// ContainerIP returns the first non-empty address over the container's networks,
// in network-name order. A container that does not exist yet yields ErrNoAddress.
func (d *DockerRuntime) ContainerIP(ctx context.Context, name string) (string, error) {
	info, err := d.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s not found", ErrNoAddress, name)
		}
		return "", fmt.Errorf("failed to inspect %s: %w", name, err)
	}
	if info.NetworkSettings == nil {
		return "", fmt.Errorf("%w: %s", ErrNoAddress, name)
	}

	networks := make([]string, 0, len(info.NetworkSettings.Networks))
	for network := range info.NetworkSettings.Networks {
		networks = append(networks, network)
	}
	sort.Strings(networks)

	for _, network := range networks {
		endpoint := info.NetworkSettings.Networks[network]
		if endpoint != nil && endpoint.IPAddress != "" {
			return endpoint.IPAddress, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoAddress, name)
}

// Restart restarts the container with the daemon's default stop timeout.
func (d *DockerRuntime) Restart(ctx context.Context, name string) error {
	if err := d.cli.ContainerRestart(ctx, name, dockercontainer.StopOptions{}); err != nil {
		return fmt.Errorf("failed to restart %s: %w", name, err)
	}
	return nil
}
