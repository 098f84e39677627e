package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SandboxRunner executes commands inside a throwaway container with no
// network access and bounded CPU/memory. Used when the operator wants live
// commands isolated from the host.
type SandboxRunner struct {
	client *client.Client
	image  string
	limits sandboxLimits
}

func NewSandboxRunner(host, image, cpuLimit, memLimit string) (*SandboxRunner, error) {
	limits, err := parseSandboxLimits(cpuLimit, memLimit)
	if err != nil {
		return nil, fmt.Errorf("executor.NewSandboxRunner: %w", err)
	}

	opts := []client.Opt{
		client.WithHost(host),
		client.WithAPIVersionNegotiation(),
	}

	c, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("executor.NewSandboxRunner: %w", err)
	}

	return &SandboxRunner{
		client: c,
		image:  image,
		limits: limits,
	}, nil
}

func (r *SandboxRunner) Run(ctx context.Context, command string) (string, string, *int, error) {
	cfg := &container.Config{
		Image: r.image,
		Cmd:   []string{"/bin/sh", "-c", command},
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   r.limits.memoryBytes,
			CPUQuota: r.limits.cpuQuota,
		},
		NetworkMode: "none",
	}

	name := "aegis-run-" + uuid.NewString()

	resp, err := r.client.ContainerCreate(ctx, cfg, hostCfg, &network.NetworkingConfig{}, nil, name)
	if err != nil {
		return "", "", nil, fmt.Errorf("executor.SandboxRunner.Run: create: %w", err)
	}
	defer r.remove(resp.ID)

	err = r.client.ContainerStart(ctx, resp.ID, container.StartOptions{})
	if err != nil {
		return "", "", nil, fmt.Errorf("executor.SandboxRunner.Run: start: %w", err)
	}

	exitCode, err := r.wait(ctx, resp.ID)
	if err != nil {
		// Deadline exceeded: kill the container, no exit code.
		return "", "", nil, fmt.Errorf("executor.SandboxRunner.Run: %w", err)
	}

	stdout, stderr, err := r.logs(ctx, resp.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("executor.SandboxRunner.Run: %w", err)
	}

	code := int(exitCode)
	return stdout, stderr, &code, nil
}

func (r *SandboxRunner) wait(ctx context.Context, containerID string) (int64, error) {
	waitCh, errCh := r.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)

	select {
	case result := <-waitCh:
		if result.Error != nil {
			return result.StatusCode, fmt.Errorf("wait: %s", result.Error.Message)
		}
		return result.StatusCode, nil
	case err := <-errCh:
		return -1, fmt.Errorf("wait: %w", err)
	case <-ctx.Done():
		return -1, fmt.Errorf("wait: %w", ctx.Err())
	}
}

func (r *SandboxRunner) logs(ctx context.Context, containerID string) (string, string, error) {
	reader, err := r.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("logs: %w", err)
	}
	defer reader.Close()

	var outBuf, errBuf bytes.Buffer
	_, err = stdcopy.StdCopy(&outBuf, &errBuf, reader)
	if err != nil && err != io.EOF {
		return "", "", fmt.Errorf("logs: demux: %w", err)
	}

	return outBuf.String(), errBuf.String(), nil
}

// remove cleans up the throwaway container. Runs with its own context so
// cleanup survives the caller's deadline.
func (r *SandboxRunner) remove(containerID string) {
	err := r.client.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true})
	if err != nil {
		log.Warn().Err(err).Str("container_id", containerID).Msg("executor: failed to remove sandbox container")
	}
}

// Close closes the Docker client.
func (r *SandboxRunner) Close() error {
	err := r.client.Close()
	if err != nil {
		return fmt.Errorf("executor.SandboxRunner.Close: %w", err)
	}
	return nil
}
