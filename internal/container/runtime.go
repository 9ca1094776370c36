// Package container adapts the Docker runtime behind the narrow interface
// the gatekeeper consumes: run-state by name plus daemon reachability.
package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/gatekeeper/internal/domain"
	"github.com/containerd/errdefs"
	"github.com/docker/docker/client"
)

const refreshDelay = 200 * time.Millisecond

// Runtime is the container-runtime surface the session controller depends
// on. The runtime itself (starting/stopping containers) stays external.
type Runtime interface {
	// Ping verifies the container daemon is reachable.
	Ping(ctx context.Context) error

	// EnsureRunning resolves the run-state of a named container. Returns
	// domain.ErrContainerNotFound or domain.ErrContainerNotRunning; a
	// non-running status is re-checked once after a short refresh to
	// tolerate stale state reported by the daemon.
	EnsureRunning(ctx context.Context, name string) error
}

// DockerRuntime implements Runtime using the Docker API.
type DockerRuntime struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewDockerRuntime creates a Docker-backed runtime adapter from the
// environment (DOCKER_HOST etc.).
func NewDockerRuntime(logger *slog.Logger) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DockerRuntime{cli: cli, logger: logger}, nil
}

// Ping verifies the Docker daemon is reachable.
func (r *DockerRuntime) Ping(ctx context.Context) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker daemon: %w", err)
	}
	return nil
}

// EnsureRunning resolves the run-state of a named container.
func (r *DockerRuntime) EnsureRunning(ctx context.Context, name string) error {
	status, err := r.inspectStatus(ctx, name)
	if err != nil {
		return err
	}
	if status == "running" {
		return nil
	}

	// The daemon can briefly report a stale status; re-inspect once
	// before giving up.
	r.logger.Debug("container not running, re-checking", "container", name, "status", status)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(refreshDelay):
	}

	status, err = r.inspectStatus(ctx, name)
	if err != nil {
		return err
	}
	if status != "running" {
		return fmt.Errorf("%w: %s (status=%s)", domain.ErrContainerNotRunning, name, status)
	}
	return nil
}

func (r *DockerRuntime) inspectStatus(ctx context.Context, name string) (string, error) {
	inspect, err := r.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrContainerNotFound, name)
		}
		return "", fmt.Errorf("inspect container %s: %w", name, err)
	}
	return inspect.State.Status, nil
}
