package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"workflow-backup/internal/logging"
)

// DockerRuntime drives a docker-compatible CLI (docker, podman). Every
// invocation runs under the configured deadline; an expired deadline is
// reported as context.DeadlineExceeded so callers can surface a distinct
// timeout error.
type DockerRuntime struct {
	binary  string
	timeout time.Duration
	logger  *logging.Logger
}

// NewDockerRuntime creates a runtime shelling out to the given binary.
func NewDockerRuntime(binary string, timeout time.Duration, logger *logging.Logger) *DockerRuntime {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &DockerRuntime{binary: binary, timeout: timeout, logger: logger}
}

func (r *DockerRuntime) run(ctx context.Context, stdin io.Reader, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.binary, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	r.logger.LogExternalCall(r.binary+" "+strings.Join(args, " "), time.Since(start), err)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %s: %w", r.binary, args[0], context.DeadlineExceeded)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", r.binary, args[0], msg)
	}
	return stdout.Bytes(), nil
}

// Ping verifies the runtime daemon answers.
func (r *DockerRuntime) Ping(ctx context.Context) error {
	_, err := r.run(ctx, nil, "version", "--format", "{{.Server.Version}}")
	return err
}

// ContainerRunning checks for a running container by exact name match.
func (r *DockerRuntime) ContainerRunning(ctx context.Context, name string) (bool, error) {
	out, err := r.run(ctx, nil, "ps", "--filter", "name=^"+name+"$", "--format", "{{.Names}}")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == name {
			return true, nil
		}
	}
	return false, nil
}

// Exec runs a command inside a container and returns its stdout.
func (r *DockerRuntime) Exec(ctx context.Context, container string, cmd ...string) ([]byte, error) {
	args := append([]string{"exec", container}, cmd...)
	return r.run(ctx, nil, args...)
}

// ExecInput runs a command inside a container streaming input to stdin.
func (r *DockerRuntime) ExecInput(ctx context.Context, container string, input io.Reader, cmd ...string) error {
	args := append([]string{"exec", "-i", container}, cmd...)
	_, err := r.run(ctx, input, args...)
	return err
}

// CopyFrom copies a file out of the container.
func (r *DockerRuntime) CopyFrom(ctx context.Context, container, src, dst string) error {
	_, err := r.run(ctx, nil, "cp", container+":"+src, dst)
	return err
}

// CopyTo copies a host file into the container.
func (r *DockerRuntime) CopyTo(ctx context.Context, src, container, dst string) error {
	_, err := r.run(ctx, nil, "cp", src, container+":"+dst)
	return err
}

// Status returns the status line of a container (state and uptime).
func (r *DockerRuntime) Status(ctx context.Context, name string) (string, error) {
	out, err := r.run(ctx, nil, "ps", "--filter", "name=^"+name+"$", "--format", "{{.Status}}")
	if err != nil {
		return "", err
	}
	status := strings.TrimSpace(string(out))
	if status == "" {
		return "", fmt.Errorf("container %s not found", name)
	}
	return status, nil
}

// Version returns the runtime server version.
func (r *DockerRuntime) Version(ctx context.Context) (string, error) {
	out, err := r.run(ctx, nil, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Restart restarts a container.
func (r *DockerRuntime) Restart(ctx context.Context, name string) error {
	_, err := r.run(ctx, nil, "restart", name)
	return err
}
