// Package runtime abstracts the container runtime. The interface is kept
// narrow so the docker CLI implementation stays trivially replaceable by
// the in-memory fake used in tests.
package runtime

import (
	"context"
	"io"
)

// Runtime is the set of container operations the backup pipeline needs.
type Runtime interface {
	// Ping verifies the runtime daemon is reachable.
	Ping(ctx context.Context) error

	// ContainerRunning reports whether a container with exactly this name
	// is running.
	ContainerRunning(ctx context.Context, name string) (bool, error)

	// Exec runs a command inside a named container and returns its stdout.
	Exec(ctx context.Context, container string, cmd ...string) ([]byte, error)

	// ExecInput runs a command inside a named container feeding input to
	// its stdin.
	ExecInput(ctx context.Context, container string, input io.Reader, cmd ...string) error

	// CopyFrom copies a file out of a container to a host path.
	CopyFrom(ctx context.Context, container, src, dst string) error

	// CopyTo copies a host file into a container.
	CopyTo(ctx context.Context, src, container, dst string) error

	// Status returns the human-readable status line of a container,
	// including its uptime.
	Status(ctx context.Context, name string) (string, error)

	// Version returns the runtime version string.
	Version(ctx context.Context) (string, error)

	// Restart restarts a named container.
	Restart(ctx context.Context, name string) error
}
