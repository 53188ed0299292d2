package backup

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"workflow-backup/internal/config"
	"workflow-backup/internal/display"
	"workflow-backup/internal/runtime"
)

// statfs is swappable in tests.
var statfs = unix.Statfs

// Preflight verifies the environment before any live data is touched:
// the runtime answers, both service containers are running under their
// exact names, and the destination has the minimum free space.
func Preflight(ctx context.Context, cfg *config.Config, rt runtime.Runtime) error {
	if err := rt.Ping(ctx); err != nil {
		return NewPreflightError("container runtime is not reachable", err)
	}

	for _, name := range []string{cfg.App.Container, cfg.Database.Container} {
		running, err := rt.ContainerRunning(ctx, name)
		if err != nil {
			return WrapExternal(ErrorKindPreflight, "failed to query container "+name, err)
		}
		if !running {
			return NewPreflightError(fmt.Sprintf("required container %q is not running", name), nil)
		}
	}

	free, err := freeSpace(cfg.Backup.Dir)
	if err != nil {
		return NewPreflightError("failed to check free space on backup destination", err)
	}
	if free < cfg.Backup.MinFreeSpace {
		return NewPreflightError(fmt.Sprintf("backup destination has %s free, need at least %s",
			display.HumanSize(free), display.HumanSize(cfg.Backup.MinFreeSpace)), nil)
	}
	return nil
}

func freeSpace(dir string) (int64, error) {
	var st unix.Statfs_t
	if err := statfs(dir, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
