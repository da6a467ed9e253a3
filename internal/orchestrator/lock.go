package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/re-cinq/scriptorium/internal/fileutil"
)

// errLockHeld is returned when another scriptorium run already holds the lock.
var errLockHeld = errors.New("another scriptorium run is already in progress")

// IsLockHeld reports whether err indicates the run lock is already held.
func IsLockHeld(err error) bool {
	return errors.Is(err, errLockHeld)
}

func lockFilePath(repoDir string) string {
	return filepath.Join(fileutil.ScriptoriumDir(repoDir), "run.lock")
}

// AcquireRunLock takes an exclusive, non-blocking file lock so only one
// orchestrator process drives a given repository's tick loop at a time —
// the plan branch's single-writer assumption (§5) depends on it. Returns an
// unlock function; the lock is also released if the process exits.
func AcquireRunLock(repoDir string) (unlock func(), err error) {
	lockPath := lockFilePath(repoDir)
	if err := fileutil.EnsureDir(filepath.Dir(lockPath)); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w", errLockHeld)
	}

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
	}, nil
}

// IsRunLocked reports whether a run lock is currently held for repoDir,
// without taking it. Used by read-only commands (statusline) that want to
// show whether the daemon is active.
func IsRunLocked(repoDir string) bool {
	lockPath := lockFilePath(repoDir)
	if err := fileutil.EnsureDir(filepath.Dir(lockPath)); err != nil {
		return false
	}
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return true
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return false
}
