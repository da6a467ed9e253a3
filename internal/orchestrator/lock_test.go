package orchestrator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireRunLockExclusive(t *testing.T) {
	repoDir := t.TempDir()

	unlock, err := AcquireRunLock(repoDir)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := AcquireRunLock(repoDir); !IsLockHeld(err) {
		t.Fatalf("expected second acquire to report the lock held, got %v", err)
	}

	if !IsRunLocked(repoDir) {
		t.Fatal("expected IsRunLocked to report true while held")
	}

	unlock()

	if IsRunLocked(repoDir) {
		t.Fatal("expected IsRunLocked to report false after unlock")
	}

	unlock2, err := AcquireRunLock(repoDir)
	if err != nil {
		t.Fatalf("re-acquire after unlock: %v", err)
	}
	unlock2()
}

func TestIsRunLockedFalseWhenNeverAcquired(t *testing.T) {
	repoDir := t.TempDir()
	if IsRunLocked(repoDir) {
		t.Fatal("expected no lock to be held in a fresh repo")
	}
	if _, err := os.Stat(filepath.Join(repoDir, ".scriptorium", "run.lock")); err != nil {
		t.Fatalf("expected IsRunLocked to still create the lock file: %v", err)
	}
}
