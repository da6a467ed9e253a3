package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ScriptoriumSubdir builds a path to a subdirectory within a repo's
// .scriptorium directory (worktrees, manifests, run lock).
func ScriptoriumSubdir(repoDir, subdir string) string {
	return filepath.Join(repoDir, ".scriptorium", subdir)
}

// ScriptoriumDir returns the .scriptorium directory path for a repository.
func ScriptoriumDir(repoDir string) string {
	return filepath.Join(repoDir, ".scriptorium")
}

// WorktreePath returns the deterministic worktree path for a ticket id,
// e.g. <repo>/.scriptorium/worktrees/0007.
func WorktreePath(repoDir string, ticketID int) string {
	return ScriptoriumSubdir(repoDir, filepath.Join("worktrees", fmt.Sprintf("%04d", ticketID)))
}

// ManifestPath returns the path to the worktree manifest cache.
func ManifestPath(repoDir string) string {
	return ScriptoriumSubdir(repoDir, "worktrees.yaml")
}

// LogRoot returns the root directory under which per-ticket agent logs are
// written: /tmp/scriptorium/<project>/agents.
func LogRoot(project string) string {
	return filepath.Join(os.TempDir(), "scriptorium", project, "agents")
}

// RunLogPath returns the path of the session log file for this run:
// /tmp/scriptorium/<project>/run_<UTC>.log.
func RunLogPath(project string, start time.Time) string {
	ts := start.UTC().Format("20060102T150405Z")
	return filepath.Join(os.TempDir(), "scriptorium", project, fmt.Sprintf("run_%s.log", ts))
}
