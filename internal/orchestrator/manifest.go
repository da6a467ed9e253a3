package orchestrator

import (
	"os"
	"path"
	"time"

	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

// WorktreeEntry records one ticket's worktree as a derived cache entry.
// This file is never authoritative — it is fully reconstructible by
// scanning tickets/in-progress/*.md on the plan branch (P12) — but lets
// `scriptorium worktrees` answer without reading the plan branch.
type WorktreeEntry struct {
	TicketID int    `yaml:"ticketId"`
	Branch   string `yaml:"branch"`
	Worktree string `yaml:"worktree"`
	AreaID   string `yaml:"areaId,omitempty"`
	Attached string `yaml:"attachedAt"`
}

// Manifest is the root of the worktree manifest cache.
type Manifest struct {
	UpdatedAt string          `yaml:"updatedAt"`
	Entries   []WorktreeEntry `yaml:"entries"`
}

// WriteManifest overwrites the cache file with entries, stamped with now.
func WriteManifest(repoDir string, entries []WorktreeEntry, now time.Time) error {
	path := fileutil.ManifestPath(repoDir)
	if err := fileutil.EnsureDir(fileutil.ScriptoriumDir(repoDir)); err != nil {
		return err
	}
	m := Manifest{UpdatedAt: now.UTC().Format(time.RFC3339), Entries: entries}
	return fileutil.WriteYAML(path, m)
}

// ReadManifest loads the cache file, returning a zero Manifest if it
// doesn't exist yet (e.g. before the first tick has run).
func ReadManifest(repoDir string) (Manifest, error) {
	var m Manifest
	path := fileutil.ManifestPath(repoDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return m, nil
	}
	err := fileutil.ReadYAML(path, &m)
	return m, err
}

// DeriveManifestFromPlan reconstructs the worktree manifest directly from
// tickets/in-progress/*.md on the plan branch, bypassing the cache file
// entirely (P12: the cache is never a second source of truth). Used when
// the cache is missing or has no entries; it does not write the cache back.
func DeriveManifestFromPlan(repoDir string, plan *gitplan.Store) (Manifest, error) {
	paths, err := plan.ListMarkdown("tickets/in-progress/")
	if err != nil {
		return Manifest{}, err
	}

	entries := make([]WorktreeEntry, 0, len(paths))
	for _, p := range paths {
		body, err := plan.ReadFile(p)
		if err != nil {
			return Manifest{}, err
		}
		worktree := ticket.ParseWorktree(body)
		if worktree == "" {
			continue
		}
		id, _, err := splitFilenameID(path.Base(p))
		if err != nil {
			continue
		}
		entries = append(entries, WorktreeEntry{
			TicketID: id,
			Branch:   ticket.BranchName(id),
			Worktree: worktree,
			AreaID:   ticket.ParseAreaID(body),
		})
	}
	return Manifest{Entries: entries}, nil
}
