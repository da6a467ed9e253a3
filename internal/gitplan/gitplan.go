// Package gitplan implements the scoped worktree pattern used to read and
// mutate the scriptorium/plan branch: every operation checks out the plan
// branch into a throwaway worktree, does its work, commits if anything
// changed, and removes the worktree on every exit path.
package gitplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/git"
	"github.com/re-cinq/scriptorium/internal/scerrors"
)

// PlanBranch is the name of the branch that stores spec, areas, tickets and
// the merge queue. It is never checked out in the main working copy.
const PlanBranch = "scriptorium/plan"

// decisionsLogPath is the audit trail file appended to on every tick-level
// state transition, one JSON object per line, recording why a ticket moved.
const decisionsLogPath = "decisions/log.jsonl"

// Store scopes every plan mutation to a repo's scriptorium/plan branch.
type Store struct {
	repo *git.Repo
}

// New returns a Store for the repository rooted at repoDir.
func New(repoDir string) *Store {
	return &Store{repo: git.NewRepo(repoDir)}
}

// scratchDir creates a unique, not-yet-existing directory under the repo's
// .scriptorium/plan-scratch directory to host a scoped worktree.
func (s *Store) scratchDir() (string, error) {
	root := fileutil.ScriptoriumSubdir(s.repo.Dir, "plan-scratch")
	if err := fileutil.EnsureDir(root); err != nil {
		return "", err
	}
	return filepath.Join(root, uuid.NewString()), nil
}

// withWorktree checks out PlanBranch into a scoped worktree, invokes fn with
// a Repo rooted there, and always removes the worktree afterward — whether
// fn returned an error or not.
func (s *Store) withWorktree(fn func(wt *git.Repo) error) error {
	if !s.repo.BranchExists(PlanBranch) {
		return scerrors.ErrPlanBranchMissing
	}

	path, err := s.scratchDir()
	if err != nil {
		return err
	}
	if err := s.repo.CreateWorktree(path, PlanBranch); err != nil {
		return fmt.Errorf("checking out %s: %w", PlanBranch, err)
	}
	defer func() {
		_ = s.repo.RemoveWorktree(path)
		_ = os.RemoveAll(path)
	}()

	wt := git.NewRepo(path)
	wt.EnsureIdentity()
	return fn(wt)
}

// ReadFile returns the contents of path as committed on the plan branch.
// path is relative to the plan branch root, e.g. "spec.md" or
// "tickets/open/0007-foo.md".
func (s *Store) ReadFile(path string) (string, error) {
	if !s.repo.BranchExists(PlanBranch) {
		return "", scerrors.ErrPlanBranchMissing
	}
	return s.repo.Show(PlanBranch, path)
}

// Exists reports whether path exists in the plan branch's tree.
func (s *Store) Exists(path string) (bool, error) {
	files, err := s.ListTree("")
	if err != nil {
		return false, err
	}
	for _, f := range files {
		if f == path {
			return true, nil
		}
	}
	return false, nil
}

// ListTree lists every file path under prefix (pass "" for the whole plan
// tree), sorted lexicographically.
func (s *Store) ListTree(prefix string) ([]string, error) {
	if !s.repo.BranchExists(PlanBranch) {
		return nil, scerrors.ErrPlanBranchMissing
	}
	files, err := s.repo.LsTreeFiles(PlanBranch, prefix)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ListMarkdown lists every ".md" file directly under dir (a slash-terminated
// directory prefix such as "tickets/open/"), sorted lexicographically. Each
// entry is the plan-relative path, e.g. "tickets/open/0007-foo.md".
// Non-markdown files and deeper nesting are ignored.
func (s *Store) ListMarkdown(dir string) ([]string, error) {
	all, err := s.ListTree(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range all {
		rest := strings.TrimPrefix(f, dir)
		if rest == f {
			continue
		}
		if strings.Contains(rest, "/") {
			continue
		}
		if !strings.HasSuffix(rest, ".md") {
			continue
		}
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// WriteAndCommit writes files (path -> content, paths relative to the plan
// root) into a scoped plan worktree and commits them with message. If the
// write produces no diff against the current plan HEAD, no commit is made
// and WriteAndCommit returns (false, nil) — invariant P-series callers rely
// on the plan branch never growing empty commits.
func (s *Store) WriteAndCommit(files map[string]string, message string) (bool, error) {
	var committed bool
	err := s.withWorktree(func(wt *git.Repo) error {
		for rel, content := range files {
			full := filepath.Join(wt.Dir, rel)
			if err := fileutil.EnsureDir(filepath.Dir(full)); err != nil {
				return err
			}
			if err := os.WriteFile(full, []byte(content), 0644); err != nil {
				return err
			}
		}
		ok, err := wt.CommitIfChanged(message)
		if err != nil {
			return err
		}
		if ok {
			// Worktree commits land on PlanBranch directly since the
			// worktree's HEAD *is* scriptorium/plan; nothing further to push.
			committed = true
		}
		return nil
	})
	return committed, err
}

// ApplyTransition writes each path in writes and deletes each path in
// removes within a single scoped plan worktree, then commits once. This is
// the building block for ticket lifecycle transitions that must move a
// ticket between state directories and rewrite its body atomically (e.g.
// open/0007-foo.md -> in-progress/0007-foo.md with a new **Worktree:**
// line), matching invariant Q2/Q3's single-commit requirement.
func (s *Store) ApplyTransition(writes map[string]string, removes []string, message string) (bool, error) {
	var committed bool
	err := s.withWorktree(func(wt *git.Repo) error {
		for _, rel := range removes {
			full := filepath.Join(wt.Dir, rel)
			if err := os.RemoveAll(full); err != nil {
				return err
			}
		}
		for rel, content := range writes {
			full := filepath.Join(wt.Dir, rel)
			if err := fileutil.EnsureDir(filepath.Dir(full)); err != nil {
				return err
			}
			if err := os.WriteFile(full, []byte(content), 0644); err != nil {
				return err
			}
		}
		ok, err := wt.CommitIfChanged(message)
		if err != nil {
			return err
		}
		committed = ok
		return nil
	})
	return committed, err
}

// RemovePaths deletes paths (relative to the plan root) in a scoped plan
// worktree and commits the removal. Returns (false, nil) if none of the
// paths existed.
func (s *Store) RemovePaths(paths []string, message string) (bool, error) {
	var committed bool
	err := s.withWorktree(func(wt *git.Repo) error {
		for _, rel := range paths {
			full := filepath.Join(wt.Dir, rel)
			if err := os.RemoveAll(full); err != nil {
				return err
			}
		}
		ok, err := wt.CommitIfChanged(message)
		if err != nil {
			return err
		}
		committed = ok
		return nil
	})
	return committed, err
}

// MovePaths renames each key of moves (old path, relative to plan root) to
// its value (new path) in a scoped plan worktree, then commits. Used for
// ticket lifecycle transitions (open -> in-progress -> done).
func (s *Store) MovePaths(moves map[string]string, message string) (bool, error) {
	var committed bool
	err := s.withWorktree(func(wt *git.Repo) error {
		for oldRel, newRel := range moves {
			oldFull := filepath.Join(wt.Dir, oldRel)
			newFull := filepath.Join(wt.Dir, newRel)
			if err := fileutil.EnsureDir(filepath.Dir(newFull)); err != nil {
				return err
			}
			if err := os.Rename(oldFull, newFull); err != nil {
				return err
			}
		}
		ok, err := wt.CommitIfChanged(message)
		if err != nil {
			return err
		}
		committed = ok
		return nil
	})
	return committed, err
}

// HeadCommit returns the current tip commit of the plan branch.
func (s *Store) HeadCommit() (string, error) {
	if !s.repo.BranchExists(PlanBranch) {
		return "", scerrors.ErrPlanBranchMissing
	}
	return s.repo.HeadCommit(PlanBranch)
}

// DecisionRecord is one audit-trail entry describing a tick-level state
// transition (a ticket assigned, reopened, or merged).
type DecisionRecord struct {
	Tick   int    `json:"tick"`
	Phase  string `json:"phase"`
	Detail string `json:"detail"`
}

// AppendDecision appends one JSON line to decisions/log.jsonl on the plan
// branch, timestamped at write time, and commits it. This is additive audit
// trail, not a new invariant — callers treat a failure here as non-fatal.
func (s *Store) AppendDecision(rec DecisionRecord) error {
	line, err := json.Marshal(struct {
		Timestamp string `json:"ts"`
		Tick      int    `json:"tick"`
		Phase     string `json:"phase"`
		Detail    string `json:"detail"`
	}{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Tick:      rec.Tick,
		Phase:     rec.Phase,
		Detail:    rec.Detail,
	})
	if err != nil {
		return err
	}

	existing, err := s.ReadFile(decisionsLogPath)
	if err != nil {
		if errors.Is(err, scerrors.ErrPlanBranchMissing) {
			return err
		}
		existing = ""
	}
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		existing += "\n"
	}

	commitMsg := fmt.Sprintf("scriptorium: record decision (%s)", rec.Phase)
	_, err = s.WriteAndCommit(map[string]string{decisionsLogPath: existing + string(line) + "\n"}, commitMsg)
	return err
}
