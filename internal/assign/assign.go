// Package assign implements the assignment step (C6): selecting the oldest
// open ticket, materializing its worktree and branch, and enqueueing a
// merge-queue request once the agent signals completion.
package assign

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/git"
	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/scerrors"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

// Assignment is the result of assigning a ticket: enough context to run the
// agent and, later, to enqueue the merge request.
type Assignment struct {
	TicketID         int
	Slug             string
	Branch           string
	Worktree         string
	InProgressTicket string // plan-relative path of the moved ticket file
	AreaID           string
}

// AssignOldestOpenTicket picks the lexicographically smallest file in
// tickets/open/, fails with ErrNoTicketsAvailable if none exist, creates
// the ticket branch and worktree in repo, and moves the ticket file to
// in-progress with a **Worktree:** line recorded, all on the plan branch.
func AssignOldestOpenTicket(repoDir string, plan *gitplan.Store) (Assignment, error) {
	openFiles, err := plan.ListMarkdown("tickets/open/")
	if err != nil {
		return Assignment{}, err
	}
	if len(openFiles) == 0 {
		return Assignment{}, scerrors.ErrNoTicketsAvailable
	}

	chosen := openFiles[0]
	body, err := plan.ReadFile(chosen)
	if err != nil {
		return Assignment{}, err
	}

	filename := path.Base(chosen)
	id, slug, err := splitTicketFilename(filename)
	if err != nil {
		return Assignment{}, err
	}
	areaID := ticket.ParseAreaID(body)

	repo := git.NewRepo(repoDir)
	branch := ticket.BranchName(id)
	if err := repo.CreateBranch(branch, "master"); err != nil {
		return Assignment{}, err
	}
	worktreePath := fileutil.WorktreePath(repoDir, id)
	if err := fileutil.EnsureDir(path.Dir(worktreePath)); err != nil {
		return Assignment{}, err
	}
	if err := repo.CreateWorktree(worktreePath, branch); err != nil {
		return Assignment{}, err
	}

	newBody := ticket.SetWorktree(body, worktreePath)
	newPath := ticket.TicketPath(ticket.StateInProgress, id, slug)

	commitMsg := fmt.Sprintf("scriptorium: assign ticket %s to %s", ticket.FormatTicketID(id), branch)
	writes := map[string]string{newPath: newBody}
	removes := []string{chosen}
	if _, err := plan.ApplyTransition(writes, removes, commitMsg); err != nil {
		return Assignment{}, err
	}

	return Assignment{
		TicketID:         id,
		Slug:             slug,
		Branch:           branch,
		Worktree:         worktreePath,
		InProgressTicket: newPath,
		AreaID:           areaID,
	}, nil
}

// EnqueueMergeRequest writes the pending merge-queue entry for a completed
// assignment and commits it on the plan branch.
func EnqueueMergeRequest(plan *gitplan.Store, a Assignment, summary string) error {
	entryPath := path.Join("queue", "merge", "pending", ticket.PendingEntryFilename(a.TicketID))
	body := fmt.Sprintf(
		"- Ticket: %s\n- Branch: %s\n- Worktree: %s\n- Summary: %s\n- Enqueued: %s\n",
		ticket.FormatTicketID(a.TicketID), a.Branch, a.Worktree, summary, time.Now().UTC().Format(time.RFC3339),
	)
	commitMsg := fmt.Sprintf("scriptorium: enqueue merge for ticket %s", ticket.FormatTicketID(a.TicketID))
	_, err := plan.WriteAndCommit(map[string]string{entryPath: body}, commitMsg)
	return err
}

func splitTicketFilename(filename string) (id int, slug string, err error) {
	stem := strings.TrimSuffix(filename, ".md")
	idx := strings.IndexByte(stem, '-')
	if idx < 0 {
		return 0, "", fmt.Errorf("malformed ticket filename %q: no hyphen", filename)
	}
	idStr, slugPart := stem[:idx], stem[idx+1:]
	n, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, "", fmt.Errorf("malformed ticket filename %q: non-numeric id %q", filename, idStr)
	}
	return n, slugPart, nil
}
