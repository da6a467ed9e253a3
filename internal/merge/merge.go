// Package merge implements the single-flight merge pipeline (C5): drain one
// pending merge-queue entry per call, gating on master health before and
// after merging, and reopening the ticket with a diagnostic failure section
// on any conflict or red build.
package merge

import (
	"fmt"
	"path"
	"strings"

	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/git"
	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/health"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

const activePath = "queue/merge/active.md"

// ProcessMergeQueue implements the seven-step procedure of spec.md §4.5.
// It returns (true, nil) if it consumed a tick processing an entry
// (regardless of success/failure), or (false, nil) if the queue was empty.
// tick identifies the calling orchestrator tick, recorded in the decisions
// audit trail — any number may be passed when called outside a tick loop
// (e.g. tests).
func ProcessMergeQueue(tick int, repoDir string, plan *gitplan.Store, checker *health.Checker) (bool, error) {
	pendingPath, err := pickPendingEntry(plan)
	if err != nil {
		return false, err
	}
	if pendingPath == "" {
		return false, nil
	}

	if _, err := plan.WriteAndCommit(map[string]string{activePath: pendingPath + "\n"},
		"scriptorium: mark merge queue entry active"); err != nil {
		return true, err
	}

	entryBody, err := plan.ReadFile(pendingPath)
	if err != nil {
		return true, err
	}
	entry, err := parsePendingEntry(entryBody)
	if err != nil {
		return true, err
	}

	// Step 3: master health gate.
	if res := checker.Run(); !res.Green {
		// Red master halts the queue: leave state as-is, consume the tick.
		return true, nil
	}

	repo := git.NewRepo(repoDir)
	ticketRepo := git.NewRepo(entry.Worktree)

	// Step 4: bring the ticket branch up to date with master.
	if err := ticketRepo.Merge("master", true); err != nil {
		ticketRepo.MergeAbort()
		return true, reopenFailed(tick, plan, pendingPath, entry, ticket.FailureConflict, err.Error())
	}

	// Step 5: merge the ticket branch into master.
	preMergeMaster, err := repo.HeadCommit("master")
	if err != nil {
		return true, err
	}
	if err := repo.Merge(entry.Branch, false); err != nil {
		repo.MergeAbort()
		return true, reopenFailed(tick, plan, pendingPath, entry, ticket.FailureConflict, err.Error())
	}

	// Step 6: post-merge health gate.
	if res := checker.Run(); !res.Green {
		_ = repo.ResetHard(preMergeMaster)
		return true, reopenFailed(tick, plan, pendingPath, entry, ticket.FailureHealth, res.Output)
	}

	warnOnOutOfScopeFiles(plan, repo, preMergeMaster, entry)

	// Step 7: success — move the ticket to done, clear the queue entry.
	return true, succeed(tick, plan, pendingPath, entry)
}

// warnOnOutOfScopeFiles logs (never blocks) when a merged ticket touched
// files outside its own area's declared **Paths:** ownership globs, if the
// area declared any. Purely a hygiene signal for the human reading logs.
func warnOnOutOfScopeFiles(plan *gitplan.Store, repo *git.Repo, preMergeMaster string, entry pendingEntry) {
	inProgressPath, err := inProgressTicketPath(plan, entry.TicketID)
	if err != nil {
		return
	}
	ticketBody, err := plan.ReadFile(inProgressPath)
	if err != nil {
		return
	}
	areaID := ticket.ParseAreaID(ticketBody)
	if areaID == "" {
		return
	}
	areaBody, err := plan.ReadFile("areas/" + areaID + ".md")
	if err != nil {
		return
	}
	patterns := ticket.ParseAreaPaths(areaBody)
	if len(patterns) == 0 {
		return
	}

	changed, err := repo.DiffNameOnly(preMergeMaster, "master")
	if err != nil || len(changed) == 0 {
		return
	}
	if outside := ticket.FilesOutsideOwnership(patterns, changed); len(outside) > 0 {
		fileutil.LogInfo("ticket %s touched files outside area %s ownership: %s",
			ticket.FormatTicketID(entry.TicketID), areaID, strings.Join(outside, ", "))
	}
}

// pickPendingEntry implements step 1: prefer the entry named by active.md
// if it still exists, else the lexicographically smallest pending file.
func pickPendingEntry(plan *gitplan.Store) (string, error) {
	if activeBody, err := plan.ReadFile(activePath); err == nil {
		name := strings.TrimSpace(activeBody)
		if name != "" {
			if exists, err := plan.Exists(name); err == nil && exists {
				return name, nil
			}
			// active.md points at a pending file that's gone — a prior run
			// crashed mid-transition. Clear it and fall through to pick fresh.
			_, _ = plan.WriteAndCommit(map[string]string{activePath: ""}, "scriptorium: clear stale active merge entry")
		}
	}

	entries, err := plan.ListMarkdown("queue/merge/pending/")
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", nil
	}
	return entries[0], nil
}

type pendingEntry struct {
	TicketID int
	Branch   string
	Worktree string
	Summary  string
}

func parsePendingEntry(body string) (pendingEntry, error) {
	var e pendingEntry
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "- Ticket:"):
			idStr := strings.TrimSpace(strings.TrimPrefix(trimmed, "- Ticket:"))
			fmt.Sscanf(idStr, "%d", &e.TicketID)
		case strings.HasPrefix(trimmed, "- Branch:"):
			e.Branch = strings.TrimSpace(strings.TrimPrefix(trimmed, "- Branch:"))
		case strings.HasPrefix(trimmed, "- Worktree:"):
			e.Worktree = strings.TrimSpace(strings.TrimPrefix(trimmed, "- Worktree:"))
		case strings.HasPrefix(trimmed, "- Summary:"):
			e.Summary = strings.TrimSpace(strings.TrimPrefix(trimmed, "- Summary:"))
		}
	}
	if e.Branch == "" {
		return e, fmt.Errorf("malformed pending merge entry: missing branch")
	}
	return e, nil
}

// inProgressTicketPath finds the ticket's current path under tickets/in-progress.
func inProgressTicketPath(plan *gitplan.Store, ticketID int) (string, error) {
	files, err := plan.ListMarkdown("tickets/in-progress/")
	if err != nil {
		return "", err
	}
	prefix := ticket.FormatTicketID(ticketID) + "-"
	for _, f := range files {
		if strings.HasPrefix(path.Base(f), prefix) {
			return f, nil
		}
	}
	return "", fmt.Errorf("no in-progress ticket found for id %04d", ticketID)
}

// reopenFailed implements the reopen-with-failure flow shared by steps 4, 5
// and 6: move the ticket back to open, strip **Worktree:**, append a
// failure section, delete the pending entry, clear active.md — all in one
// commit (Q2/Q3).
func reopenFailed(tick int, plan *gitplan.Store, pendingPath string, entry pendingEntry, kind ticket.FailureKind, excerpt string) error {
	inProgressPath, err := inProgressTicketPath(plan, entry.TicketID)
	if err != nil {
		return err
	}
	body, err := plan.ReadFile(inProgressPath)
	if err != nil {
		return err
	}

	reopened := ticket.StripWorktree(body)
	reopened = ticket.AppendFailure(reopened, entry.Summary, kind, excerpt)
	openPath := reopenedPath(inProgressPath)

	writes := map[string]string{
		openPath:   reopened,
		activePath: "",
	}
	removes := []string{inProgressPath, pendingPath}

	commitMsg := fmt.Sprintf("scriptorium: reopen ticket %s (%s)", ticket.FormatTicketID(entry.TicketID), kind)
	if _, err := plan.ApplyTransition(writes, removes, commitMsg); err != nil {
		return err
	}
	_ = plan.AppendDecision(gitplan.DecisionRecord{
		Tick:   tick,
		Phase:  "merge",
		Detail: fmt.Sprintf("ticket %s reopened: %s", ticket.FormatTicketID(entry.TicketID), kind),
	})
	return nil
}

func reopenedPath(inProgressPath string) string {
	return "tickets/open/" + path.Base(inProgressPath)
}

// succeed implements step 7: move the ticket to done, delete the pending
// entry, clear active.md, one commit.
func succeed(tick int, plan *gitplan.Store, pendingPath string, entry pendingEntry) error {
	inProgressPath, err := inProgressTicketPath(plan, entry.TicketID)
	if err != nil {
		return err
	}
	donePath := "tickets/done/" + path.Base(inProgressPath)

	body, err := plan.ReadFile(inProgressPath)
	if err != nil {
		return err
	}

	writes := map[string]string{
		donePath:   body,
		activePath: "",
	}
	removes := []string{inProgressPath, pendingPath}

	commitMsg := fmt.Sprintf("scriptorium: merge ticket %s", ticket.FormatTicketID(entry.TicketID))
	if _, err := plan.ApplyTransition(writes, removes, commitMsg); err != nil {
		return err
	}
	_ = plan.AppendDecision(gitplan.DecisionRecord{
		Tick:   tick,
		Phase:  "merge",
		Detail: fmt.Sprintf("ticket %s merged to master", ticket.FormatTicketID(entry.TicketID)),
	})
	return nil
}
