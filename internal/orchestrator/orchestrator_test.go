package orchestrator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/re-cinq/scriptorium/internal/config"
	"github.com/re-cinq/scriptorium/internal/git"
	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %s: %v", args, out, err)
	}
	return string(out)
}

func newPlanRepoWithSpec(t *testing.T, spec string) string {
	t.Helper()
	dir := t.TempDir()
	repoDir := filepath.Join(dir, "repo")
	runGit(t, dir, "init", repoDir)
	runGit(t, repoDir, "checkout", "-b", "master")
	if err := os.WriteFile(filepath.Join(repoDir, "README.md"), []byte("x\n"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, repoDir, "add", "README.md")
	runGit(t, repoDir, "commit", "-m", "initial")

	seed := filepath.Join(dir, "plan-seed")
	repo := git.NewRepo(repoDir)
	if err := repo.CreateOrphanWorktree(seed, gitplan.PlanBranch); err != nil {
		t.Fatalf("seeding plan branch: %v", err)
	}
	for _, sub := range []string{"tickets/open", "tickets/in-progress", "tickets/done", "areas", "queue/merge/pending"} {
		if err := os.MkdirAll(filepath.Join(seed, sub), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(seed, sub, ".gitkeep"), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(seed, "spec.md"), []byte(spec), 0644); err != nil {
		t.Fatal(err)
	}
	wt := git.NewRepo(seed)
	wt.EnsureIdentity()
	if ok, err := wt.CommitIfChanged("bootstrap"); err != nil || !ok {
		t.Fatalf("bootstrap: ok=%v err=%v", ok, err)
	}
	if err := repo.RemoveWorktree(seed); err != nil {
		t.Fatal(err)
	}
	return repoDir
}

func testOrchestrator(repoDir string, architect ArchitectGenerator, manager ManagerGenerator) *Orchestrator {
	return &Orchestrator{
		RepoDir:   repoDir,
		Plan:      gitplan.New(repoDir),
		Config:    &config.Config{},
		Architect: architect,
		Manager:   manager,
	}
}

func TestPhasePlanSyncGeneratesAreasThenTickets(t *testing.T) {
	repoDir := newPlanRepoWithSpec(t, "# Spec\n\nBuild a thing.\n")

	architect := ArchitectFunc(func(ctx context.Context, model, spec string) ([]AreaDoc, error) {
		return []AreaDoc{{ID: "core", Content: "# core\n"}}, nil
	})
	managerCalls := 0
	manager := ManagerFunc(func(ctx context.Context, model, areaRelPath, areaContent string) ([]TicketDoc, error) {
		managerCalls++
		return []TicketDoc{{Slug: "do-the-thing", Title: "Do the thing", Description: "details"}}, nil
	})

	o := testOrchestrator(repoDir, architect, manager)

	if err := o.phasePlanSync(context.Background()); err != nil {
		t.Fatalf("plan sync: %v", err)
	}

	areas, err := o.Plan.ListMarkdown("areas/")
	if err != nil {
		t.Fatal(err)
	}
	if len(areas) != 1 || areas[0] != "areas/core.md" {
		t.Fatalf("expected areas/core.md area, got %v", areas)
	}

	open, err := o.Plan.ListMarkdown("tickets/open/")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Fatalf("expected one ticket generated, got %v", open)
	}
	if managerCalls != 1 {
		t.Fatalf("expected manager to run once, got %d", managerCalls)
	}

	// Second run is a no-op: the area already has a ticket, areas already exist.
	if err := o.phasePlanSync(context.Background()); err != nil {
		t.Fatalf("second plan sync: %v", err)
	}
	open2, err := o.Plan.ListMarkdown("tickets/open/")
	if err != nil {
		t.Fatal(err)
	}
	if len(open2) != 1 {
		t.Fatalf("expected plan sync to be idempotent, got %v", open2)
	}
}

func TestPhaseAssignSkipsWhenMasterRed(t *testing.T) {
	repoDir := newPlanRepoWithSpec(t, "# Spec\n")
	o := testOrchestrator(repoDir, nil, nil)

	if _, err := o.Plan.WriteAndCommit(map[string]string{
		"tickets/open/0001-foo.md": "# Foo\n\n**Area:** core\n",
	}, "seed ticket"); err != nil {
		t.Fatal(err)
	}

	if err := o.phaseAssign(false); err != nil {
		t.Fatalf("phaseAssign: %v", err)
	}

	open, err := o.Plan.ListMarkdown("tickets/open/")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Fatalf("expected ticket to remain open when master is red, got %v", open)
	}
}

func TestPhaseAssignSkipsWhenAlreadyInProgress(t *testing.T) {
	repoDir := newPlanRepoWithSpec(t, "# Spec\n")
	o := testOrchestrator(repoDir, nil, nil)

	if _, err := o.Plan.WriteAndCommit(map[string]string{
		"tickets/open/0001-foo.md":        "# Foo\n\n**Area:** core\n",
		"tickets/in-progress/0002-bar.md": "# Bar\n\n**Area:** core\n**Worktree:** /tmp/bar\n",
	}, "seed tickets"); err != nil {
		t.Fatal(err)
	}

	if err := o.phaseAssign(true); err != nil {
		t.Fatalf("phaseAssign: %v", err)
	}

	open, err := o.Plan.ListMarkdown("tickets/open/")
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Fatalf("expected the open ticket to be left alone with one in-progress already, got %v", open)
	}
}

func TestPhaseAssignMovesOldestOpenTicket(t *testing.T) {
	repoDir := newPlanRepoWithSpec(t, "# Spec\n")
	o := testOrchestrator(repoDir, nil, nil)

	if _, err := o.Plan.WriteAndCommit(map[string]string{
		"tickets/open/0001-foo.md": "# Foo\n\n**Area:** core\n",
	}, "seed ticket"); err != nil {
		t.Fatal(err)
	}

	if err := o.phaseAssign(true); err != nil {
		t.Fatalf("phaseAssign: %v", err)
	}

	inProgress, err := o.Plan.ListMarkdown("tickets/in-progress/")
	if err != nil {
		t.Fatal(err)
	}
	if len(inProgress) != 1 {
		t.Fatalf("expected ticket to move to in-progress, got %v", inProgress)
	}

	body, err := o.Plan.ReadFile(inProgress[0])
	if err != nil {
		t.Fatal(err)
	}
	if ticket.ParseWorktree(body) == "" {
		t.Fatal("expected a **Worktree:** line to be recorded")
	}

	manifest, err := ReadManifest(repoDir)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	if len(manifest.Entries) != 1 || manifest.Entries[0].TicketID != 1 {
		t.Fatalf("expected manifest entry for ticket 1, got %+v", manifest)
	}
}
