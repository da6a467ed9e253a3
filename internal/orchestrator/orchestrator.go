// Package orchestrator drives the tick loop (C7): the fixed health -> plan
// sync -> assign -> execute -> drain sequence, cooperative shutdown on
// SIGINT/SIGTERM, and the two pieces of shared state the loop depends on
// (the Orchestrator's shouldRun flag, and the MCP summary slot owned by
// mcpendpoint.Endpoint), both held as struct fields rather than globals.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/re-cinq/scriptorium/internal/assign"
	"github.com/re-cinq/scriptorium/internal/config"
	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/health"
	"github.com/re-cinq/scriptorium/internal/mcpendpoint"
	"github.com/re-cinq/scriptorium/internal/merge"
	"github.com/re-cinq/scriptorium/internal/scerrors"
	"github.com/re-cinq/scriptorium/internal/supervisor"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

// Orchestrator owns every dependency the tick loop needs: the repo, the
// plan store, config, the injected generators, the MCP endpoint, and the
// health checker shared with the merge pipeline.
type Orchestrator struct {
	RepoDir     string
	Plan        *gitplan.Store
	Config      *config.Config
	Architect   ArchitectGenerator
	Manager     ManagerGenerator
	MCP         *mcpendpoint.Endpoint
	Checker     *health.Checker
	AgentBinary string
	Project     string

	shouldRun atomic.Bool
	tickNum   int
}

// New builds an Orchestrator ready to run ticks, wiring the health checker
// from cfg.Settings.HealthCommands.
func New(repoDir string, cfg *config.Config, architect ArchitectGenerator, manager ManagerGenerator, mcp *mcpendpoint.Endpoint, project string) *Orchestrator {
	o := &Orchestrator{
		RepoDir:     repoDir,
		Plan:        gitplan.New(repoDir),
		Config:      cfg,
		Architect:   architect,
		Manager:     manager,
		MCP:         mcp,
		Checker:     health.NewChecker(repoDir, cfg.Settings.HealthCommands),
		AgentBinary: "codex",
		Project:     project,
	}
	o.shouldRun.Store(true)
	return o
}

// installSignalHandlers sets shouldRun to false on SIGINT/SIGTERM; the
// returned stop func releases the signal.Notify registration.
func (o *Orchestrator) installSignalHandlers() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			o.shouldRun.Store(false)
		case <-done:
		}
	}()
	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}

// RunOrchestrator runs ticks until shutdown is requested.
func (o *Orchestrator) RunOrchestrator(ctx context.Context) error {
	stop := o.installSignalHandlers()
	defer stop()

	idle := time.Duration(o.Config.Settings.TickIntervalMs) * time.Millisecond
	for o.shouldRun.Load() {
		if err := o.Tick(ctx); err != nil {
			fileutil.LogError("tick failed: %v", err)
		}
		if !o.shouldRun.Load() {
			break
		}
		time.Sleep(idle)
	}
	return nil
}

// RunOrchestratorForTicks runs at most n ticks, for test bounding.
func (o *Orchestrator) RunOrchestratorForTicks(ctx context.Context, n int) error {
	idle := time.Duration(o.Config.Settings.TickIntervalMs) * time.Millisecond
	for i := 0; i < n && o.shouldRun.Load(); i++ {
		if err := o.Tick(ctx); err != nil {
			fileutil.LogError("tick failed: %v", err)
		}
		if i < n-1 {
			time.Sleep(idle)
		}
	}
	return nil
}

// RequestShutdown sets shouldRun to false, as if a signal had been received.
func (o *Orchestrator) RequestShutdown() {
	o.shouldRun.Store(false)
}

// Tick runs the fixed five-phase sequence once: health, plan sync, assign,
// execute, drain. A failure in one phase never skips later phases.
func (o *Orchestrator) Tick(ctx context.Context) error {
	o.tickNum++
	masterGreen := o.phaseHealth()

	if err := o.phasePlanSync(ctx); err != nil {
		fileutil.LogError("plan sync: %v", err)
	}

	if err := o.phaseAssign(masterGreen); err != nil && !isExpectedTickCondition(err) {
		fileutil.LogError("assign: %v", err)
	}

	if err := o.phaseExecute(ctx); err != nil {
		fileutil.LogError("execute: %v", err)
	}

	if _, err := merge.ProcessMergeQueue(o.tickNum, o.RepoDir, o.Plan, o.Checker); err != nil {
		fileutil.LogError("drain: %v", err)
	}

	return nil
}

func isExpectedTickCondition(err error) bool {
	return errors.Is(err, scerrors.ErrNoTicketsAvailable) ||
		errors.Is(err, scerrors.ErrPlanBranchMissing) ||
		errors.Is(err, scerrors.ErrSpecMissing)
}

// phaseHealth runs the project health command and returns whether master
// is green.
func (o *Orchestrator) phaseHealth() bool {
	res := o.Checker.Run()
	return res.Green
}

// phasePlanSync generates areas from the spec when none exist yet, and
// tickets for any area lacking one in open/in-progress. Either step is
// skipped when there's nothing to do (idempotent, P7).
func (o *Orchestrator) phasePlanSync(ctx context.Context) error {
	areaFiles, err := o.Plan.ListMarkdown("areas/")
	if err != nil {
		if errors.Is(err, scerrors.ErrPlanBranchMissing) {
			return nil
		}
		return err
	}

	if len(areaFiles) == 0 {
		if err := o.syncAreasFromSpec(ctx); err != nil {
			return err
		}
		areaFiles, err = o.Plan.ListMarkdown("areas/")
		if err != nil {
			return err
		}
	}

	return o.syncTicketsFromAreas(ctx, areaFiles)
}

func (o *Orchestrator) syncAreasFromSpec(ctx context.Context) error {
	specBody, err := o.Plan.ReadFile("spec.md")
	if err != nil {
		return scerrors.ErrSpecMissing
	}

	docs, err := o.Architect.GenerateAreas(ctx, o.Config.Models.Architect, specBody)
	if err != nil {
		return fmt.Errorf("generating areas: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	writes := make(map[string]string, len(docs))
	for _, d := range docs {
		writes[path.Join("areas", d.ID+".md")] = d.Content
	}
	_, err = o.Plan.WriteAndCommit(writes, "scriptorium: update areas from spec")
	return err
}

func (o *Orchestrator) syncTicketsFromAreas(ctx context.Context, areaFiles []string) error {
	openTickets, err := o.readTicketFiles(ticket.StateOpen)
	if err != nil {
		return err
	}
	inProgressTickets, err := o.readTicketFiles(ticket.StateInProgress)
	if err != nil {
		return err
	}
	doneTickets, err := o.readTicketFiles(ticket.StateDone)
	if err != nil {
		return err
	}

	active := ticket.CollectActiveAreas(openTickets, inProgressTickets)
	needing := ticket.AreasNeedingTickets(areaFiles, active)
	if len(needing) == 0 {
		return nil
	}

	allNames := allTicketFilenames(openTickets, inProgressTickets, doneTickets)
	writes := make(map[string]string)

	for _, areaPath := range needing {
		areaBody, err := o.Plan.ReadFile(areaPath)
		if err != nil {
			return err
		}
		docs, err := o.Manager.GenerateTickets(ctx, o.Config.Models.Manager, areaPath, areaBody)
		if err != nil {
			return fmt.Errorf("generating tickets for %s: %w", areaPath, err)
		}
		areaID := ticket.AreaStem(areaPath)
		for _, d := range docs {
			slug, err := ticket.NormalizeSlug(d.Slug)
			if err != nil {
				slug, err = ticket.NormalizeSlug(d.Title)
				if err != nil {
					continue
				}
			}
			id := ticket.NextTicketID(allNames)
			filename := ticket.TicketFilename(id, slug)
			allNames = append(allNames, filename)

			body := ticket.RenderTicketBody(ticket.Body{
				Title:       d.Title,
				Description: d.Description,
				Area:        areaID,
			})
			writes[ticket.TicketPath(ticket.StateOpen, id, slug)] = body
		}
	}

	if len(writes) == 0 {
		return nil
	}
	_, err = o.Plan.WriteAndCommit(writes, "scriptorium: create tickets from areas")
	return err
}

func (o *Orchestrator) readTicketFiles(state ticket.State) ([]ticket.File, error) {
	paths, err := o.Plan.ListMarkdown("tickets/" + string(state) + "/")
	if err != nil {
		return nil, err
	}
	files := make([]ticket.File, 0, len(paths))
	for _, p := range paths {
		body, err := o.Plan.ReadFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, ticket.File{Path: p, Body: body})
	}
	return files, nil
}

func allTicketFilenames(groups ...[]ticket.File) []string {
	var names []string
	for _, g := range groups {
		for _, f := range g {
			names = append(names, path.Base(f.Path))
		}
	}
	return names
}

// phaseAssign assigns the oldest open ticket only when master is green and
// no ticket is currently in-progress (single-flight, P9).
func (o *Orchestrator) phaseAssign(masterGreen bool) error {
	if !masterGreen {
		return nil
	}
	inProgress, err := o.Plan.ListMarkdown("tickets/in-progress/")
	if err != nil {
		return err
	}
	if len(inProgress) > 0 {
		return nil
	}

	a, err := assign.AssignOldestOpenTicket(o.RepoDir, o.Plan)
	if err != nil {
		return err
	}

	// Single-flight (P9) guarantees a's ticket is the only in-progress one;
	// the manifest cache holds exactly this entry until the next assignment
	// overwrites it (draining the ticket does not clear the cache).
	entry := WorktreeEntry{
		TicketID: a.TicketID,
		Branch:   a.Branch,
		Worktree: a.Worktree,
		AreaID:   a.AreaID,
		Attached: time.Now().UTC().Format(time.RFC3339),
	}
	_ = WriteManifest(o.RepoDir, []WorktreeEntry{entry}, time.Now())
	_ = o.Plan.AppendDecision(gitplan.DecisionRecord{
		Tick:   o.tickNum,
		Phase:  "assign",
		Detail: fmt.Sprintf("assigned ticket %s to %s", ticket.FormatTicketID(a.TicketID), a.Branch),
	})
	return nil
}

func splitFilenameID(filename string) (int, string, error) {
	stem := strings.TrimSuffix(filename, ".md")
	idx := strings.IndexByte(stem, '-')
	if idx < 0 {
		return 0, "", fmt.Errorf("malformed filename %q", filename)
	}
	var id int
	if _, err := fmt.Sscanf(stem[:idx], "%d", &id); err != nil {
		return 0, "", err
	}
	return id, stem[idx+1:], nil
}

// phaseExecute runs the coding agent for the current in-progress ticket, if
// any, and consumes the submit_pr summary per spec.md §4.7/§9.
func (o *Orchestrator) phaseExecute(ctx context.Context) error {
	inProgress, err := o.Plan.ListMarkdown("tickets/in-progress/")
	if err != nil || len(inProgress) == 0 {
		return err
	}
	ticketPath := inProgress[0]
	body, err := o.Plan.ReadFile(ticketPath)
	if err != nil {
		return err
	}
	parsed := ticket.ParseTicketBody(body)
	if parsed.Worktree == "" {
		return nil
	}
	id, slug, err := splitFilenameID(path.Base(ticketPath))
	if err != nil {
		return err
	}

	o.MCP.ConsumeSubmitPRSummary() // clear any stale value before the run

	prompt := buildAgentPrompt(parsed)
	settings := o.Config.Settings
	result, err := supervisor.Run(ctx, supervisor.Options{
		Binary:           o.AgentBinary,
		Prompt:           prompt,
		WorkDir:          parsed.Worktree,
		Model:            o.Config.Models.Coding,
		ReasoningEffort:  o.Config.ReasoningEffort.Coding,
		TicketID:         ticket.FormatTicketID(id),
		LogRoot:          fileutil.LogRoot(o.Project),
		NoOutputTimeout:  time.Duration(settings.NoOutputTimeoutMs) * time.Millisecond,
		HardTimeout:      time.Duration(settings.HardTimeoutMs) * time.Millisecond,
		PollInterval:     time.Duration(settings.PollIntervalMs) * time.Millisecond,
		MaxAttempts:      settings.MaxAttempts,
		MCPEndpoint:      "http://" + o.MCP.Addr(),
	})
	if err != nil {
		return fmt.Errorf("running agent for ticket %04d: %w", id, err)
	}

	summary := o.MCP.ConsumeSubmitPRSummary()
	if summary != "" {
		a := assign.Assignment{
			TicketID:         id,
			Slug:             slug,
			Branch:           ticket.BranchName(id),
			Worktree:         parsed.Worktree,
			InProgressTicket: ticketPath,
			AreaID:           parsed.Area,
		}
		if err := assign.EnqueueMergeRequest(o.Plan, a, summary); err != nil {
			return err
		}
		_ = o.Plan.AppendDecision(gitplan.DecisionRecord{
			Tick:   o.tickNum,
			Phase:  "execute",
			Detail: fmt.Sprintf("ticket %s enqueued for merge", ticket.FormatTicketID(id)),
		})
		return nil
	}

	// No submit_pr call: the chosen policy (spec.md §9 Open Question) is to
	// reopen the ticket with a NOSIGNAL failure note rather than leave it
	// parked in-progress, since a parked ticket would wedge assignment
	// (phaseAssign requires no in-progress ticket) indefinitely.
	return o.reopenWithNoSignal(ticketPath, body, result)
}

func buildAgentPrompt(b ticket.Body) string {
	var sb strings.Builder
	if b.Title != "" {
		sb.WriteString(b.Title)
		sb.WriteString("\n\n")
	}
	sb.WriteString(b.Description)
	return sb.String()
}

func (o *Orchestrator) reopenWithNoSignal(ticketPath, body string, result supervisor.Result) error {
	reopened := ticket.StripWorktree(body)
	excerpt := fmt.Sprintf("exit code %d, timeout: %s", result.ExitCode, result.TimeoutKind)
	reopened = ticket.AppendFailure(reopened, "agent exited without calling submit_pr", ticket.FailureNoSignal, excerpt)

	openPath := path.Join("tickets", "open", path.Base(ticketPath))
	writes := map[string]string{openPath: reopened}
	removes := []string{ticketPath}

	commitMsg := fmt.Sprintf("scriptorium: reopen ticket %s (NOSIGNAL)", path.Base(ticketPath))
	if _, err := o.Plan.ApplyTransition(writes, removes, commitMsg); err != nil {
		return err
	}
	_ = o.Plan.AppendDecision(gitplan.DecisionRecord{
		Tick:   o.tickNum,
		Phase:  "execute",
		Detail: fmt.Sprintf("ticket %s reopened: NOSIGNAL", path.Base(ticketPath)),
	})
	return nil
}
