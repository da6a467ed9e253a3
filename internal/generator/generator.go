// Package generator provides the default architect/manager implementations
// the CLI wires into the orchestrator. These are concrete instances of the
// injected generator interfaces the core treats as external collaborators
// (spec.md §1, §9): each one shells out to the configured coding-agent CLI
// via internal/supervisor and asks it to emit a JSON document, which is
// then parsed into the core's AreaDoc/TicketDoc structs.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/orchestrator"
	"github.com/re-cinq/scriptorium/internal/supervisor"
)

// Default wires both generator roles to one coding-agent binary.
type Default struct {
	Binary  string
	LogRoot string
}

const architectPromptTemplate = `You are decomposing a specification into coarse thematic areas of work.
Read the specification below and respond with nothing but a JSON array of
objects, each with "id" (a short kebab-case identifier) and "content" (the
area's markdown body).

Specification:

%s
`

const managerPromptTemplate = `You are decomposing one area of work into discrete tickets.
Read the area document below and respond with nothing but a JSON array of
objects, each with "slug", "title", and "description".

Area (%s):

%s
`

// GenerateAreas generates areas from the spec by invoking the coding-agent CLI
// once and parsing its last-message output as a JSON array.
func (d Default) GenerateAreas(ctx context.Context, model, spec string) ([]orchestrator.AreaDoc, error) {
	prompt := fmt.Sprintf(architectPromptTemplate, spec)
	raw, err := d.runForJSON(ctx, model, prompt, "architect")
	if err != nil {
		return nil, err
	}

	var decoded []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parsing architect output: %w", err)
	}

	docs := make([]orchestrator.AreaDoc, 0, len(decoded))
	for _, d := range decoded {
		docs = append(docs, orchestrator.AreaDoc{ID: d.ID, Content: d.Content})
	}
	return docs, nil
}

// GenerateTickets generates tickets for one area.
func (d Default) GenerateTickets(ctx context.Context, model, areaRelPath, areaContent string) ([]orchestrator.TicketDoc, error) {
	prompt := fmt.Sprintf(managerPromptTemplate, areaRelPath, areaContent)
	raw, err := d.runForJSON(ctx, model, prompt, "manager")
	if err != nil {
		return nil, err
	}

	var decoded []struct {
		Slug        string `json:"slug"`
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parsing manager output: %w", err)
	}

	docs := make([]orchestrator.TicketDoc, 0, len(decoded))
	for _, d := range decoded {
		docs = append(docs, orchestrator.TicketDoc{Slug: d.Slug, Title: d.Title, Description: d.Description})
	}
	return docs, nil
}

func (d Default) runForJSON(ctx context.Context, model, prompt, role string) (string, error) {
	workDir, err := os.MkdirTemp("", "scriptorium-"+role)
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(workDir)

	result, err := supervisor.Run(ctx, supervisor.Options{
		Binary:           d.Binary,
		Prompt:           prompt,
		WorkDir:          workDir,
		Model:            model,
		TicketID:         role,
		LogRoot:          d.LogRoot,
		SkipGitRepoCheck: true,
		MaxAttempts:      1,
	})
	if err != nil {
		return "", fmt.Errorf("running %s generator: %w", role, err)
	}
	if !result.Completed() {
		fileutil.LogError("%s generator exited %d (timeout: %s)", role, result.ExitCode, result.TimeoutKind)
	}
	if result.LastMessage != "" {
		return result.LastMessage, nil
	}
	return result.Stdout, nil
}
