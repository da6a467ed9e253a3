package ticket

import (
	"fmt"
	"strings"
)

// Body is the structured view of a ticket's markdown content: a free-form
// title/description, the required **Area:** line, the conditional
// **Worktree:** line, and an optional trailing Merge Queue Failure section.
type Body struct {
	Title       string
	Description string
	Area        string
	Worktree    string
	Failure     *FailureSection
}

// FailureKind tags why a merge-queue drain reopened a ticket.
type FailureKind string

const (
	FailureConflict FailureKind = "CONFLICT"
	FailureHealth   FailureKind = "FAIL"
	FailureNoSignal FailureKind = "NOSIGNAL"
)

// FailureSection is the "## Merge Queue Failure" block appended to a
// ticket's body when processMergeQueue reopens it.
type FailureSection struct {
	Summary string
	Kind    FailureKind
	Excerpt string
}

// RenderTicketBody serializes b back into the markdown form tickets are
// stored in. Round-trips with ParseTicketBody: ParseTicketBody(RenderTicketBody(b))
// reproduces Area, Worktree and Failure.
func RenderTicketBody(b Body) string {
	var sb strings.Builder
	if b.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", b.Title)
	}
	if b.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", strings.TrimRight(b.Description, "\n"))
	}
	fmt.Fprintf(&sb, "%s %s\n", areaLinePrefix, b.Area)
	if b.Worktree != "" {
		fmt.Fprintf(&sb, "%s %s\n", worktreeLinePrefix, b.Worktree)
	}
	if b.Failure != nil {
		fmt.Fprintf(&sb, "\n%s\n\n%s %s\n\n%s\n\n%s\n", failureHeading,
			failureSummaryField, b.Failure.Summary, string(b.Failure.Kind), b.Failure.Excerpt)
	}
	return sb.String()
}

// ParseTicketBody extracts the Area, Worktree and Failure fields out of raw
// ticket markdown. Title/Description are best-effort: Title is the first
// "# " heading line if present, Description is everything between the
// title and the **Area:** line.
func ParseTicketBody(raw string) Body {
	b := Body{
		Area:     ParseAreaID(raw),
		Worktree: ParseWorktree(raw),
	}

	lines := strings.Split(raw, "\n")
	var descLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") && b.Title == "" {
			b.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			continue
		}
		if strings.HasPrefix(trimmed, areaLinePrefix) {
			break
		}
		if strings.HasPrefix(trimmed, failureHeading) {
			break
		}
		descLines = append(descLines, line)
	}
	b.Description = strings.TrimSpace(strings.Join(descLines, "\n"))

	if idx := strings.Index(raw, failureHeading); idx >= 0 {
		section := raw[idx:]
		b.Failure = parseFailureSection(section)
	}

	return b
}

func parseFailureSection(section string) *FailureSection {
	f := &FailureSection{}
	lines := strings.Split(section, "\n")
	var excerptLines []string
	pastSummary := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, failureSummaryField):
			f.Summary = strings.TrimSpace(strings.TrimPrefix(trimmed, failureSummaryField))
			pastSummary = true
		case trimmed == string(FailureConflict), trimmed == string(FailureHealth), trimmed == string(FailureNoSignal):
			f.Kind = FailureKind(trimmed)
		case pastSummary && trimmed == "" && i == 0:
			// skip
		case pastSummary && f.Kind != "":
			excerptLines = append(excerptLines, line)
		}
	}
	f.Excerpt = strings.TrimSpace(strings.Join(excerptLines, "\n"))
	return f
}

// AppendFailure appends a Merge Queue Failure section (summary + kind +
// diagnostic excerpt) to an existing ticket body, replacing any prior
// failure section — a ticket can only be reopened once per drain attempt.
func AppendFailure(body, summary string, kind FailureKind, excerpt string) string {
	if idx := strings.Index(body, failureHeading); idx >= 0 {
		body = strings.TrimRight(body[:idx], "\n")
	}
	body = strings.TrimRight(body, "\n") + "\n"
	return fmt.Sprintf("%s\n%s\n\n%s %s\n\n%s\n\n%s\n", body, failureHeading,
		failureSummaryField, summary, string(kind), excerpt)
}

// StripWorktree removes the **Worktree:** line from body, used when
// reopening a ticket (it leaves in-progress and the worktree is destroyed).
func StripWorktree(body string) string {
	lines := strings.Split(body, "\n")
	var out []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), worktreeLinePrefix) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// SetWorktree appends (or replaces) the **Worktree:** line in body.
func SetWorktree(body, worktreePath string) string {
	body = StripWorktree(body)
	body = strings.TrimRight(body, "\n") + "\n"
	return fmt.Sprintf("%s%s %s\n", body, worktreeLinePrefix, worktreePath)
}

// ParseMergeQueueFailure extracts the failure section from a reopened
// ticket's body, or nil if none is present.
func ParseMergeQueueFailure(body string) *FailureSection {
	idx := strings.Index(body, failureHeading)
	if idx < 0 {
		return nil
	}
	return parseFailureSection(body[idx:])
}
