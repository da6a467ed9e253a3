// Package ticket implements the pure, side-effect-free parsing and
// normalization rules of the ticket and merge-queue state machine: area
// extraction, slug/path normalization, id allocation, and ticket-body
// rendering. It operates over already-read file contents and plan-relative
// paths; callers in internal/gitplan and internal/assign own the git I/O.
package ticket

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/re-cinq/scriptorium/internal/scerrors"
)

// State is one of the three ticket lifecycle directories.
type State string

const (
	StateOpen       State = "open"
	StateInProgress State = "in-progress"
	StateDone       State = "done"
)

// States lists every ticket state in a stable order, used when scanning the
// whole tickets/ tree for id allocation and area bookkeeping.
var States = []State{StateOpen, StateInProgress, StateDone}

const (
	areaLinePrefix      = "**Area:**"
	worktreeLinePrefix  = "**Worktree:**"
	failureHeading      = "## Merge Queue Failure"
	failureSummaryField = "- Summary:"
)

var slugDisallowed = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeSlug lowercases s, maps runs of anything outside [a-z0-9] to a
// single hyphen, trims leading/trailing hyphens, and rejects an empty
// result with InvalidSlug. Idempotent: NormalizeSlug(NormalizeSlug(s)) ==
// NormalizeSlug(s).
func NormalizeSlug(s string) (string, error) {
	lower := strings.ToLower(s)
	collapsed := slugDisallowed.ReplaceAllString(lower, "-")
	trimmed := strings.Trim(collapsed, "-")
	if trimmed == "" {
		return "", scerrors.InvalidSlug(s)
	}
	return trimmed, nil
}

// NormalizeAreaPath validates an area path relative to the plan root: must
// be relative, must not contain a ".." path segment, and must end in ".md"
// (case-insensitive).
func NormalizeAreaPath(p string) (string, error) {
	if path.IsAbs(p) || strings.HasPrefix(p, "/") {
		return "", scerrors.InvalidAreaPath(p, "must be relative")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", scerrors.InvalidAreaPath(p, "must not escape via ..")
		}
	}
	if !strings.HasSuffix(strings.ToLower(p), ".md") {
		return "", scerrors.InvalidAreaPath(p, "must end in .md")
	}
	return path.Clean(p), nil
}

// AreaStem returns the area id for an area file path: the basename with the
// ".md" extension removed.
func AreaStem(areaPath string) string {
	base := path.Base(areaPath)
	return strings.TrimSuffix(base, path.Ext(base))
}

// ParseAreaID scans body for the first line beginning with "**Area:**"
// (after trimming leading whitespace) and returns the trimmed suffix.
// Returns "" if no such line exists.
func ParseAreaID(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, areaLinePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, areaLinePrefix))
		}
	}
	return ""
}

// ParseWorktree scans body for the first "**Worktree:**" line and returns
// its trimmed suffix, or "" if absent.
func ParseWorktree(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, worktreeLinePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, worktreeLinePrefix))
		}
	}
	return ""
}

// File pairs a ticket's plan-relative path with its body content, as read
// from a single state directory.
type File struct {
	Path string
	Body string
}

// CollectActiveAreas returns the union of area ids referenced by every
// ticket in open and in-progress (not done — a done ticket no longer holds
// an area "active").
func CollectActiveAreas(openTickets, inProgressTickets []File) map[string]bool {
	active := make(map[string]bool)
	for _, f := range openTickets {
		if id := ParseAreaID(f.Body); id != "" {
			active[id] = true
		}
	}
	for _, f := range inProgressTickets {
		if id := ParseAreaID(f.Body); id != "" {
			active[id] = true
		}
	}
	return active
}

// AreasNeedingTickets returns the sorted subset of areaPaths whose stem is
// not present in active.
func AreasNeedingTickets(areaPaths []string, active map[string]bool) []string {
	var out []string
	for _, p := range areaPaths {
		if !active[AreaStem(p)] {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

var idPrefix = regexp.MustCompile(`^(\d+)-`)

// parseLeadingID extracts the numeric id prefix (digits before the first
// hyphen) from a ticket or queue-entry filename stem. ok is false if the
// filename does not start with digits followed by a hyphen.
func parseLeadingID(filename string) (id int, ok bool) {
	m := idPrefix.FindStringSubmatch(filename)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextTicketID scans every filename across all three state directories and
// returns one greater than the maximum leading numeric id found, or 1 if
// none are found.
func NextTicketID(allFilenames []string) int {
	max := 0
	found := false
	for _, name := range allFilenames {
		if id, ok := parseLeadingID(path.Base(name)); ok {
			found = true
			if id > max {
				max = id
			}
		}
	}
	if !found {
		return 1
	}
	return max + 1
}

// FormatTicketID renders a ticket id as a zero-padded four-digit string.
func FormatTicketID(id int) string {
	return fmt.Sprintf("%04d", id)
}

// TicketFilename builds the "<NNNN>-<slug>.md" filename for a ticket.
func TicketFilename(id int, slug string) string {
	return fmt.Sprintf("%s-%s.md", FormatTicketID(id), slug)
}

// TicketPath builds the plan-relative path "tickets/<state>/<NNNN>-<slug>.md".
func TicketPath(state State, id int, slug string) string {
	return path.Join("tickets", string(state), TicketFilename(id, slug))
}

// BranchName returns the ticket branch name for a ticket id.
func BranchName(id int) string {
	return fmt.Sprintf("scriptorium/ticket-%s", FormatTicketID(id))
}

var pendingEntryName = regexp.MustCompile(`^(\d{4})-(\d{4})\.md$`)

// ParsePendingQueueEntryName validates that name matches "<NNNN>-<NNNN>.md"
// and returns the two parsed ids (ticket id repeated as the queue's own
// sequencing field, per the plan layout in §3).
func ParsePendingQueueEntryName(name string) (first, second int, ok bool) {
	m := pendingEntryName.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	first, _ = strconv.Atoi(m[1])
	second, _ = strconv.Atoi(m[2])
	return first, second, true
}

// PendingEntryFilename builds a pending queue entry's filename for ticket id.
func PendingEntryFilename(id int) string {
	s := FormatTicketID(id)
	return fmt.Sprintf("%s-%s.md", s, s)
}
