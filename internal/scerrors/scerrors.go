// Package scerrors collects the sentinel and structured error types shared
// across the orchestrator, so callers can use errors.Is/errors.As instead of
// matching on message text.
package scerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for expected conditions. The tick loop treats these as
// "nothing to do this tick", not failures.
var (
	ErrPlanBranchMissing  = errors.New("scriptorium/plan branch does not exist")
	ErrSpecMissing        = errors.New("spec.md not found on plan branch")
	ErrNoTicketsAvailable = errors.New("no open tickets available")
	ErrBackendUnimplemented = errors.New("backend not implemented")
)

// InvalidInputError wraps a malformed-input condition (missing working
// directory, missing model, malformed slug/path, bad endpoint). It is
// fatal to the operation that raised it, not to the tick loop.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// InvalidSlug reports a slug that normalized to the empty string.
func InvalidSlug(raw string) error {
	return &InvalidInputError{Field: "slug", Reason: fmt.Sprintf("%q normalizes to empty", raw)}
}

// InvalidAreaPath reports an area path that is absolute, escapes the plan
// root, or does not end in .md.
func InvalidAreaPath(raw, reason string) error {
	return &InvalidInputError{Field: "area path", Reason: fmt.Sprintf("%q: %s", raw, reason)}
}

// GitCommandFailedError carries the failed argv and the combined
// stdout+stderr output of a git invocation.
type GitCommandFailedError struct {
	Args   []string
	Output string
}

func (e *GitCommandFailedError) Error() string {
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), e.Output)
}

// GitCommandFailed constructs a GitCommandFailedError.
func GitCommandFailed(args []string, output string) error {
	return &GitCommandFailedError{Args: args, Output: output}
}

// IsGitCommandFailed reports whether err is (or wraps) a GitCommandFailedError.
func IsGitCommandFailed(err error) bool {
	var g *GitCommandFailedError
	return errors.As(err, &g)
}
