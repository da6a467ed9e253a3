// Package supervisor runs the coding-agent CLI for one ticket attempt,
// streaming its combined output to a JSONL log under dual watchdogs
// (no-output and hard timeout), and retries with a continuation prompt up
// to a configured attempt budget.
package supervisor

import (
	"fmt"
	"regexp"

	"github.com/re-cinq/scriptorium/internal/config"
	"github.com/re-cinq/scriptorium/internal/scerrors"
)

// TimeoutKind records why a watchdog killed the child, if it did.
type TimeoutKind string

const (
	TimeoutNone     TimeoutKind = "none"
	TimeoutNoOutput TimeoutKind = "no-output"
	TimeoutHard     TimeoutKind = "hard"
)

// Harness builds the argv for one invocation of a coding-agent CLI family.
type Harness interface {
	// BuildArgs returns the full argument vector (not including argv[0],
	// the binary path itself) for one attempt.
	BuildArgs(req Request) ([]string, error)
}

// Request describes a single attempt's inputs, per spec.md §4.3.
type Request struct {
	Binary             string
	Prompt             string
	WorkDir            string
	Model              string
	TicketID           string
	Attempt            int
	SkipGitRepoCheck   bool
	LastMessagePath    string
	MCPEndpoint        string
	ReasoningEffort    string
}

var sanitizeTicketID = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeTicketID maps every character outside [A-Za-z0-9_-] to a hyphen,
// and falls back to "adhoc" for an empty result.
func SanitizeTicketID(raw string) string {
	if raw == "" {
		return "adhoc"
	}
	out := sanitizeTicketID.ReplaceAllString(raw, "-")
	if out == "" {
		return "adhoc"
	}
	return out
}

// HarnessFor selects the harness implementation for a model string per
// spec.md §6: "claude-" -> claude-code, "codex-"/"gpt-" -> codex, else ->
// generic ("typoi"). Only codex is implemented; the others stub out with
// scerrors.ErrBackendUnimplemented to keep the selection surface complete
// without guessing at unspecified wire formats.
func HarnessFor(model string) Harness {
	switch config.SelectHarness(model) {
	case config.HarnessClaude:
		return claudeHarness{}
	case config.HarnessCodex:
		return codexHarness{}
	default:
		return genericHarness{}
	}
}

// codexHarness builds argv for the codex family (prefix "codex-"/"gpt-").
// Argument order is fixed by spec.md §4.3: empty developer-instructions
// config pair, MCP-servers config pair, subcommand + flags, then "-" to
// read the prompt from stdin.
type codexHarness struct{}

func (codexHarness) BuildArgs(req Request) ([]string, error) {
	if req.WorkDir == "" {
		return nil, &scerrors.InvalidInputError{Field: "workDir", Reason: "must not be empty"}
	}
	if req.Model == "" {
		return nil, &scerrors.InvalidInputError{Field: "model", Reason: "must not be empty"}
	}

	args := []string{
		"-c", `developer_instructions=""`,
	}

	if req.MCPEndpoint == "" {
		args = append(args, "-c", "mcp_servers={}")
	} else {
		mcpConfig := fmt.Sprintf(
			`mcp_servers={scriptorium={type="http",url="%s/mcp",enabled=true,required=true}}`,
			req.MCPEndpoint,
		)
		args = append(args, "-c", mcpConfig)
	}

	args = append(args,
		"exec",
		"--json",
		"--output-last-message", req.LastMessagePath,
		"--cd", req.WorkDir,
		"--model", req.Model,
		"--dangerously-bypass-approvals-and-sandbox",
	)
	if req.ReasoningEffort != "" {
		args = append(args, "-c", fmt.Sprintf("model_reasoning_effort=%q", req.ReasoningEffort))
	}
	if req.SkipGitRepoCheck {
		args = append(args, "--skip-git-repo-check")
	}
	args = append(args, "-")

	return args, nil
}

// claudeHarness is declared by spec.md §6 but not required by the core.
type claudeHarness struct{}

func (claudeHarness) BuildArgs(Request) ([]string, error) {
	return nil, scerrors.ErrBackendUnimplemented
}

// genericHarness ("typoi" family) is declared by spec.md §6 but not
// required by the core.
type genericHarness struct{}

func (genericHarness) BuildArgs(Request) ([]string, error) {
	return nil, scerrors.ErrBackendUnimplemented
}
