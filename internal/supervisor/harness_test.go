package supervisor

import (
	"errors"
	"strings"
	"testing"

	"github.com/re-cinq/scriptorium/internal/scerrors"
)

func TestSanitizeTicketID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"0007", "0007"},
		{"", "adhoc"},
		{"foo bar/baz", "foo-bar-baz"},
		{"!!!", "---"},
	}
	for _, tt := range tests {
		if got := SanitizeTicketID(tt.in); got != tt.want {
			t.Errorf("SanitizeTicketID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCodexHarnessBuildArgsOrder(t *testing.T) {
	args, err := codexHarness{}.BuildArgs(Request{
		WorkDir:         "/repo/wt",
		Model:           "codex-5",
		ReasoningEffort: "high",
		LastMessagePath: "/repo/wt/last.txt",
		MCPEndpoint:     "http://127.0.0.1:8097",
	})
	if err != nil {
		t.Fatalf("BuildArgs: %v", err)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, `developer_instructions=""`) {
		t.Errorf("missing empty developer_instructions pair: %v", args)
	}
	if !strings.Contains(joined, "mcp_servers={scriptorium=") {
		t.Errorf("missing mcp_servers config: %v", args)
	}
	if args[len(args)-1] != "-" {
		t.Errorf("last arg = %q, want \"-\"", args[len(args)-1])
	}
	if !strings.Contains(joined, "exec") {
		t.Errorf("missing exec subcommand: %v", args)
	}

	indexOf := func(match func(string) bool) int {
		for i, a := range args {
			if match(a) {
				return i
			}
		}
		return -1
	}
	devIdx := indexOf(func(a string) bool { return a == `developer_instructions=""` })
	mcpIdx := indexOf(func(a string) bool { return strings.HasPrefix(a, "mcp_servers=") })
	execIdx := indexOf(func(a string) bool { return a == "exec" })
	if !(devIdx >= 0 && devIdx < mcpIdx && mcpIdx < execIdx) {
		t.Errorf("want developer_instructions, then mcp_servers, then exec; got %v", args)
	}
}

func TestCodexHarnessNoEndpointUsesEmptyMCPServers(t *testing.T) {
	args, err := codexHarness{}.BuildArgs(Request{
		WorkDir:         "/repo/wt",
		Model:           "codex-5",
		LastMessagePath: "/repo/wt/last.txt",
	})
	if err != nil {
		t.Fatalf("BuildArgs: %v", err)
	}
	if !strings.Contains(strings.Join(args, " "), "mcp_servers={}") {
		t.Errorf("expected empty mcp_servers table, got: %v", args)
	}
}

func TestCodexHarnessRejectsMissingWorkDir(t *testing.T) {
	_, err := codexHarness{}.BuildArgs(Request{Model: "codex-5"})
	if err == nil {
		t.Fatal("expected error for missing work dir")
	}
}

func TestNonCodexHarnessesAreUnimplemented(t *testing.T) {
	for _, h := range []Harness{claudeHarness{}, genericHarness{}} {
		_, err := h.BuildArgs(Request{WorkDir: "/x", Model: "claude-opus"})
		if !errors.Is(err, scerrors.ErrBackendUnimplemented) {
			t.Errorf("expected ErrBackendUnimplemented, got %v", err)
		}
	}
}

func TestHarnessForSelectsByModelPrefix(t *testing.T) {
	if _, ok := HarnessFor("codex-5").(codexHarness); !ok {
		t.Error("codex-5 should select codexHarness")
	}
	if _, ok := HarnessFor("gpt-4").(codexHarness); !ok {
		t.Error("gpt-4 should select codexHarness")
	}
	if _, ok := HarnessFor("claude-opus-4").(claudeHarness); !ok {
		t.Error("claude-opus-4 should select claudeHarness")
	}
	if _, ok := HarnessFor("mystery-model").(genericHarness); !ok {
		t.Error("unknown model should select genericHarness")
	}
}
