package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/orchestrator"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

func init() {
	rootCmd.AddCommand(statuslineCmd)
}

var statuslineCmd = &cobra.Command{
	Use:    "statusline",
	Short:  "Render a one-line ticket summary for Claude Code's statusline (reads JSON from stdin)",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		dir := resolveProjectDir(input)
		if dir == "" {
			return nil
		}

		configPath := findScriptoriumConfig(dir)
		if configPath == "" {
			return nil
		}

		if _, err := loadAndValidateConfig(configPath); err != nil {
			return nil
		}

		repoDir := findGitRoot(filepath.Dir(configPath))
		if repoDir == "" {
			return nil
		}

		rendered := renderStatusline(repoDir)
		if rendered != "" {
			fmt.Print(rendered)
		}
		return nil
	},
}

// claudeCodeInput represents the JSON object Claude Code passes on stdin.
type claudeCodeInput struct {
	CWD       string `json:"cwd"`
	Workspace *struct {
		ProjectDir string `json:"project_dir"`
	} `json:"workspace"`
}

// resolveProjectDir extracts the project directory from Claude Code's stdin JSON.
func resolveProjectDir(input []byte) string {
	var ci claudeCodeInput
	if err := json.Unmarshal(input, &ci); err != nil {
		return ""
	}
	if ci.Workspace != nil && ci.Workspace.ProjectDir != "" {
		return ci.Workspace.ProjectDir
	}
	return ci.CWD
}

// findScriptoriumConfig walks up from dir looking for scriptorium.json.
func findScriptoriumConfig(dir string) string {
	for {
		p := filepath.Join(dir, "scriptorium.json")
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// renderStatusline builds a compact colored summary: daemon liveness, master
// health, and ticket counts by state, with the in-progress ticket's title if
// any (there is at most one, per the single in-progress invariant).
func renderStatusline(repoDir string) string {
	plan := gitplan.New(repoDir)

	counts := map[ticket.State]int{}
	var activeLabel string
	for _, state := range ticket.States {
		names, err := plan.ListMarkdown("tickets/" + string(state) + "/")
		if err != nil {
			return fmt.Sprintf("%sscriptorium: plan branch not found%s", ansiDim, ansiReset)
		}
		counts[state] = len(names)
		if state == ticket.StateInProgress && len(names) > 0 {
			raw, err := plan.ReadFile(names[0])
			if err == nil {
				body := ticket.ParseTicketBody(raw)
				activeLabel = body.Title
			}
		}
	}

	running := orchestrator.IsRunLocked(repoDir)
	runSymbol, runColor := "○", ansiDim
	if running {
		runSymbol, runColor = "●", ansiGreen
	}

	summary := fmt.Sprintf("%s%s daemon%s  %sopen:%d%s  %sin-progress:%d%s  %sdone:%d%s",
		runColor, runSymbol, ansiReset,
		ansiYellow, counts[ticket.StateOpen], ansiReset,
		ansiCyan, counts[ticket.StateInProgress], ansiReset,
		ansiGreen, counts[ticket.StateDone], ansiReset)

	if activeLabel != "" {
		summary += fmt.Sprintf("  %s⟳ %s%s", ansiCyan, activeLabel, ansiReset)
	}
	return summary
}
