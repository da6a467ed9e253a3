package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/re-cinq/scriptorium/internal/git"
	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/health"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

var (
	statusFollow   bool
	statusInterval float64
)

func init() {
	statusCmd.Flags().BoolVarP(&statusFollow, "follow", "f", false, "Live-update status (like watch)")
	statusCmd.Flags().Float64VarP(&statusInterval, "interval", "n", 2.0, "Seconds between updates (with --follow)")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <config-file>",
	Short: "Show the state of every ticket on the plan branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAndValidateConfig(args[0])
		if err != nil {
			return err
		}

		repoDir, err := resolveRepo(args[0])
		if err != nil {
			return err
		}

		if statusFollow {
			return followStatus(cfg.Settings.HealthCommands, repoDir)
		}
		return showStatus(cfg.Settings.HealthCommands, repoDir)
	},
}

func followStatus(healthCommands []string, repoDir string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	interval := time.Duration(statusInterval * float64(time.Second))
	var lastOutput string

	for {
		var buf bytes.Buffer
		if err := renderStatus(&buf, healthCommands, repoDir); err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		output := buf.String()

		if output != lastOutput {
			fmt.Print("\033[H\033[2J")
			fmt.Printf("Every %.1fs: scriptorium status\n\n", statusInterval)
			fmt.Print(output)
			lastOutput = output
		}

		select {
		case <-sigCh:
			fmt.Println()
			return nil
		case <-time.After(interval):
		}
	}
}

func showStatus(healthCommands []string, repoDir string) error {
	return renderStatus(os.Stdout, healthCommands, repoDir)
}

func renderStatus(w io.Writer, healthCommands []string, repoDir string) error {
	plan := gitplan.New(repoDir)

	fmt.Fprintln(w, "Master Health")
	fmt.Fprintln(w, "──────────────────────────────────────")
	result := health.NewChecker(repoDir, healthCommands).Run()
	symbol, color := healthDisplay(result.Green)
	if result.Green {
		fmt.Fprintf(w, "  %s%s%s  master is green\n\n", color, symbol, ansiReset)
	} else {
		fmt.Fprintf(w, "  %s%s%s  master is red (failed: %s)\n\n", color, symbol, ansiReset, result.Failed)
	}

	fmt.Fprintln(w, "Ticket Status")
	fmt.Fprintln(w, "──────────────────────────────────────")

	repo := git.NewRepo(repoDir)
	for _, state := range ticket.States {
		names, err := plan.ListMarkdown("tickets/" + string(state) + "/")
		if err != nil {
			fmt.Fprintf(w, "  (could not read tickets/%s: %s)\n", state, err)
			continue
		}
		for _, name := range names {
			raw, err := plan.ReadFile(name)
			if err != nil {
				continue
			}
			body := ticket.ParseTicketBody(raw)
			symbol, color := stateDisplay(state)
			label := body.Title
			if label == "" {
				label = name
			}
			switch state {
			case ticket.StateInProgress:
				fmt.Fprintf(w, "  %s%s%s  %-30s  worktree: %s\n", color, symbol, ansiReset, label, body.Worktree)
			default:
				if body.Failure != nil {
					fmt.Fprintf(w, "  %s%s%s  %-30s  reopened: %s (%s)\n", color, symbol, ansiReset, label, body.Failure.Kind, body.Failure.Summary)
				} else {
					fmt.Fprintf(w, "  %s%s%s  %-30s\n", color, symbol, ansiReset, label)
				}
			}
		}
	}

	if repo.BranchExists(gitplan.PlanBranch) {
		head, err := plan.HeadCommit()
		if err == nil {
			fmt.Fprintf(w, "\nplan branch at %s\n", short(head))
		}
	}

	return nil
}

// readLastLines reads the last n lines from a file, returning "" if the file doesn't exist.
func readLastLines(path string, n int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n") + "\n"
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
