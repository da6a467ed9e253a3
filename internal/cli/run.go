package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/generator"
	"github.com/re-cinq/scriptorium/internal/mcpendpoint"
	"github.com/re-cinq/scriptorium/internal/orchestrator"
)

const shutdownGrace = 5 * time.Second

var runTicks int

func init() {
	runCmd.Flags().IntVar(&runTicks, "ticks", 0, "Run at most N ticks and exit (0 = run until shutdown)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run <config-file>",
	Short: "Run the scriptorium daemon",
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

		project := filepath.Base(repoDir)
		logPath := fileutil.RunLogPath(project, time.Now())
		if err := fileutil.EnsureDir(filepath.Dir(logPath)); err != nil {
			return err
		}
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer logFile.Close()
		fileutil.ConfigureLogger(logFile, logLevel(cfg.Settings.LogLevel))
		fmt.Printf("scriptorium daemon started; logs: %s\n", logPath)

		unlock, err := orchestrator.AcquireRunLock(repoDir)
		if err != nil {
			if orchestrator.IsLockHeld(err) {
				fmt.Fprintln(os.Stderr, "Error: another scriptorium run is already in progress for this repository")
			}
			return err
		}
		defer unlock()

		mcp, err := mcpendpoint.New(cfg)
		if err != nil {
			return fmt.Errorf("building MCP endpoint: %w", err)
		}
		if err := mcp.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			_ = mcp.Shutdown(ctx)
		}()
		fmt.Printf("listening on %s/mcp\n", mcp.Addr())

		gen := generator.Default{Binary: "codex", LogRoot: fileutil.LogRoot(project)}
		orch := orchestrator.New(repoDir, cfg, gen, gen, mcp, project)

		ctx := context.Background()
		if runTicks > 0 {
			return orch.RunOrchestratorForTicks(ctx, runTicks)
		}
		return orch.RunOrchestrator(ctx)
	},
}

func logLevel(name string) slog.Level {
	switch name {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
