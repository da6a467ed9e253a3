package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/orchestrator"
	"github.com/re-cinq/scriptorium/internal/scerrors"
)

func init() {
	rootCmd.AddCommand(worktreesCmd)
}

var worktreesCmd = &cobra.Command{
	Use:   "worktrees <config-file>",
	Short: "List active ticket worktrees from the manifest cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadAndValidateConfig(args[0]); err != nil {
			return err
		}

		repoDir, err := resolveRepo(args[0])
		if err != nil {
			return err
		}

		manifest, err := orchestrator.ReadManifest(repoDir)
		if err != nil {
			return fmt.Errorf("reading worktree manifest: %w", err)
		}

		source := manifest.UpdatedAt
		if len(manifest.Entries) == 0 {
			// Cache missing or empty: re-derive from the plan branch itself
			// (P12) rather than report nothing just because the cache is gone.
			// A missing plan branch has no in-progress tickets to list.
			manifest, err = orchestrator.DeriveManifestFromPlan(repoDir, gitplan.New(repoDir))
			if err != nil && !errors.Is(err, scerrors.ErrPlanBranchMissing) {
				return fmt.Errorf("deriving worktree manifest from plan branch: %w", err)
			}
			source = "plan branch, cache unavailable"
		}

		if len(manifest.Entries) == 0 {
			fmt.Println("no active worktrees")
			return nil
		}

		fmt.Fprintf(os.Stdout, "Active Worktrees (as of %s)\n", source)
		fmt.Println("──────────────────────────────────────")
		for _, e := range manifest.Entries {
			area := e.AreaID
			if area == "" {
				area = "-"
			}
			fmt.Printf("  %04d  %-28s  area: %-16s  branch: %s\n", e.TicketID, e.Worktree, area, e.Branch)
		}
		return nil
	},
}
