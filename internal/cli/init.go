package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/re-cinq/scriptorium/internal/fileutil"
	"github.com/re-cinq/scriptorium/internal/git"
	"github.com/re-cinq/scriptorium/internal/gitplan"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

const placeholderSpec = `# Specification

Describe the system to build here. The architect reads this file to
generate areas; the manager reads each area to generate tickets.
`

var initCmd = &cobra.Command{
	Use:   "init <config-file> [spec-file]",
	Short: "Bootstrap the scriptorium/plan branch",
	Long: `Create the scriptorium/plan branch with an empty ticket lifecycle
(tickets/open, tickets/in-progress, tickets/done), an empty areas/
directory, and an empty merge queue (queue/merge/pending). spec.md is
seeded from spec-file if given, otherwise from a placeholder.

Fails if scriptorium/plan already exists.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadAndValidateConfig(args[0]); err != nil {
			return err
		}

		repoDir, err := resolveRepo(args[0])
		if err != nil {
			return err
		}

		repo := git.NewRepo(repoDir)
		if repo.BranchExists(gitplan.PlanBranch) {
			return fmt.Errorf("%s already exists", gitplan.PlanBranch)
		}

		specContent := placeholderSpec
		if len(args) == 2 {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[1], err)
			}
			specContent = string(data)
		}

		if err := bootstrapPlanBranch(repoDir, specContent); err != nil {
			return err
		}

		fmt.Printf("  branch %s\n", gitplan.PlanBranch)
		fmt.Println("  spec.md")
		fmt.Println("  areas/")
		fmt.Println("  tickets/{open,in-progress,done}/")
		fmt.Println("  queue/merge/pending/")
		fmt.Println("\nDone.")
		return nil
	},
}

// bootstrapPlanBranch creates scriptorium/plan as an orphan branch seeded
// with the directory layout C1-C5 expect to already exist, in one commit.
func bootstrapPlanBranch(repoDir, specContent string) error {
	repo := git.NewRepo(repoDir)

	scratchRoot := fileutil.ScriptoriumSubdir(repoDir, "plan-init")
	if err := fileutil.EnsureDir(scratchRoot); err != nil {
		return err
	}
	path := filepath.Join(scratchRoot, "bootstrap")
	defer func() {
		_ = repo.RemoveWorktree(path)
		_ = os.RemoveAll(path)
	}()

	if err := repo.CreateOrphanWorktree(path, gitplan.PlanBranch); err != nil {
		return fmt.Errorf("creating %s: %w", gitplan.PlanBranch, err)
	}

	wt := git.NewRepo(path)
	wt.EnsureIdentity()

	files := map[string]string{
		"spec.md":                            specContent,
		"areas/.gitkeep":                     "",
		"tickets/open/.gitkeep":              "",
		"tickets/in-progress/.gitkeep":       "",
		"tickets/done/.gitkeep":              "",
		"queue/merge/pending/.gitkeep":       "",
	}
	for rel, content := range files {
		full := filepath.Join(path, rel)
		if err := fileutil.EnsureDir(filepath.Dir(full)); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return err
		}
	}

	if _, err := wt.CommitIfChanged("bootstrap scriptorium/plan"); err != nil {
		return err
	}
	return nil
}
