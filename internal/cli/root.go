package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "scriptorium",
	Short: "Drive LLM coding agents through a git-native planning and merge workflow",
	Long: `Scriptorium is a daemon that drives coding agents through a git-native
planning and merge workflow. A single repository hosts both the product
source (on master) and a parallel planning branch (scriptorium/plan) that
stores a living specification, an area decomposition, and a ticket
lifecycle (open -> in-progress -> done).

Each tick generates areas from the spec, generates tickets per area,
assigns the oldest open ticket to a coding agent in an isolated worktree,
waits for the agent's submit_pr completion signal, and serializes merges
back to master through a single-flight merge queue.`,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scriptorium %s\n", Version)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
