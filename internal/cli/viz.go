package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/scriptorium/internal/gitplan"
	"github.com/re-cinq/scriptorium/internal/ticket"
)

func init() {
	rootCmd.AddCommand(vizCmd)
}

var vizCmd = &cobra.Command{
	Use:   "viz <config-file>",
	Short: "Visualize the area/ticket tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadAndValidateConfig(args[0]); err != nil {
			return err
		}

		repoDir, err := resolveRepo(args[0])
		if err != nil {
			return err
		}

		return printAreaTree(gitplan.New(repoDir))
	},
}

func printAreaTree(plan *gitplan.Store) error {
	areaPaths, err := plan.ListMarkdown("areas/")
	if err != nil {
		return fmt.Errorf("listing areas: %w", err)
	}
	if len(areaPaths) == 0 {
		fmt.Println("(no areas)")
		return nil
	}

	ticketsByArea := make(map[string][]string)
	for _, state := range ticket.States {
		names, err := plan.ListMarkdown("tickets/" + string(state) + "/")
		if err != nil {
			return fmt.Errorf("listing tickets/%s: %w", state, err)
		}
		for _, name := range names {
			raw, err := plan.ReadFile(name)
			if err != nil {
				continue
			}
			areaID := ticket.ParseAreaID(raw)
			symbol, _ := stateDisplay(state)
			ticketsByArea[areaID] = append(ticketsByArea[areaID], fmt.Sprintf("%s %s", symbol, name))
		}
	}

	for i, areaPath := range areaPaths {
		isLastArea := i == len(areaPaths)-1
		areaID := ticket.AreaStem(areaPath)
		fmt.Printf("[%s]\n", areaID)
		tickets := ticketsByArea[areaID]
		for j, t := range tickets {
			printVizLeaf(t, "", j == len(tickets)-1)
		}
		if !isLastArea {
			fmt.Println()
		}
	}
	return nil
}

func printVizLeaf(label, prefix string, isLast bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	fmt.Printf("%s%s%s\n", prefix, connector, label)
}
