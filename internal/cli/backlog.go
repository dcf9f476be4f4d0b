package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/pkg/models"
)

var backlogCmd = &cobra.Command{
	Use:   "backlog",
	Short: "Show backlog candidates awaiting promotion",
	Long: `List the draft candidates sitting in the backlog, grouped by priority.

Promoted candidates are hidden by default; use --all to include them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		showAll, _ := cmd.Flags().GetBool("all")

		cands, err := Lifecycle.Candidates()
		if err != nil {
			return fmt.Errorf("listing backlog: %w", err)
		}

		byPriority := make(map[models.Priority][]models.Candidate)
		shown := 0
		for _, cand := range cands {
			if cand.Promoted && !showAll {
				continue
			}
			p := cand.Priority
			if !p.Valid() {
				p = models.P3
			}
			byPriority[p] = append(byPriority[p], cand)
			shown++
		}

		if shown == 0 {
			fmt.Println("Backlog is empty.")
			return nil
		}

		for _, p := range models.Priorities {
			group := byPriority[p]
			if len(group) == 0 {
				continue
			}
			sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
			fmt.Printf("%s (%d)\n", p, len(group))
			for _, cand := range group {
				line := fmt.Sprintf("  %s  %s", cand.ID, cand.Title)
				if len(cand.Tags) > 0 {
					line += "  [" + strings.Join(cand.Tags, ", ") + "]"
				}
				if cand.Promoted {
					line += "  (promoted)"
				}
				fmt.Println(line)
			}
		}

		fmt.Printf("\nTotal: %d candidate(s)\n", shown)
		return nil
	},
}

func init() {
	backlogCmd.Flags().Bool("all", false, "Include promoted candidates")
	rootCmd.AddCommand(backlogCmd)
}
