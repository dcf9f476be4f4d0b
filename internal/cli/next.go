package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/core"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the tasks to work on next",
	Long: `Answer "what should I work on next" from the active set.

Tasks with unfinished or missing dependencies are excluded. The rest are
ordered with in_progress work first, then by priority, due date (dated
tasks before undated ones), and id.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		ownerFlag, _ := cmd.Flags().GetString("owner")
		projectFlag, _ := cmd.Flags().GetString("project")
		includeBlocked, _ := cmd.Flags().GetBool("include-blocked")
		limitFlag, _ := cmd.Flags().GetInt("limit")

		tasks, err := Lifecycle.NextTasks(core.NextOptions{
			Owner:          ownerFlag,
			Project:        projectFlag,
			IncludeBlocked: includeBlocked,
			Limit:          limitFlag,
		})
		if err != nil {
			return fmt.Errorf("getting next tasks: %w", err)
		}

		if len(tasks) == 0 {
			fmt.Println("Nothing ready to work on.")
			return nil
		}

		for i, t := range tasks {
			line := fmt.Sprintf("%d. [%s] %s  %s", i+1, t.Priority, t.ID, t.Title)
			if t.Status != "" && t.Status != "todo" {
				line += fmt.Sprintf(" (%s)", t.Status)
			}
			if t.Due != "" {
				line += fmt.Sprintf(" due %s", t.Due)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	nextCmd.Flags().String("owner", "", "Only tasks with this owner")
	nextCmd.Flags().String("project", "", "Only tasks in this project")
	nextCmd.Flags().Bool("include-blocked", false, "Keep blocked tasks in the result")
	nextCmd.Flags().Int("limit", 0, "Maximum tasks to show (default from config)")
	rootCmd.AddCommand(nextCmd)
}
