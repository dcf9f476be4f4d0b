package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/core"
	"github.com/taskdeck/taskdeck/pkg/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active tasks grouped by status",
	Long: `Display the active set grouped by lifecycle status.

Filters combine: --project P --owner @me shows only @me's tasks in P.
Within each group tasks appear in scheduling order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		projectFlag, _ := cmd.Flags().GetString("project")
		ownerFlag, _ := cmd.Flags().GetString("owner")
		statusFlag, _ := cmd.Flags().GetString("status")
		priorityFlag, _ := cmd.Flags().GetString("priority")
		tagFlag, _ := cmd.Flags().GetString("tag")

		grouped, err := Lifecycle.ListTasks(core.ListFilter{
			Project:  projectFlag,
			Owner:    ownerFlag,
			Status:   models.Status(statusFlag),
			Priority: models.Priority(priorityFlag),
			Tag:      tagFlag,
		})
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		total := 0
		for _, status := range models.Statuses {
			tasks, ok := grouped[status]
			if !ok || len(tasks) == 0 {
				continue
			}
			fmt.Printf("%s (%d)\n", strings.ToUpper(string(status)), len(tasks))
			for _, t := range tasks {
				line := fmt.Sprintf("  [%s] %s  %s", t.Priority, t.ID, t.Title)
				if t.Owner != "" {
					line += "  " + t.Owner
				}
				if t.Due != "" {
					line += "  due " + t.Due
				}
				fmt.Println(line)
			}
			total += len(tasks)
		}

		if total == 0 {
			fmt.Println("No tasks match.")
			return nil
		}
		fmt.Printf("\nTotal: %d task(s)\n", total)
		return nil
	},
}

func init() {
	listCmd.Flags().String("project", "", "Only tasks in this project")
	listCmd.Flags().String("owner", "", "Only tasks with this owner")
	listCmd.Flags().String("status", "", "Only tasks in this status")
	listCmd.Flags().String("priority", "", "Only tasks at this priority")
	listCmd.Flags().String("tag", "", "Only tasks carrying this tag")
	_ = listCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	_ = listCmd.RegisterFlagCompletionFunc("priority", completePriorities)
	rootCmd.AddCommand(listCmd)
}
