package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/core"
	"github.com/taskdeck/taskdeck/pkg/models"
)

// completeTaskIDs returns a completion function that lists active task ids,
// optionally filtered to exclude certain statuses.
func completeTaskIDs(excludeStatuses ...models.Status) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if Lifecycle == nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		grouped, err := Lifecycle.ListTasks(core.ListFilter{})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		exclude := make(map[models.Status]bool)
		for _, s := range excludeStatuses {
			exclude[s] = true
		}

		var ids []string
		for status, tasks := range grouped {
			if exclude[status] {
				continue
			}
			for _, task := range tasks {
				if toComplete == "" || strings.HasPrefix(task.ID, toComplete) {
					// Include the title as a description for better UX.
					ids = append(ids, task.ID+"\t"+task.Title)
				}
			}
		}

		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeBacklogIDs lists unpromoted backlog candidate ids.
func completeBacklogIDs(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if Lifecycle == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cands, err := Lifecycle.Candidates()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var ids []string
	for _, cand := range cands {
		if cand.Promoted {
			continue
		}
		if toComplete == "" || strings.HasPrefix(cand.ID, toComplete) {
			ids = append(ids, cand.ID+"\t"+cand.Title)
		}
	}

	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completePriorities returns a completion function for priority values.
func completePriorities(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"P0\tCritical",
		"P1\tHigh",
		"P2\tMedium",
		"P3\tLow",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeStatuses returns a completion function for task status values.
func completeStatuses(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"todo\tQueued for work",
		"in_progress\tActively being worked on",
		"blocked\tWaiting on something",
		"review\tIn review",
		"done\tCompleted",
	}, cobra.ShellCompDirectiveNoFileComp
}
