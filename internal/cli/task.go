package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/core"
	"github.com/taskdeck/taskdeck/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, show, update, promote, archive, unarchive)",
	Long: `Unified task management commands.

Create tasks directly in the active set, inspect and update their fields,
promote backlog candidates, and move finished work to the archive.`,
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new active task",
	Long: `Create a task directly in the active set, bypassing the backlog.

The task receives the next free id for its project. Use --project to pick
the project prefix; otherwise the configured default project is used.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		title := strings.Join(args, " ")
		projectFlag, _ := cmd.Flags().GetString("project")
		priorityFlag, _ := cmd.Flags().GetString("priority")
		statusFlag, _ := cmd.Flags().GetString("status")
		ownerFlag, _ := cmd.Flags().GetString("owner")
		dependsFlag, _ := cmd.Flags().GetStringSlice("depends-on")
		estimateFlag, _ := cmd.Flags().GetString("estimate")
		dueFlag, _ := cmd.Flags().GetString("due")
		tagsFlag, _ := cmd.Flags().GetStringSlice("tags")
		subtasksFlag, _ := cmd.Flags().GetStringSlice("subtask")

		rec, err := Lifecycle.CreateTask(core.CreateOptions{
			Title:     title,
			Project:   projectFlag,
			Priority:  models.Priority(priorityFlag),
			Status:    models.Status(statusFlag),
			Owner:     ownerFlag,
			DependsOn: dependsFlag,
			Estimate:  estimateFlag,
			Due:       dueFlag,
			Tags:      tagsFlag,
			Subtasks:  subtasksFlag,
		})
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		fmt.Printf("Created task %s\n", rec.ID)
		printTaskDetail(rec)
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Display a task's full record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		rec, err := Lifecycle.GetTask(args[0])
		if err != nil {
			return fmt.Errorf("reading task %s: %w", args[0], err)
		}

		printTaskDetail(rec)
		if rec.Description != "" {
			fmt.Printf("\nDescription:\n%s\n", indentBlock(rec.Description))
		}
		if len(rec.Subtasks) > 0 {
			fmt.Println("\nSubtasks:")
			for _, st := range rec.Subtasks {
				box := " "
				if st.Done {
					box = "x"
				}
				fmt.Printf("  [%s] %s\n", box, st.Text)
			}
		}
		if rec.Notes != "" {
			fmt.Printf("\nNotes:\n%s\n", indentBlock(rec.Notes))
		}
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update fields of an active task",
	Long: `Update fields of an active task. Only the flags you pass are changed.

Changing --status to done stamps the completion date. Pass a --description
beginning with "append:" to concatenate onto the existing description
instead of replacing it.

The checklist is edited with --check/--uncheck, which toggle a subtask's
done flag by its text or 1-based position, or replaced wholesale with
repeated --subtask flags.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		titleFlag, _ := cmd.Flags().GetString("title")
		priorityFlag, _ := cmd.Flags().GetString("priority")
		statusFlag, _ := cmd.Flags().GetString("status")
		ownerFlag, _ := cmd.Flags().GetString("owner")
		dependsFlag, _ := cmd.Flags().GetStringSlice("depends-on")
		blockedFlag, _ := cmd.Flags().GetStringSlice("blocked-by")
		estimateFlag, _ := cmd.Flags().GetString("estimate")
		dueFlag, _ := cmd.Flags().GetString("due")
		tagsFlag, _ := cmd.Flags().GetStringSlice("tags")
		descFlag, _ := cmd.Flags().GetString("description")
		notesFlag, _ := cmd.Flags().GetString("notes")
		subtaskFlag, _ := cmd.Flags().GetStringSlice("subtask")
		checkFlag, _ := cmd.Flags().GetStringSlice("check")
		uncheckFlag, _ := cmd.Flags().GetStringSlice("uncheck")

		var subtasks []models.Subtask
		switch {
		case len(subtaskFlag) > 0:
			if len(checkFlag) > 0 || len(uncheckFlag) > 0 {
				return fmt.Errorf("--subtask replaces the checklist and cannot be combined with --check or --uncheck")
			}
			subtasks = make([]models.Subtask, len(subtaskFlag))
			for i, text := range subtaskFlag {
				subtasks[i] = models.Subtask{Text: text}
			}
		case len(checkFlag) > 0 || len(uncheckFlag) > 0:
			rec, err := Lifecycle.GetTask(args[0])
			if err != nil {
				return fmt.Errorf("reading task %s: %w", args[0], err)
			}
			subtasks, err = toggleSubtasks(rec.Subtasks, checkFlag, uncheckFlag)
			if err != nil {
				return err
			}
		}

		_, changed, err := Lifecycle.UpdateTask(args[0], core.UpdateOptions{
			Title:       titleFlag,
			Priority:    models.Priority(priorityFlag),
			Status:      models.Status(statusFlag),
			Owner:       ownerFlag,
			DependsOn:   dependsFlag,
			BlockedBy:   blockedFlag,
			Estimate:    estimateFlag,
			Due:         dueFlag,
			Tags:        tagsFlag,
			Subtasks:    subtasks,
			Description: descFlag,
			Notes:       notesFlag,
		})
		if err != nil {
			return fmt.Errorf("updating task %s: %w", args[0], err)
		}

		if len(changed) == 0 {
			fmt.Printf("Task %s unchanged\n", args[0])
			return nil
		}
		fmt.Printf("Updated task %s (%s)\n", args[0], strings.Join(changed, ", "))
		return nil
	},
}

var taskPromoteCmd = &cobra.Command{
	Use:   "promote <task-id>",
	Short: "Promote a backlog candidate into the active set",
	Long: `Materialize a backlog candidate into a full task record in the active set.

The candidate stays in the backlog marked as promoted. Promoting an id that
is already active is a no-op with a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		ownerFlag, _ := cmd.Flags().GetString("owner")
		priorityFlag, _ := cmd.Flags().GetString("priority")
		dependsFlag, _ := cmd.Flags().GetStringSlice("depends-on")
		estimateFlag, _ := cmd.Flags().GetString("estimate")
		dueFlag, _ := cmd.Flags().GetString("due")

		rec, warning, err := Lifecycle.PromoteTask(args[0], core.PromoteOptions{
			Owner:            ownerFlag,
			PriorityOverride: models.Priority(priorityFlag),
			DependsOn:        dependsFlag,
			Estimate:         estimateFlag,
			Due:              dueFlag,
		})
		if err != nil {
			return fmt.Errorf("promoting task %s: %w", args[0], err)
		}

		if warning != "" {
			fmt.Printf("Warning: %s\n", warning)
			return nil
		}
		fmt.Printf("Promoted task %s\n", rec.ID)
		printTaskDetail(rec)
		return nil
	},
}

var taskArchiveForce bool

var taskArchiveCmd = &cobra.Command{
	Use:   "archive <task-id>",
	Short: "Move a done task to the archive",
	Long: `Move a completed task out of the active set and into the archive.

By default only tasks in done status can be archived. Use --force to
archive a task in any status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		rec, err := Lifecycle.ArchiveTask(args[0], taskArchiveForce)
		if err != nil {
			return fmt.Errorf("archiving task %s: %w", args[0], err)
		}

		fmt.Printf("Archived task %s (archived %s)\n", rec.ID, rec.Archived)
		return nil
	},
}

var taskUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <task-id>",
	Short: "Restore an archived task to the active set",
	Long: `Return an archived task to the active set at its frozen status,
allowing work to continue where it left off.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		rec, err := Lifecycle.UnarchiveTask(args[0])
		if err != nil {
			return fmt.Errorf("unarchiving task %s: %w", args[0], err)
		}

		fmt.Printf("Unarchived task %s (status %s)\n", rec.ID, rec.Status)
		return nil
	},
}

// toggleSubtasks returns a copy of subtasks with the referenced items
// checked or unchecked. A reference is either the item's exact text or its
// 1-based position in the checklist.
func toggleSubtasks(subtasks []models.Subtask, checks, unchecks []string) ([]models.Subtask, error) {
	out := append([]models.Subtask(nil), subtasks...)

	set := func(ref string, done bool) error {
		if n, err := strconv.Atoi(ref); err == nil {
			if n < 1 || n > len(out) {
				return fmt.Errorf("subtask %d does not exist (task has %d)", n, len(out))
			}
			out[n-1].Done = done
			return nil
		}
		for i := range out {
			if out[i].Text == ref {
				out[i].Done = done
				return nil
			}
		}
		return fmt.Errorf("no subtask matches %q", ref)
	}

	for _, ref := range checks {
		if err := set(ref, true); err != nil {
			return nil, err
		}
	}
	for _, ref := range unchecks {
		if err := set(ref, false); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func printTaskDetail(rec *models.TaskRecord) {
	fmt.Printf("  Title:    %s\n", rec.Title)
	fmt.Printf("  Project:  %s\n", rec.Project)
	fmt.Printf("  Priority: %s\n", rec.Priority)
	fmt.Printf("  Status:   %s\n", rec.Status)
	if rec.Owner != "" {
		fmt.Printf("  Owner:    %s\n", rec.Owner)
	}
	if len(rec.DependsOn) > 0 {
		fmt.Printf("  Depends:  %s\n", strings.Join(rec.DependsOn, ", "))
	}
	if rec.Due != "" {
		fmt.Printf("  Due:      %s\n", rec.Due)
	}
	if rec.Estimate != "" {
		fmt.Printf("  Estimate: %s\n", rec.Estimate)
	}
	if len(rec.Tags) > 0 {
		fmt.Printf("  Tags:     %s\n", strings.Join(rec.Tags, ", "))
	}
}

func indentBlock(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

func init() {
	taskCreateCmd.Flags().String("project", "", "Project prefix for the task id (e.g. AUTH)")
	taskCreateCmd.Flags().String("priority", "", "Task priority (P0, P1, P2, P3)")
	taskCreateCmd.Flags().String("status", "", "Initial status (default todo)")
	taskCreateCmd.Flags().String("owner", "", "Task owner (e.g. @username)")
	taskCreateCmd.Flags().StringSlice("depends-on", nil, "Task ids this task waits on")
	taskCreateCmd.Flags().String("estimate", "", "Effort estimate (e.g. 2d)")
	taskCreateCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	taskCreateCmd.Flags().StringSlice("tags", nil, "Comma-separated tags for the task")
	taskCreateCmd.Flags().StringSlice("subtask", nil, "Checklist item (repeatable)")
	_ = taskCreateCmd.RegisterFlagCompletionFunc("priority", completePriorities)
	_ = taskCreateCmd.RegisterFlagCompletionFunc("status", completeStatuses)

	taskShowCmd.ValidArgsFunction = completeTaskIDs()

	taskUpdateCmd.Flags().String("title", "", "New title")
	taskUpdateCmd.Flags().String("priority", "", "New priority (P0, P1, P2, P3)")
	taskUpdateCmd.Flags().String("status", "", "New status (todo, in_progress, blocked, review, done)")
	taskUpdateCmd.Flags().String("owner", "", "New owner")
	taskUpdateCmd.Flags().StringSlice("depends-on", nil, "Replace the dependency list")
	taskUpdateCmd.Flags().StringSlice("blocked-by", nil, "Replace the blocked-by list")
	taskUpdateCmd.Flags().String("estimate", "", "New estimate")
	taskUpdateCmd.Flags().String("due", "", "New due date (YYYY-MM-DD)")
	taskUpdateCmd.Flags().StringSlice("tags", nil, "Replace the tag list")
	taskUpdateCmd.Flags().String("description", "", "Replace the description (prefix with 'append:' to concatenate)")
	taskUpdateCmd.Flags().String("notes", "", "Replace the notes section")
	taskUpdateCmd.Flags().StringSlice("subtask", nil, "Replace the checklist with these items (repeatable)")
	taskUpdateCmd.Flags().StringSlice("check", nil, "Mark a subtask done, by text or 1-based position (repeatable)")
	taskUpdateCmd.Flags().StringSlice("uncheck", nil, "Mark a subtask not done, by text or 1-based position (repeatable)")
	_ = taskUpdateCmd.RegisterFlagCompletionFunc("priority", completePriorities)
	_ = taskUpdateCmd.RegisterFlagCompletionFunc("status", completeStatuses)
	taskUpdateCmd.ValidArgsFunction = completeTaskIDs()

	taskPromoteCmd.Flags().String("owner", "", "Owner for the promoted task")
	taskPromoteCmd.Flags().String("priority", "", "Override the candidate's priority")
	taskPromoteCmd.Flags().StringSlice("depends-on", nil, "Task ids the promoted task waits on")
	taskPromoteCmd.Flags().String("estimate", "", "Effort estimate")
	taskPromoteCmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	_ = taskPromoteCmd.RegisterFlagCompletionFunc("priority", completePriorities)
	taskPromoteCmd.ValidArgsFunction = completeBacklogIDs

	taskArchiveCmd.Flags().BoolVar(&taskArchiveForce, "force", false, "Archive even if the task is not done")
	taskArchiveCmd.ValidArgsFunction = completeTaskIDs()

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskUpdateCmd)
	taskCmd.AddCommand(taskPromoteCmd)
	taskCmd.AddCommand(taskArchiveCmd)
	taskCmd.AddCommand(taskUnarchiveCmd)

	rootCmd.AddCommand(taskCmd)
}
