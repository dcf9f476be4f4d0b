package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/core"
	"github.com/taskdeck/taskdeck/pkg/models"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Extract draft tasks from planning text into the backlog",
	Long: `Scan a markdown planning document for bullet lines and insert them into
the backlog as draft candidates.

Headings become phase and section labels, [bracketed] markers become tags,
and priority keywords in the title (critical, high, low, ...) set the
candidate's priority. Nested bullets attach to their parent as subtasks.

Reads from stdin when no file is given. Use --dry-run to preview the
candidates without touching the backlog.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("lifecycle controller not initialized")
		}

		var text []byte
		var err error
		if len(args) == 1 {
			text, err = os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
		} else {
			text, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
		}

		projectFlag, _ := cmd.Flags().GetString("project")
		priorityFlag, _ := cmd.Flags().GetString("priority")
		phaseFlag, _ := cmd.Flags().GetString("phase")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		cands, inserted, err := Lifecycle.ImportTasks(core.ImportOptions{
			Text:            string(text),
			Project:         projectFlag,
			DefaultPriority: models.Priority(priorityFlag),
			PhaseFilter:     phaseFlag,
			DryRun:          dryRun,
		})
		if err != nil {
			return fmt.Errorf("importing tasks: %w", err)
		}

		if len(cands) == 0 {
			fmt.Println("No candidates found.")
			return nil
		}

		for _, cand := range cands {
			id := cand.ID
			if id == "" {
				id = "(unassigned)"
			}
			line := fmt.Sprintf("  [%s] %s  %s", cand.Priority, id, cand.Title)
			if cand.Phase != "" {
				line += "  (" + cand.Phase + ")"
			}
			fmt.Println(line)
			for _, sub := range cand.Subtasks {
				fmt.Printf("      - %s\n", sub)
			}
		}

		if dryRun {
			fmt.Printf("\nDry run: %d candidate(s), nothing written.\n", len(cands))
			return nil
		}
		fmt.Printf("\nInserted %d candidate(s) into the backlog.\n", inserted)
		return nil
	},
}

func init() {
	importCmd.Flags().String("project", "", "Project prefix for allocated ids")
	importCmd.Flags().String("priority", "", "Priority for titles with no keyword (default from config)")
	importCmd.Flags().String("phase", "", "Only import candidates under this level-2 heading")
	importCmd.Flags().Bool("dry-run", false, "Preview candidates without writing the backlog")
	_ = importCmd.RegisterFlagCompletionFunc("priority", completePriorities)
	rootCmd.AddCommand(importCmd)
}
