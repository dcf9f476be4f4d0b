package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taskdeck/taskdeck/internal/core"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check the task stores for consistency problems",
	Long: `Scan the backlog, active set, and archive for integrity issues:
duplicate ids across tiers, malformed ids or due dates, records whose
filename disagrees with their id, broken or self-referential dependencies,
and dependency cycles.

Errors indicate corruption that needs fixing; warnings flag suspicious but
tolerated states. Exits non-zero when any error-severity issue is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Auditor == nil {
			return fmt.Errorf("auditor not initialized")
		}

		issues, err := Auditor.Audit()
		if err != nil {
			return fmt.Errorf("running audit: %w", err)
		}

		if len(issues) == 0 {
			fmt.Println("No issues found.")
			return nil
		}

		errorCount := 0
		for _, issue := range issues {
			if issue.Severity == core.SeverityError {
				errorCount++
			}
			label := strings.ToUpper(string(issue.Severity))
			if issue.TaskID != "" {
				fmt.Printf("[%s] %s: %s\n", label, issue.TaskID, issue.Message)
			} else {
				fmt.Printf("[%s] %s\n", label, issue.Message)
			}
		}

		fmt.Printf("\n%d issue(s): %d error(s), %d warning(s)\n", len(issues), errorCount, len(issues)-errorCount)
		if errorCount > 0 {
			return fmt.Errorf("audit found %d error(s)", errorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
