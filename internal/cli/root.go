package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "tdk",
	Short: "Taskdeck - file-based task lifecycle engine",
	Long: `Taskdeck (tdk) tracks units of work through a backlog, an active set,
and an archive, all stored as plain files under a single base directory.

Draft tasks are extracted from planning text into the backlog, promoted
into full task records when work starts, and archived when done. The
scheduler answers "what should I work on next" from priority, due dates,
and dependency readiness.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tdk %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
