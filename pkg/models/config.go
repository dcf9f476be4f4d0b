package models

// GlobalConfig holds settings read from the .taskdeck config file.
type GlobalConfig struct {
	// DefaultProject is the uppercase prefix used when a command does not
	// name a project explicitly.
	DefaultProject string

	// DefaultPriority applies to created and imported tasks that carry no
	// explicit priority.
	DefaultPriority Priority

	// IDPadWidth controls zero-padding of the numeric id suffix.
	IDPadWidth int

	// SubtaskIndent is the leading-whitespace depth beyond which an import
	// line attaches as a subtask of the open candidate.
	SubtaskIndent int

	// NextLimit is the default number of tasks returned by "what next".
	NextLimit int
}
