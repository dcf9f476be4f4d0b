package models

// Candidate is a draft task extracted from planning text and held in the
// backlog until promotion. Candidates carry only title, priority, heading
// context, tags, and nested subtask lines; owner, estimate, and dependencies
// are supplied at promotion time.
type Candidate struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Priority Priority `yaml:"priority"`
	Phase    string   `yaml:"phase,omitempty"`
	Section  string   `yaml:"section,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
	Subtasks []string `yaml:"subtasks,omitempty"`

	// Promoted marks a candidate that has been materialized into an active
	// task. Promoted entries are kept as audit markers, never deleted.
	Promoted bool `yaml:"promoted,omitempty"`

	Created string `yaml:"created,omitempty"`
}
