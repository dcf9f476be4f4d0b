package models

// Priority represents the urgency tier of a task. The four tiers are fixed:
// P0 is most urgent, P3 least.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// Priorities lists all valid priorities in rank order.
var Priorities = []Priority{P0, P1, P2, P3}

// Rank returns the numeric rank of a priority (P0=0 .. P3=3). Unknown
// priorities rank after P3.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i
		}
	}
	return len(Priorities)
}

// Valid reports whether p is one of the four fixed tiers.
func (p Priority) Valid() bool {
	return p.Rank() < len(Priorities)
}

// Status represents the lifecycle state of an active task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses lists all valid statuses in lifecycle order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusBlocked, StatusReview, StatusDone}

// Valid reports whether s is one of the five fixed statuses.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Subtask is a single checklist item in a task body.
type Subtask struct {
	Text string `yaml:"text"`
	Done bool   `yaml:"done"`
}

// TaskRecord is the canonical task entity. The metadata fields serialize as
// a YAML frontmatter block; Description, Subtasks, and Notes render into the
// markdown body under fixed section headings.
type TaskRecord struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Project  string   `yaml:"project"`
	Priority Priority `yaml:"priority"`
	Status   Status   `yaml:"status"`
	Owner    string   `yaml:"owner,omitempty"`

	// DependsOn holds ordered task IDs this task waits on. Entries may
	// reference tasks that do not exist yet; the scheduler treats those as
	// unmet.
	DependsOn []string `yaml:"depends_on,omitempty"`

	// BlockedBy is advisory: IDs or free-text blocker descriptions. The
	// scheduler never consults it.
	BlockedBy []string `yaml:"blocked_by,omitempty"`

	Tags     []string `yaml:"tags,omitempty"`
	Estimate string   `yaml:"estimate,omitempty"`

	// Due is a calendar date in canonical YYYY-MM-DD form, or empty.
	Due string `yaml:"due,omitempty"`

	// Calendar-date stamps, set forward only.
	Created   string `yaml:"created"`
	Updated   string `yaml:"updated"`
	Completed string `yaml:"completed,omitempty"`
	Archived  string `yaml:"archived,omitempty"`

	// Body content, not part of the frontmatter.
	Subtasks    []Subtask `yaml:"-"`
	Description string    `yaml:"-"`
	Notes       string    `yaml:"-"`
}

// HasTag reports whether the record carries the given tag.
func (t *TaskRecord) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (t *TaskRecord) Clone() *TaskRecord {
	out := *t
	out.DependsOn = append([]string(nil), t.DependsOn...)
	out.BlockedBy = append([]string(nil), t.BlockedBy...)
	out.Tags = append([]string(nil), t.Tags...)
	out.Subtasks = append([]Subtask(nil), t.Subtasks...)
	return &out
}
