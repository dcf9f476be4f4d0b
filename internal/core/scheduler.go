package core

import (
	"sort"

	"github.com/taskdeck/taskdeck/pkg/models"
)

// NextFilter narrows the candidate set before ranking.
type NextFilter struct {
	Owner   string
	Project string

	// IncludeBlocked keeps blocked tasks in the set; by default they are
	// excluded.
	IncludeBlocked bool
}

// FilterReady returns the tasks eligible for scheduling: not done, not
// blocked (unless included), matching any owner/project filter, and with
// every dependency satisfied in the snapshot.
func FilterReady(tasks []*models.TaskRecord, snap Snapshot, f NextFilter) []*models.TaskRecord {
	var out []*models.TaskRecord
	for _, t := range tasks {
		if t.Status == models.StatusDone {
			continue
		}
		if t.Status == models.StatusBlocked && !f.IncludeBlocked {
			continue
		}
		if f.Owner != "" && t.Owner != f.Owner {
			continue
		}
		if f.Project != "" && t.Project != f.Project {
			continue
		}
		if !Ready(t, snap) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Rank orders tasks deterministically: in_progress before everything else
// regardless of priority, then priority P0 first, then tasks with a due date
// before tasks without one (two due dates compare lexicographically, which
// is chronological for the canonical YYYY-MM-DD form), then id ascending.
func Rank(tasks []*models.TaskRecord) []*models.TaskRecord {
	ranked := append([]*models.TaskRecord(nil), tasks...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		aActive := a.Status == models.StatusInProgress
		bActive := b.Status == models.StatusInProgress
		if aActive != bActive {
			return aActive
		}

		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}

		// A task with a due date sorts ahead of one without; two missing
		// dates fall through to id order.
		if (a.Due != "") != (b.Due != "") {
			return a.Due != ""
		}
		if a.Due != b.Due {
			return a.Due < b.Due
		}

		return a.ID < b.ID
	})
	return ranked
}
