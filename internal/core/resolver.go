package core

import "github.com/taskdeck/taskdeck/pkg/models"

// Snapshot is a point-in-time view of resolvable task records, keyed by id.
// It spans the active and archive stores: archived tasks keep satisfying
// dependencies through their frozen done status.
type Snapshot map[string]*models.TaskRecord

// Ready reports whether every dependency of task is satisfied in the
// snapshot. A task with no dependencies is ready. A reference that does not
// resolve, or resolves to a record that is not done, is unmet: resolution
// fails closed.
//
// No cycle detection happens here; a dependency cycle simply never becomes
// ready. The audit pass flags cycles.
func Ready(task *models.TaskRecord, snap Snapshot) bool {
	for _, dep := range task.DependsOn {
		ref, ok := snap[dep]
		if !ok || ref.Status != models.StatusDone {
			return false
		}
	}
	return true
}
