package core

import (
	"fmt"
	"sort"

	"github.com/taskdeck/taskdeck/pkg/models"
)

// IssueSeverity classifies audit findings.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single cross-record consistency finding.
type Issue struct {
	Severity IssueSeverity
	TaskID   string
	Message  string
}

// Auditor performs the optional consistency pass over all three stores.
// Normal mutations never run these checks inline, so invalid states can
// persist until Audit is invoked.
type Auditor struct {
	backlog CandidateStore
	active  RecordStore
	archive RecordStore
}

// NewAuditor creates an Auditor over the given stores.
func NewAuditor(backlog CandidateStore, active, archive RecordStore) *Auditor {
	return &Auditor{backlog: backlog, active: active, archive: archive}
}

// Audit checks for duplicate ids across stores, malformed ids, filename/id
// mismatches, self-referential and broken dependencies, malformed due
// dates, and dependency cycles. It returns every issue found, sorted by
// task id.
func (a *Auditor) Audit() ([]Issue, error) {
	var issues []Issue

	if err := a.backlog.Load(); err != nil {
		return nil, fmt.Errorf("auditing: loading backlog: %w", err)
	}
	backlogIDs, err := a.backlog.IDs()
	if err != nil {
		return nil, fmt.Errorf("auditing: %w", err)
	}
	activeRecs, err := a.active.List()
	if err != nil {
		return nil, fmt.Errorf("auditing: listing active tasks: %w", err)
	}
	archiveRecs, err := a.archive.List()
	if err != nil {
		return nil, fmt.Errorf("auditing: listing archived tasks: %w", err)
	}

	// Duplicate ids across the three tiers. Promoted backlog entries are
	// audit markers, so their ids legitimately also appear active.
	seen := make(map[string]string)
	note := func(id, tier string) {
		if prev, dup := seen[id]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				TaskID:   id,
				Message:  fmt.Sprintf("id present in both %s and %s", prev, tier),
			})
			return
		}
		seen[id] = tier
	}
	for _, rec := range activeRecs {
		note(rec.ID, "active")
	}
	for _, rec := range archiveRecs {
		note(rec.ID, "archive")
	}
	for _, id := range backlogIDs {
		cand, err := a.backlog.Get(id)
		if err != nil {
			continue
		}
		if cand.Promoted {
			continue
		}
		note(id, "backlog")
	}

	// Malformed ids and filename/id mismatches.
	issues = append(issues, a.auditStoreIDs(a.active, "active")...)
	issues = append(issues, a.auditStoreIDs(a.archive, "archive")...)
	for _, id := range backlogIDs {
		if _, _, ok := ParseTaskID(id); !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				TaskID:   id,
				Message:  "backlog id is not a {PROJECT}-{NNN} identifier",
			})
		}
	}

	// Per-record field checks against the combined snapshot.
	snap := make(Snapshot, len(activeRecs)+len(archiveRecs))
	for _, rec := range activeRecs {
		snap[rec.ID] = rec
	}
	for _, rec := range archiveRecs {
		snap[rec.ID] = rec
	}
	for _, rec := range activeRecs {
		issues = append(issues, auditRecord(rec, snap)...)
	}

	issues = append(issues, auditCycles(activeRecs)...)

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].TaskID < issues[j].TaskID })
	return issues, nil
}

// auditStoreIDs flags stored ids that do not parse and records whose
// embedded id disagrees with the filename-derived one.
func (a *Auditor) auditStoreIDs(store RecordStore, tier string) []Issue {
	var issues []Issue
	ids, err := store.IDs()
	if err != nil {
		return issues
	}
	for _, id := range ids {
		if _, _, ok := ParseTaskID(id); !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				TaskID:   id,
				Message:  fmt.Sprintf("%s id is not a {PROJECT}-{NNN} identifier", tier),
			})
		}
		rec, err := store.Read(id)
		if err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				TaskID:   id,
				Message:  fmt.Sprintf("%s record is unreadable: %v", tier, err),
			})
			continue
		}
		if rec.ID != id {
			issues = append(issues, Issue{
				Severity: SeverityError,
				TaskID:   id,
				Message:  fmt.Sprintf("filename id %s disagrees with record id %s", id, rec.ID),
			})
		}
	}
	return issues
}

// auditRecord checks one active record's fields.
func auditRecord(rec *models.TaskRecord, snap Snapshot) []Issue {
	var issues []Issue

	if !rec.Priority.Valid() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			TaskID:   rec.ID,
			Message:  fmt.Sprintf("priority %q is outside P0..P3", rec.Priority),
		})
	}
	if !rec.Status.Valid() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			TaskID:   rec.ID,
			Message:  fmt.Sprintf("status %q is outside the task lifecycle", rec.Status),
		})
	}
	if rec.Due != "" && !validDate(rec.Due) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			TaskID:   rec.ID,
			Message:  fmt.Sprintf("due date %q is not a YYYY-MM-DD date", rec.Due),
		})
	}

	for _, dep := range rec.DependsOn {
		if dep == rec.ID {
			issues = append(issues, Issue{
				Severity: SeverityError,
				TaskID:   rec.ID,
				Message:  "task depends on itself",
			})
			continue
		}
		if _, ok := snap[dep]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				TaskID:   rec.ID,
				Message:  fmt.Sprintf("dependency %s does not resolve to any record", dep),
			})
		}
	}

	return issues
}

// auditCycles reports dependency cycles among active records. Tasks in a
// cycle can never individually become ready.
func auditCycles(recs []*models.TaskRecord) []Issue {
	graph := make(map[string][]string, len(recs))
	for _, rec := range recs {
		graph[rec.ID] = rec.DependsOn
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(graph))
	var issues []Issue

	var visit func(id string, path []string)
	visit = func(id string, path []string) {
		state[id] = visiting
		for _, dep := range graph[id] {
			if _, known := graph[dep]; !known {
				continue
			}
			switch state[dep] {
			case unvisited:
				visit(dep, append(path, dep))
			case visiting:
				issues = append(issues, Issue{
					Severity: SeverityError,
					TaskID:   dep,
					Message:  fmt.Sprintf("dependency cycle: %s", cyclePath(path, dep)),
				})
			}
		}
		state[id] = done
	}

	ids := make([]string, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if state[id] == unvisited {
			visit(id, []string{id})
		}
	}
	return issues
}

// cyclePath renders the portion of path from the repeated id onward.
func cyclePath(path []string, repeat string) string {
	start := 0
	for i, id := range path {
		if id == repeat {
			start = i
			break
		}
	}
	out := ""
	for _, id := range path[start:] {
		if out != "" {
			out += " -> "
		}
		out += id
	}
	return out + " -> " + repeat
}
