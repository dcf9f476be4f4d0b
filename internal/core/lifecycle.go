package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/pkg/models"
)

// appendDirective prefixes a description update that should concatenate to
// the existing description instead of replacing it.
const appendDirective = "append:"

// CandidateStore is the subset of the storage backlog that the controller
// needs. Defining it here keeps core independent of the storage package.
type CandidateStore interface {
	Load() error
	Save() error
	Insert(cands []models.Candidate) error
	Get(id string) (*models.Candidate, error)
	MarkPromoted(id string) error
	Update(id string, updates models.Candidate) error
	Remove(id string) error
	All() ([]models.Candidate, error)
	IDs() ([]string, error)
}

// RecordStore is a keyed collection of task records, one record per id.
// The active and archive stores both satisfy it.
type RecordStore interface {
	Create(rec *models.TaskRecord) error
	Read(id string) (*models.TaskRecord, error)
	Update(id string, mutate func(*models.TaskRecord) error) (*models.TaskRecord, error)
	Delete(id string) error
	List() ([]*models.TaskRecord, error)
	Exists(id string) (bool, error)
	IDs() ([]string, error)
}

// EventLogger records lifecycle events. Implementations must tolerate being
// called from any operation; a nil logger disables event recording.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// CreateOptions carries the caller-supplied fields for a direct task
// creation, bypassing the backlog.
type CreateOptions struct {
	Title       string
	Project     string
	Priority    models.Priority
	Status      models.Status
	Owner       string
	DependsOn   []string
	BlockedBy   []string
	Estimate    string
	Due         string
	Tags        []string
	Subtasks    []string
	Description string
	Notes       string
}

// UpdateOptions carries field updates. Zero values leave the corresponding
// field unchanged; a Description starting with the append directive
// concatenates instead of replacing.
type UpdateOptions struct {
	Title       string
	Priority    models.Priority
	Status      models.Status
	Owner       string
	DependsOn   []string
	BlockedBy   []string
	Estimate    string
	Due         string
	Tags        []string
	Subtasks    []models.Subtask
	Description string
	Notes       string
}

// PromoteOptions carries the caller-supplied fields added to a backlog
// candidate at promotion time.
type PromoteOptions struct {
	Owner            string
	PriorityOverride models.Priority
	DependsOn        []string
	Estimate         string
	Due              string
}

// ImportOptions controls a backlog import run.
type ImportOptions struct {
	Text            string
	Project         string
	DefaultPriority models.Priority
	PhaseFilter     string
	DryRun          bool
}

// NextOptions narrows and bounds the "what next" result.
type NextOptions struct {
	Owner          string
	Project        string
	IncludeBlocked bool
	Limit          int
}

// ListFilter narrows the grouped task listing. All set fields AND together.
type ListFilter struct {
	Project  string
	Owner    string
	Status   models.Status
	Priority models.Priority
	Tag      string
}

// Controller is the only component that performs lifecycle state
// transitions. It composes the backlog, active, and archive stores and
// enforces transition legality.
type Controller interface {
	CreateTask(opts CreateOptions) (*models.TaskRecord, error)
	GetTask(id string) (*models.TaskRecord, error)
	UpdateTask(id string, opts UpdateOptions) (*models.TaskRecord, []string, error)
	ImportTasks(opts ImportOptions) ([]models.Candidate, int, error)
	PromoteTask(id string, opts PromoteOptions) (*models.TaskRecord, string, error)
	ArchiveTask(id string, force bool) (*models.TaskRecord, error)
	UnarchiveTask(id string) (*models.TaskRecord, error)
	NextTasks(opts NextOptions) ([]*models.TaskRecord, error)
	ListTasks(filter ListFilter) (map[models.Status][]*models.TaskRecord, error)
	Candidates() ([]models.Candidate, error)
}

// controller implements Controller.
type controller struct {
	backlog   CandidateStore
	active    RecordStore
	archive   RecordStore
	alloc     IDAllocator
	extractor *Extractor
	events    EventLogger
	defaults  *models.GlobalConfig
	now       func() time.Time
}

// NewController creates a Controller with all dependencies injected.
// events may be nil to disable event recording.
func NewController(backlog CandidateStore, active, archive RecordStore, alloc IDAllocator, extractor *Extractor, events EventLogger, defaults *models.GlobalConfig) Controller {
	if defaults == nil {
		defaults = DefaultConfig()
	}
	return &controller{
		backlog:   backlog,
		active:    active,
		archive:   archive,
		alloc:     alloc,
		extractor: extractor,
		events:    events,
		defaults:  defaults,
		now:       time.Now,
	}
}

func (c *controller) today() string {
	return dateStamp(c.now())
}

func (c *controller) logEvent(eventType, taskID string, data map[string]any) {
	if c.events == nil {
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	if taskID != "" {
		data["task_id"] = taskID
	}
	_ = c.events.LogEvent(eventType, data)
}

// CreateTask constructs a record directly in the active store, assigning the
// next free id for the project.
func (c *controller) CreateTask(opts CreateOptions) (*models.TaskRecord, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return nil, &ValidationError{Field: "title", Msg: "must not be empty"}
	}

	project := opts.Project
	if project == "" {
		project = c.defaults.DefaultProject
	}

	priority := opts.Priority
	if priority == "" {
		priority = c.defaults.DefaultPriority
	}
	if !priority.Valid() {
		return nil, &ValidationError{Field: "priority", Msg: fmt.Sprintf("%q must be one of P0, P1, P2, P3", priority)}
	}

	status := opts.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Msg: fmt.Sprintf("%q must be one of todo, in_progress, blocked, review, done", status)}
	}

	if opts.Due != "" && !validDate(opts.Due) {
		return nil, &ValidationError{Field: "due", Msg: fmt.Sprintf("%q is not a YYYY-MM-DD date", opts.Due)}
	}

	if err := c.backlog.Load(); err != nil {
		return nil, fmt.Errorf("creating task: loading backlog: %w", err)
	}

	id, err := c.alloc.Next(project)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	for _, dep := range opts.DependsOn {
		if dep == id {
			return nil, &ValidationError{Field: "depends_on", Msg: fmt.Sprintf("task %s cannot depend on itself", id)}
		}
	}

	today := c.today()
	rec := &models.TaskRecord{
		ID:          id,
		Title:       strings.TrimSpace(opts.Title),
		Project:     project,
		Priority:    priority,
		Status:      status,
		Owner:       opts.Owner,
		DependsOn:   opts.DependsOn,
		BlockedBy:   opts.BlockedBy,
		Tags:        opts.Tags,
		Estimate:    opts.Estimate,
		Due:         opts.Due,
		Created:     today,
		Updated:     today,
		Description: opts.Description,
		Notes:       opts.Notes,
	}
	for _, text := range opts.Subtasks {
		rec.Subtasks = append(rec.Subtasks, models.Subtask{Text: text})
	}
	if status == models.StatusDone {
		rec.Completed = today
	}

	if err := c.active.Create(rec); err != nil {
		return nil, fmt.Errorf("creating task %s: %w", id, err)
	}

	c.logEvent("task.created", id, map[string]any{
		"project":  project,
		"priority": string(priority),
		"status":   string(status),
	})

	return rec, nil
}

// GetTask reads a record from the active store, falling back to the archive.
func (c *controller) GetTask(id string) (*models.TaskRecord, error) {
	if ok, err := c.active.Exists(id); err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	} else if ok {
		return c.active.Read(id)
	}
	if ok, err := c.archive.Exists(id); err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	} else if ok {
		return c.archive.Read(id)
	}
	return nil, &NotFoundError{ID: id}
}

// UpdateTask mutates any mutable field of an active record and returns the
// names of the fields that changed. A status transition into done stamps
// completed.
func (c *controller) UpdateTask(id string, opts UpdateOptions) (*models.TaskRecord, []string, error) {
	if ok, err := c.active.Exists(id); err != nil {
		return nil, nil, fmt.Errorf("updating task %s: %w", id, err)
	} else if !ok {
		return nil, nil, &NotFoundError{ID: id}
	}

	if opts.Priority != "" && !opts.Priority.Valid() {
		return nil, nil, &ValidationError{Field: "priority", Msg: fmt.Sprintf("%q must be one of P0, P1, P2, P3", opts.Priority)}
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, nil, &ValidationError{Field: "status", Msg: fmt.Sprintf("%q must be one of todo, in_progress, blocked, review, done", opts.Status)}
	}
	if opts.Due != "" && !validDate(opts.Due) {
		return nil, nil, &ValidationError{Field: "due", Msg: fmt.Sprintf("%q is not a YYYY-MM-DD date", opts.Due)}
	}
	for _, dep := range opts.DependsOn {
		if dep == id {
			return nil, nil, &ValidationError{Field: "depends_on", Msg: fmt.Sprintf("task %s cannot depend on itself", id)}
		}
	}

	var changed []string
	rec, err := c.active.Update(id, func(rec *models.TaskRecord) error {
		if opts.Title != "" && opts.Title != rec.Title {
			rec.Title = opts.Title
			changed = append(changed, "title")
		}
		if opts.Priority != "" && opts.Priority != rec.Priority {
			rec.Priority = opts.Priority
			changed = append(changed, "priority")
		}
		if opts.Status != "" && opts.Status != rec.Status {
			if opts.Status == models.StatusDone && rec.Status != models.StatusDone {
				rec.Completed = c.today()
				changed = append(changed, "completed")
			}
			rec.Status = opts.Status
			changed = append(changed, "status")
		}
		if opts.Owner != "" && opts.Owner != rec.Owner {
			rec.Owner = opts.Owner
			changed = append(changed, "owner")
		}
		if opts.DependsOn != nil {
			rec.DependsOn = opts.DependsOn
			changed = append(changed, "depends_on")
		}
		if opts.BlockedBy != nil {
			rec.BlockedBy = opts.BlockedBy
			changed = append(changed, "blocked_by")
		}
		if opts.Estimate != "" && opts.Estimate != rec.Estimate {
			rec.Estimate = opts.Estimate
			changed = append(changed, "estimate")
		}
		if opts.Due != "" && opts.Due != rec.Due {
			rec.Due = opts.Due
			changed = append(changed, "due")
		}
		if opts.Tags != nil {
			rec.Tags = opts.Tags
			changed = append(changed, "tags")
		}
		if opts.Subtasks != nil {
			rec.Subtasks = opts.Subtasks
			changed = append(changed, "subtasks")
		}
		if opts.Description != "" {
			if rest, ok := strings.CutPrefix(opts.Description, appendDirective); ok {
				addition := strings.TrimSpace(rest)
				if rec.Description == "" {
					rec.Description = addition
				} else {
					rec.Description = rec.Description + "\n\n" + addition
				}
			} else {
				rec.Description = opts.Description
			}
			changed = append(changed, "description")
		}
		if opts.Notes != "" && opts.Notes != rec.Notes {
			rec.Notes = opts.Notes
			changed = append(changed, "notes")
		}
		if len(changed) > 0 {
			rec.Updated = c.today()
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("updating task %s: %w", id, err)
	}

	if len(changed) > 0 {
		c.logEvent("task.updated", id, map[string]any{"fields": strings.Join(changed, ",")})
	}

	return rec, changed, nil
}

// ImportTasks runs the extractor over planning text and inserts the
// resulting candidates into the backlog with freshly allocated ids. With
// DryRun the candidates are returned unassigned and nothing is written.
func (c *controller) ImportTasks(opts ImportOptions) ([]models.Candidate, int, error) {
	project := opts.Project
	if project == "" {
		project = c.defaults.DefaultProject
	}
	priority := opts.DefaultPriority
	if priority == "" {
		priority = c.defaults.DefaultPriority
	}
	if !priority.Valid() {
		return nil, 0, &ValidationError{Field: "default_priority", Msg: fmt.Sprintf("%q must be one of P0, P1, P2, P3", priority)}
	}

	cands := c.extractor.Extract(opts.Text, priority)

	if opts.PhaseFilter != "" {
		var filtered []models.Candidate
		for _, cand := range cands {
			if strings.EqualFold(cand.Phase, opts.PhaseFilter) {
				filtered = append(filtered, cand)
			}
		}
		cands = filtered
	}

	if opts.DryRun || len(cands) == 0 {
		return cands, 0, nil
	}

	if err := c.backlog.Load(); err != nil {
		return nil, 0, fmt.Errorf("importing tasks: loading backlog: %w", err)
	}

	ids, err := c.alloc.NextBatch(project, len(cands))
	if err != nil {
		return nil, 0, fmt.Errorf("importing tasks: %w", err)
	}

	today := c.today()
	for i := range cands {
		cands[i].ID = ids[i]
		cands[i].Created = today
	}

	if err := c.backlog.Insert(cands); err != nil {
		return nil, 0, fmt.Errorf("importing tasks: %w", err)
	}
	if err := c.backlog.Save(); err != nil {
		return nil, 0, fmt.Errorf("importing tasks: saving backlog: %w", err)
	}

	c.logEvent("backlog.imported", "", map[string]any{
		"project": project,
		"count":   len(cands),
	})

	return cands, len(cands), nil
}

// PromoteTask materializes a backlog candidate into a full active record.
// Promoting an id that is already active is a safe no-op: the existing
// record and a warning come back, and the active store is never
// overwritten.
func (c *controller) PromoteTask(id string, opts PromoteOptions) (*models.TaskRecord, string, error) {
	if err := c.backlog.Load(); err != nil {
		return nil, "", fmt.Errorf("promoting task %s: loading backlog: %w", id, err)
	}

	cand, err := c.backlog.Get(id)
	if err != nil {
		return nil, "", &NotFoundError{ID: id}
	}

	if ok, err := c.active.Exists(id); err != nil {
		return nil, "", fmt.Errorf("promoting task %s: %w", id, err)
	} else if ok {
		rec, err := c.active.Read(id)
		if err != nil {
			return nil, "", fmt.Errorf("promoting task %s: %w", id, err)
		}
		return rec, fmt.Sprintf("task %s is already active; promotion skipped", id), nil
	}

	// Id uniqueness spans all three tiers: a candidate whose materialized
	// task was archived must not be re-created in the active store.
	if ok, err := c.archive.Exists(id); err != nil {
		return nil, "", fmt.Errorf("promoting task %s: %w", id, err)
	} else if ok {
		rec, err := c.archive.Read(id)
		if err != nil {
			return nil, "", fmt.Errorf("promoting task %s: %w", id, err)
		}
		return rec, fmt.Sprintf("task %s is already archived; promotion skipped", id), nil
	}

	project, _, ok := ParseTaskID(id)
	if !ok {
		return nil, "", &ValidationError{Field: "id", Msg: fmt.Sprintf("%q is not a {PROJECT}-{NNN} identifier", id)}
	}

	priority := cand.Priority
	if opts.PriorityOverride != "" {
		if !opts.PriorityOverride.Valid() {
			return nil, "", &ValidationError{Field: "priority", Msg: fmt.Sprintf("%q must be one of P0, P1, P2, P3", opts.PriorityOverride)}
		}
		priority = opts.PriorityOverride
	}
	if opts.Due != "" && !validDate(opts.Due) {
		return nil, "", &ValidationError{Field: "due", Msg: fmt.Sprintf("%q is not a YYYY-MM-DD date", opts.Due)}
	}
	for _, dep := range opts.DependsOn {
		if dep == id {
			return nil, "", &ValidationError{Field: "depends_on", Msg: fmt.Sprintf("task %s cannot depend on itself", id)}
		}
	}

	today := c.today()
	rec := &models.TaskRecord{
		ID:        id,
		Title:     cand.Title,
		Project:   project,
		Priority:  priority,
		Status:    models.StatusTodo,
		Owner:     opts.Owner,
		DependsOn: opts.DependsOn,
		Tags:      append([]string(nil), cand.Tags...),
		Estimate:  opts.Estimate,
		Due:       opts.Due,
		Created:   today,
		Updated:   today,
	}
	if cand.Phase != "" {
		rec.Description = "Phase: " + cand.Phase
		if cand.Section != "" {
			rec.Description += " / " + cand.Section
		}
	}
	for _, text := range cand.Subtasks {
		rec.Subtasks = append(rec.Subtasks, models.Subtask{Text: text})
	}

	// Two-step transition: materialize the record, then flip the backlog
	// marker. A crash between the steps leaves the candidate unmarked; the
	// next promote attempt resolves as a no-op warning.
	if err := c.active.Create(rec); err != nil {
		return nil, "", fmt.Errorf("promoting task %s: %w", id, err)
	}
	if err := c.backlog.MarkPromoted(id); err != nil {
		return nil, "", fmt.Errorf("promoting task %s: marking backlog: %w", id, err)
	}
	if err := c.backlog.Save(); err != nil {
		return nil, "", fmt.Errorf("promoting task %s: saving backlog: %w", id, err)
	}

	c.logEvent("task.promoted", id, map[string]any{"priority": string(priority)})

	return rec, "", nil
}

// ArchiveTask moves a done record from the active store to the archive,
// stamping archived. force overrides the done requirement.
func (c *controller) ArchiveTask(id string, force bool) (*models.TaskRecord, error) {
	if ok, err := c.active.Exists(id); err != nil {
		return nil, fmt.Errorf("archiving task %s: %w", id, err)
	} else if !ok {
		return nil, &NotFoundError{ID: id}
	}

	rec, err := c.active.Read(id)
	if err != nil {
		return nil, fmt.Errorf("archiving task %s: %w", id, err)
	}

	if rec.Status != models.StatusDone && !force {
		return nil, &StateError{ID: id, Msg: fmt.Sprintf("status is %s, not done (use force to archive anyway)", rec.Status)}
	}

	today := c.today()
	rec.Archived = today
	rec.Updated = today

	// Remove-then-create pair, not atomic. A crash between the steps leaves
	// the record in both locations; the audit pass reports the duplicate.
	if err := c.archive.Create(rec); err != nil {
		return nil, fmt.Errorf("archiving task %s: %w", id, err)
	}
	if err := c.active.Delete(id); err != nil {
		return nil, fmt.Errorf("archiving task %s: removing active record: %w", id, err)
	}

	c.logEvent("task.archived", id, map[string]any{"status": string(rec.Status), "forced": force})

	return rec, nil
}

// UnarchiveTask returns an archived record to the active store at whatever
// status it was frozen with.
func (c *controller) UnarchiveTask(id string) (*models.TaskRecord, error) {
	if ok, err := c.archive.Exists(id); err != nil {
		return nil, fmt.Errorf("unarchiving task %s: %w", id, err)
	} else if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if ok, err := c.active.Exists(id); err != nil {
		return nil, fmt.Errorf("unarchiving task %s: %w", id, err)
	} else if ok {
		return nil, &CollisionError{ID: id}
	}

	rec, err := c.archive.Read(id)
	if err != nil {
		return nil, fmt.Errorf("unarchiving task %s: %w", id, err)
	}

	rec.Archived = ""
	rec.Updated = c.today()

	if err := c.active.Create(rec); err != nil {
		return nil, fmt.Errorf("unarchiving task %s: %w", id, err)
	}
	if err := c.archive.Delete(id); err != nil {
		return nil, fmt.Errorf("unarchiving task %s: removing archive record: %w", id, err)
	}

	c.logEvent("task.unarchived", id, map[string]any{"status": string(rec.Status)})

	return rec, nil
}

// Candidates returns every backlog candidate, promoted ones included.
func (c *controller) Candidates() ([]models.Candidate, error) {
	if err := c.backlog.Load(); err != nil {
		return nil, fmt.Errorf("loading backlog: %w", err)
	}
	return c.backlog.All()
}

// NextTasks returns the ready tasks in scheduling order, bounded by limit.
func (c *controller) NextTasks(opts NextOptions) ([]*models.TaskRecord, error) {
	active, err := c.active.List()
	if err != nil {
		return nil, fmt.Errorf("listing active tasks: %w", err)
	}
	archived, err := c.archive.List()
	if err != nil {
		return nil, fmt.Errorf("listing archived tasks: %w", err)
	}

	snap := make(Snapshot, len(active)+len(archived))
	for _, t := range active {
		snap[t.ID] = t
	}
	for _, t := range archived {
		snap[t.ID] = t
	}

	ready := FilterReady(active, snap, NextFilter{
		Owner:          opts.Owner,
		Project:        opts.Project,
		IncludeBlocked: opts.IncludeBlocked,
	})
	ranked := Rank(ready)

	limit := opts.Limit
	if limit <= 0 {
		limit = c.defaults.NextLimit
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ListTasks returns the active records matching the filter, grouped by
// status.
func (c *controller) ListTasks(filter ListFilter) (map[models.Status][]*models.TaskRecord, error) {
	active, err := c.active.List()
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	grouped := make(map[models.Status][]*models.TaskRecord)
	for _, t := range active {
		if filter.Project != "" && t.Project != filter.Project {
			continue
		}
		if filter.Owner != "" && t.Owner != filter.Owner {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.Tag != "" && !t.HasTag(filter.Tag) {
			continue
		}
		grouped[t.Status] = append(grouped[t.Status], t)
	}

	for status := range grouped {
		grouped[status] = Rank(grouped[status])
	}

	return grouped, nil
}
