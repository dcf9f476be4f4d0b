package core

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/pkg/models"
)

// =============================================================================
// In-memory fakes
// =============================================================================

type memCandidateStore struct {
	cands map[string]models.Candidate
	saves int
}

func newMemCandidateStore() *memCandidateStore {
	return &memCandidateStore{cands: make(map[string]models.Candidate)}
}

func (s *memCandidateStore) Load() error { return nil }
func (s *memCandidateStore) Save() error { s.saves++; return nil }

func (s *memCandidateStore) Insert(cands []models.Candidate) error {
	for _, cand := range cands {
		if _, exists := s.cands[cand.ID]; exists {
			return fmt.Errorf("inserting candidate: %s already exists", cand.ID)
		}
	}
	for _, cand := range cands {
		s.cands[cand.ID] = cand
	}
	return nil
}

func (s *memCandidateStore) Get(id string) (*models.Candidate, error) {
	cand, exists := s.cands[id]
	if !exists {
		return nil, fmt.Errorf("candidate %s not found", id)
	}
	return &cand, nil
}

func (s *memCandidateStore) MarkPromoted(id string) error {
	cand, exists := s.cands[id]
	if !exists {
		return fmt.Errorf("candidate %s not found", id)
	}
	cand.Promoted = true
	s.cands[id] = cand
	return nil
}

func (s *memCandidateStore) Update(id string, updates models.Candidate) error {
	if _, exists := s.cands[id]; !exists {
		return fmt.Errorf("candidate %s not found", id)
	}
	s.cands[id] = updates
	return nil
}

func (s *memCandidateStore) Remove(id string) error {
	delete(s.cands, id)
	return nil
}

func (s *memCandidateStore) All() ([]models.Candidate, error) {
	out := make([]models.Candidate, 0, len(s.cands))
	for _, cand := range s.cands {
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCandidateStore) IDs() ([]string, error) {
	ids := make([]string, 0, len(s.cands))
	for id := range s.cands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memRecordStore struct {
	recs map[string]*models.TaskRecord
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{recs: make(map[string]*models.TaskRecord)}
}

func (s *memRecordStore) Create(rec *models.TaskRecord) error {
	if _, exists := s.recs[rec.ID]; exists {
		return fmt.Errorf("task %s already exists", rec.ID)
	}
	s.recs[rec.ID] = rec.Clone()
	return nil
}

func (s *memRecordStore) Read(id string) (*models.TaskRecord, error) {
	rec, exists := s.recs[id]
	if !exists {
		return nil, fmt.Errorf("task %s not found", id)
	}
	return rec.Clone(), nil
}

func (s *memRecordStore) Update(id string, mutate func(*models.TaskRecord) error) (*models.TaskRecord, error) {
	rec, exists := s.recs[id]
	if !exists {
		return nil, fmt.Errorf("task %s not found", id)
	}
	clone := rec.Clone()
	if err := mutate(clone); err != nil {
		return nil, err
	}
	s.recs[id] = clone
	return clone.Clone(), nil
}

func (s *memRecordStore) Delete(id string) error {
	if _, exists := s.recs[id]; !exists {
		return fmt.Errorf("task %s not found", id)
	}
	delete(s.recs, id)
	return nil
}

func (s *memRecordStore) List() ([]*models.TaskRecord, error) {
	out := make([]*models.TaskRecord, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memRecordStore) Exists(id string) (bool, error) {
	_, exists := s.recs[id]
	return exists, nil
}

func (s *memRecordStore) IDs() ([]string, error) {
	ids := make([]string, 0, len(s.recs))
	for id := range s.recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type capturedEvent struct {
	eventType string
	data      map[string]any
}

type memEventLogger struct {
	events []capturedEvent
}

func (l *memEventLogger) LogEvent(eventType string, data map[string]any) error {
	l.events = append(l.events, capturedEvent{eventType: eventType, data: data})
	return nil
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	backlog *memCandidateStore
	active  *memRecordStore
	archive *memRecordStore
	events  *memEventLogger
	ctl     Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backlog: newMemCandidateStore(),
		active:  newMemRecordStore(),
		archive: newMemRecordStore(),
		events:  &memEventLogger{},
	}
	alloc := NewIDAllocator(3, f.backlog, f.active, f.archive)
	f.ctl = NewController(f.backlog, f.active, f.archive, alloc, NewExtractor(1), f.events, DefaultConfig())

	// Fixed clock for deterministic date stamps.
	f.ctl.(*controller).now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func (f *fixture) eventTypes() []string {
	types := make([]string, 0, len(f.events.events))
	for _, e := range f.events.events {
		types = append(types, e.eventType)
	}
	return types
}

// =============================================================================
// CreateTask
// =============================================================================

func TestCreateTask_AllocatesIDAndStamps(t *testing.T) {
	f := newFixture(t)

	rec, err := f.ctl.CreateTask(CreateOptions{Title: "Build login page", Project: "AUTH"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "AUTH-001" {
		t.Errorf("expected AUTH-001, got %s", rec.ID)
	}
	if rec.Status != models.StatusTodo {
		t.Errorf("expected default status todo, got %s", rec.Status)
	}
	if rec.Priority != models.P2 {
		t.Errorf("expected default priority P2, got %s", rec.Priority)
	}
	if rec.Created != "2026-08-30" || rec.Updated != "2026-08-30" {
		t.Errorf("expected created/updated stamps, got %s/%s", rec.Created, rec.Updated)
	}
	if rec.Completed != "" {
		t.Errorf("expected no completed stamp, got %s", rec.Completed)
	}

	if ok, _ := f.active.Exists("AUTH-001"); !ok {
		t.Error("expected the record in the active store")
	}
}

func TestCreateTask_DefaultProject(t *testing.T) {
	f := newFixture(t)

	rec, err := f.ctl.CreateTask(CreateOptions{Title: "Untargeted work"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "TASK-001" {
		t.Errorf("expected the configured default project, got %s", rec.ID)
	}
}

func TestCreateTask_SequentialIDs(t *testing.T) {
	f := newFixture(t)

	for i, want := range []string{"AUTH-001", "AUTH-002", "AUTH-003"} {
		rec, err := f.ctl.CreateTask(CreateOptions{Title: fmt.Sprintf("task number %d", i), Project: "AUTH"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.ID != want {
			t.Errorf("expected %s, got %s", want, rec.ID)
		}
	}
}

func TestCreateTask_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		opts CreateOptions
	}{
		{"empty title", CreateOptions{Title: "   "}},
		{"bad priority", CreateOptions{Title: "work", Priority: "P9"}},
		{"bad status", CreateOptions{Title: "work", Status: "paused"}},
		{"bad due", CreateOptions{Title: "work", Due: "tomorrow"}},
	}
	for _, tc := range cases {
		if _, err := f.ctl.CreateTask(tc.opts); !IsValidation(err) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestCreateTask_SelfDependencyRejected(t *testing.T) {
	f := newFixture(t)

	// The first allocated id for AUTH will be AUTH-001.
	_, err := f.ctl.CreateTask(CreateOptions{Title: "self dep", Project: "AUTH", DependsOn: []string{"AUTH-001"}})
	if !IsValidation(err) {
		t.Errorf("expected validation error for self-dependency, got %v", err)
	}
}

func TestCreateTask_CreatedDoneStampsCompleted(t *testing.T) {
	f := newFixture(t)

	rec, err := f.ctl.CreateTask(CreateOptions{Title: "imported as finished", Status: models.StatusDone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Completed != "2026-08-30" {
		t.Errorf("expected completed stamp, got %q", rec.Completed)
	}
}

func TestCreateTask_EmitsEvent(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ctl.CreateTask(CreateOptions{Title: "observable work"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	types := f.eventTypes()
	if len(types) != 1 || types[0] != "task.created" {
		t.Errorf("expected [task.created], got %v", types)
	}
}

func TestCreateTask_SequentialIDsUnused(t *testing.T) {
	// Deleted numbers are never reissued.
	f := newFixture(t)

	if _, err := f.ctl.CreateTask(CreateOptions{Title: "first of many"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.CreateTask(CreateOptions{Title: "second of many"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.active.Delete("TASK-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := f.ctl.CreateTask(CreateOptions{Title: "after deletion"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != "TASK-003" {
		t.Errorf("expected TASK-003 (TASK-001 never reissued), got %s", rec.ID)
	}
}

// =============================================================================
// GetTask / UpdateTask
// =============================================================================

func TestGetTask_FallsBackToArchive(t *testing.T) {
	f := newFixture(t)

	archived := rec("AUTH-001", models.StatusDone)
	archived.Archived = "2026-01-01"
	if err := f.archive.Create(archived); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.ctl.GetTask("AUTH-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Archived != "2026-01-01" {
		t.Errorf("expected the archived record, got %+v", got)
	}

	if _, err := f.ctl.GetTask("AUTH-999"); !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestUpdateTask_ChangedFields(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")

	_, changed, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{
		Priority: models.P0,
		Owner:    "@alice",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"priority", "owner"}
	if strings.Join(changed, ",") != strings.Join(want, ",") {
		t.Errorf("expected changed %v, got %v", want, changed)
	}
}

func TestUpdateTask_NoEffectiveChange(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")

	_, changed, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Title: "Build login page"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("expected no changed fields, got %v", changed)
	}
}

func TestUpdateTask_DoneStampsCompleted(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")

	got, changed, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Status: models.StatusDone})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Completed != "2026-08-30" {
		t.Errorf("expected completed stamp, got %q", got.Completed)
	}
	joined := strings.Join(changed, ",")
	if !strings.Contains(joined, "completed") || !strings.Contains(joined, "status") {
		t.Errorf("expected completed and status in changed fields, got %v", changed)
	}
}

func TestUpdateTask_AppendDirective(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")

	if _, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Description: "First paragraph."}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Description: "append: Second paragraph."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Description != "First paragraph.\n\nSecond paragraph." {
		t.Errorf("expected appended description, got %q", got.Description)
	}
}

func TestUpdateTask_AppendToEmptyDescription(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")

	got, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Description: "append: Only paragraph."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Description != "Only paragraph." {
		t.Errorf("expected bare addition, got %q", got.Description)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	f := newFixture(t)

	if _, _, err := f.ctl.UpdateTask("AUTH-404", UpdateOptions{Title: "whatever"}); !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

// =============================================================================
// ImportTasks
// =============================================================================

const planText = `## Authentication
- Critical: rotate signing keys
- Add refresh token support

## Infrastructure
- upgrade CI runners
`

func TestImportTasks_AssignsIDsAndSaves(t *testing.T) {
	f := newFixture(t)

	cands, inserted, err := f.ctl.ImportTasks(ImportOptions{Text: planText, Project: "AUTH"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 3 {
		t.Errorf("expected 3 inserted, got %d", inserted)
	}
	if cands[0].ID != "AUTH-001" || cands[2].ID != "AUTH-003" {
		t.Errorf("expected sequential ids, got %s..%s", cands[0].ID, cands[2].ID)
	}
	if cands[0].Created != "2026-08-30" {
		t.Errorf("expected created stamp, got %q", cands[0].Created)
	}
	if f.backlog.saves != 1 {
		t.Errorf("expected one backlog save, got %d", f.backlog.saves)
	}

	types := f.eventTypes()
	if len(types) != 1 || types[0] != "backlog.imported" {
		t.Errorf("expected [backlog.imported], got %v", types)
	}
}

func TestImportTasks_DryRun(t *testing.T) {
	f := newFixture(t)

	cands, inserted, err := f.ctl.ImportTasks(ImportOptions{Text: planText, DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected 0 inserted on dry run, got %d", inserted)
	}
	if len(cands) != 3 {
		t.Errorf("expected 3 candidates, got %d", len(cands))
	}
	for _, cand := range cands {
		if cand.ID != "" {
			t.Errorf("expected unassigned ids on dry run, got %s", cand.ID)
		}
	}
	if len(f.backlog.cands) != 0 {
		t.Error("expected the backlog untouched on dry run")
	}
	if f.backlog.saves != 0 {
		t.Errorf("expected no backlog save, got %d", f.backlog.saves)
	}
}

func TestImportTasks_PhaseFilter(t *testing.T) {
	f := newFixture(t)

	cands, inserted, err := f.ctl.ImportTasks(ImportOptions{Text: planText, PhaseFilter: "infrastructure"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inserted != 1 {
		t.Errorf("expected 1 inserted, got %d", inserted)
	}
	if len(cands) != 1 || cands[0].Title != "upgrade CI runners" {
		t.Errorf("expected only the Infrastructure candidate, got %+v", cands)
	}
}

func TestImportTasks_SkipsIDsHeldByActiveTasks(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Already active work")

	cands, _, err := f.ctl.ImportTasks(ImportOptions{Text: "- New backlog entry\n", Project: "AUTH"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cands[0].ID != "AUTH-002" {
		t.Errorf("expected AUTH-002 past the active task, got %s", cands[0].ID)
	}
}

func TestImportTasks_NoCandidates(t *testing.T) {
	f := newFixture(t)

	cands, inserted, err := f.ctl.ImportTasks(ImportOptions{Text: "just prose, no bullets"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 0 || inserted != 0 {
		t.Errorf("expected nothing, got %d candidates, %d inserted", len(cands), inserted)
	}
}

// =============================================================================
// PromoteTask
// =============================================================================

func seedCandidate(t *testing.T, f *fixture, id string) {
	t.Helper()
	err := f.backlog.Insert([]models.Candidate{{
		ID:       id,
		Title:    "Harden token validation",
		Priority: models.P1,
		Phase:    "Authentication",
		Section:  "Backend",
		Tags:     []string{"security"},
		Subtasks: []string{"inventory current keys", "schedule rotation window"},
		Created:  "2026-08-01",
	}})
	if err != nil {
		t.Fatalf("seeding candidate: %v", err)
	}
}

func TestPromoteTask_MaterializesRecord(t *testing.T) {
	f := newFixture(t)
	seedCandidate(t, f, "AUTH-001")

	got, warning, err := f.ctl.PromoteTask("AUTH-001", PromoteOptions{Owner: "@alice", Due: "2026-09-30"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if warning != "" {
		t.Errorf("expected no warning, got %q", warning)
	}
	if got.Status != models.StatusTodo {
		t.Errorf("expected status todo, got %s", got.Status)
	}
	if got.Priority != models.P1 {
		t.Errorf("expected candidate priority carried over, got %s", got.Priority)
	}
	if got.Owner != "@alice" || got.Due != "2026-09-30" {
		t.Errorf("expected promote options applied, got %+v", got)
	}
	if got.Description != "Phase: Authentication / Backend" {
		t.Errorf("expected phase context in description, got %q", got.Description)
	}
	if len(got.Subtasks) != 2 || got.Subtasks[0].Text != "inventory current keys" {
		t.Errorf("expected candidate subtasks carried over, got %+v", got.Subtasks)
	}

	cand, _ := f.backlog.Get("AUTH-001")
	if !cand.Promoted {
		t.Error("expected the backlog entry marked promoted")
	}
	if ok, _ := f.active.Exists("AUTH-001"); !ok {
		t.Error("expected the record in the active store")
	}
}

func TestPromoteTask_PriorityOverride(t *testing.T) {
	f := newFixture(t)
	seedCandidate(t, f, "AUTH-001")

	got, _, err := f.ctl.PromoteTask("AUTH-001", PromoteOptions{PriorityOverride: models.P0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Priority != models.P0 {
		t.Errorf("expected override P0, got %s", got.Priority)
	}
}

func TestPromoteTask_AlreadyActiveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	seedCandidate(t, f, "AUTH-001")

	first, _, err := f.ctl.PromoteTask("AUTH-001", PromoteOptions{Owner: "@alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, warning, err := f.ctl.PromoteTask("AUTH-001", PromoteOptions{Owner: "@bob"})
	if err != nil {
		t.Fatalf("expected no error on repeat promote, got %v", err)
	}
	if warning == "" {
		t.Error("expected a warning on repeat promote")
	}
	if second.Owner != first.Owner {
		t.Errorf("expected the existing record untouched, got owner %q", second.Owner)
	}
}

func TestPromoteTask_ArchivedTaskNotRecreated(t *testing.T) {
	f := newFixture(t)
	seedCandidate(t, f, "AUTH-001")

	if _, _, err := f.ctl.PromoteTask("AUTH-001", PromoteOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Status: models.StatusDone}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.ArchiveTask("AUTH-001", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, warning, err := f.ctl.PromoteTask("AUTH-001", PromoteOptions{})
	if err != nil {
		t.Fatalf("expected no error on promote of archived id, got %v", err)
	}
	if warning == "" {
		t.Error("expected a warning when the id is already archived")
	}
	if got.Status != models.StatusDone {
		t.Errorf("expected the archived record back, got status %s", got.Status)
	}
	if ok, _ := f.active.Exists("AUTH-001"); ok {
		t.Error("expected no duplicate record in the active store")
	}
}

func TestPromoteTask_UnknownCandidate(t *testing.T) {
	f := newFixture(t)

	if _, _, err := f.ctl.PromoteTask("AUTH-404", PromoteOptions{}); !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

// =============================================================================
// ArchiveTask / UnarchiveTask
// =============================================================================

func TestArchiveTask_RequiresDone(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")

	if _, err := f.ctl.ArchiveTask("AUTH-001", false); !IsStateError(err) {
		t.Errorf("expected state error archiving a todo task, got %v", err)
	}
}

func TestArchiveTask_DoneMovesToArchive(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")
	if _, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Status: models.StatusDone}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.ctl.ArchiveTask("AUTH-001", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Archived != "2026-08-30" {
		t.Errorf("expected archived stamp, got %q", got.Archived)
	}
	if ok, _ := f.active.Exists("AUTH-001"); ok {
		t.Error("expected the record gone from active")
	}
	if ok, _ := f.archive.Exists("AUTH-001"); !ok {
		t.Error("expected the record in the archive")
	}
}

func TestArchiveTask_ForcePreservesStatus(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")
	if _, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Status: models.StatusInProgress}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.ctl.ArchiveTask("AUTH-001", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.StatusInProgress {
		t.Errorf("expected status frozen as in_progress, got %s", got.Status)
	}
	if got.Completed != "" {
		t.Errorf("force-archive must not stamp completed, got %q", got.Completed)
	}
}

func TestUnarchiveTask_RestoresFrozenStatus(t *testing.T) {
	f := newFixture(t)
	mustCreate(t, f, "AUTH", "Build login page")
	if _, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Status: models.StatusReview}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.ArchiveTask("AUTH-001", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.ctl.UnarchiveTask("AUTH-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.StatusReview {
		t.Errorf("expected frozen status review, got %s", got.Status)
	}
	if got.Archived != "" {
		t.Errorf("expected archived stamp cleared, got %q", got.Archived)
	}
	if ok, _ := f.archive.Exists("AUTH-001"); ok {
		t.Error("expected the record gone from the archive")
	}
}

func TestUnarchiveTask_CollisionWithActive(t *testing.T) {
	f := newFixture(t)

	archived := rec("AUTH-001", models.StatusDone)
	archived.Archived = "2026-01-01"
	if err := f.archive.Create(archived); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.active.Create(rec("AUTH-001", models.StatusTodo)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.ctl.UnarchiveTask("AUTH-001"); !IsCollision(err) {
		t.Errorf("expected collision error, got %v", err)
	}
}

func TestUnarchiveTask_NotArchived(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ctl.UnarchiveTask("AUTH-404"); !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

// =============================================================================
// NextTasks / ListTasks
// =============================================================================

func TestNextTasks_DependencyScenario(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ctl.CreateTask(CreateOptions{Title: "Schema migration", Project: "AUTH", Priority: models.P1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.CreateTask(CreateOptions{Title: "API endpoints", Project: "AUTH", Priority: models.P0, DependsOn: []string{"AUTH-001"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// AUTH-002 outranks AUTH-001 but waits on it.
	next, err := f.ctl.NextTasks(NextOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next) != 1 || next[0].ID != "AUTH-001" {
		t.Fatalf("expected only AUTH-001 ready, got %v", idsOf(next))
	}

	// Finishing the dependency unlocks the dependent.
	if _, _, err := f.ctl.UpdateTask("AUTH-001", UpdateOptions{Status: models.StatusDone}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next, err = f.ctl.NextTasks(NextOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next) != 1 || next[0].ID != "AUTH-002" {
		t.Errorf("expected AUTH-002 after its dependency is done, got %v", idsOf(next))
	}
}

func TestNextTasks_ArchivedDependencyStillSatisfies(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ctl.CreateTask(CreateOptions{Title: "Schema migration", Project: "AUTH", Status: models.StatusDone}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.ArchiveTask("AUTH-001", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.CreateTask(CreateOptions{Title: "API endpoints", Project: "AUTH", DependsOn: []string{"AUTH-001"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	next, err := f.ctl.NextTasks(NextOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next) != 1 || next[0].ID != "AUTH-002" {
		t.Errorf("expected AUTH-002 ready via archived dependency, got %v", idsOf(next))
	}
}

func TestNextTasks_LimitDefaultsFromConfig(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 8; i++ {
		if _, err := f.ctl.CreateTask(CreateOptions{Title: fmt.Sprintf("bulk task %d", i)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	next, err := f.ctl.NextTasks(NextOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next) != 5 {
		t.Errorf("expected the configured limit of 5, got %d", len(next))
	}

	next, err = f.ctl.NextTasks(NextOptions{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next) != 2 {
		t.Errorf("expected explicit limit 2, got %d", len(next))
	}
}

func TestListTasks_GroupsByStatus(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ctl.CreateTask(CreateOptions{Title: "First piece of work"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.CreateTask(CreateOptions{Title: "Second piece of work", Status: models.StatusInProgress}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	grouped, err := f.ctl.ListTasks(ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grouped[models.StatusTodo]) != 1 {
		t.Errorf("expected 1 todo task, got %d", len(grouped[models.StatusTodo]))
	}
	if len(grouped[models.StatusInProgress]) != 1 {
		t.Errorf("expected 1 in_progress task, got %d", len(grouped[models.StatusInProgress]))
	}
}

func TestListTasks_TagFilter(t *testing.T) {
	f := newFixture(t)

	if _, err := f.ctl.CreateTask(CreateOptions{Title: "Tagged work", Tags: []string{"backend"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ctl.CreateTask(CreateOptions{Title: "Untagged work"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	grouped, err := f.ctl.ListTasks(ListFilter{Tag: "backend"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(grouped[models.StatusTodo]) != 1 || grouped[models.StatusTodo][0].Title != "Tagged work" {
		t.Errorf("expected only the tagged task, got %+v", grouped[models.StatusTodo])
	}
}

// =============================================================================
// Helpers
// =============================================================================

func mustCreate(t *testing.T, f *fixture, project, title string) {
	t.Helper()
	if _, err := f.ctl.CreateTask(CreateOptions{Title: title, Project: project}); err != nil {
		t.Fatalf("creating task: %v", err)
	}
}
