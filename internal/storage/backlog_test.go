package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskdeck/taskdeck/pkg/models"
)

func sampleCandidates() []models.Candidate {
	return []models.Candidate{
		{
			ID:       "AUTH-001",
			Title:    "Rotate signing keys",
			Priority: models.P0,
			Phase:    "Authentication",
			Tags:     []string{"security"},
			Subtasks: []string{"inventory current keys"},
			Created:  "2026-08-30",
		},
		{
			ID:       "AUTH-002",
			Title:    "Add refresh token support",
			Priority: models.P2,
			Phase:    "Authentication",
			Created:  "2026-08-30",
		},
	}
}

func TestBacklogStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewBacklogStore(dir)

	if err := store.Insert(sampleCandidates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fresh := NewBacklogStore(dir)
	if err := fresh.Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := fresh.Get("AUTH-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "Rotate signing keys" || got.Priority != models.P0 {
		t.Errorf("expected candidate round-trip, got %+v", got)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0] != "inventory current keys" {
		t.Errorf("expected subtasks round-trip, got %v", got.Subtasks)
	}
}

func TestBacklogStore_LoadMissingFile(t *testing.T) {
	store := NewBacklogStore(t.TempDir())

	if err := store.Load(); err != nil {
		t.Fatalf("expected a missing backlog to load empty, got %v", err)
	}
	ids, err := store.IDs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no candidates, got %v", ids)
	}
}

func TestBacklogStore_InsertDuplicateRejectedAtomically(t *testing.T) {
	store := NewBacklogStore(t.TempDir())
	if err := store.Insert(sampleCandidates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One fresh, one colliding: nothing from the batch may land.
	err := store.Insert([]models.Candidate{
		{ID: "AUTH-003", Title: "Fresh entry", Priority: models.P2},
		{ID: "AUTH-001", Title: "Colliding entry", Priority: models.P2},
	})
	if err == nil {
		t.Fatal("expected an error inserting a duplicate id")
	}
	if _, err := store.Get("AUTH-003"); err == nil {
		t.Error("expected the batch rejected whole, but AUTH-003 was inserted")
	}
}

func TestBacklogStore_MarkPromotedKeepsEntry(t *testing.T) {
	store := NewBacklogStore(t.TempDir())
	if err := store.Insert(sampleCandidates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.MarkPromoted("AUTH-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.Get("AUTH-001")
	if err != nil {
		t.Fatalf("expected the promoted entry retained: %v", err)
	}
	if !got.Promoted {
		t.Error("expected the promoted flag set")
	}
}

func TestBacklogStore_UpdateChangesBucket(t *testing.T) {
	store := NewBacklogStore(t.TempDir())
	if err := store.Insert(sampleCandidates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Update("AUTH-002", models.Candidate{Priority: models.P0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := store.Get("AUTH-002")
	if got.Priority != models.P0 {
		t.Errorf("expected priority P0 after update, got %s", got.Priority)
	}
	if got.Title != "Add refresh token support" {
		t.Errorf("expected title untouched by zero-value update, got %q", got.Title)
	}
}

func TestBacklogStore_Remove(t *testing.T) {
	store := NewBacklogStore(t.TempDir())
	if err := store.Insert(sampleCandidates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Remove("AUTH-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get("AUTH-001"); err == nil {
		t.Error("expected the entry gone after remove")
	}
	if err := store.Remove("AUTH-001"); err == nil {
		t.Error("expected an error removing a missing entry")
	}
}

func TestBacklogStore_SaveRendersDocument(t *testing.T) {
	dir := t.TempDir()
	store := NewBacklogStore(dir)
	if err := store.Insert(sampleCandidates()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "BACKLOG.md"))
	if err != nil {
		t.Fatalf("expected BACKLOG.md rendered: %v", err)
	}
	text := string(data)
	for _, want := range []string{"# Backlog", "## P0 — Critical", "**AUTH-001** Rotate signing keys", "[security]", "(Authentication)"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in the rendered document", want)
		}
	}
}

func TestRenderBacklog_BucketsAndEmptyMarkers(t *testing.T) {
	bf := BacklogFile{
		Version: "1.0",
		Updated: "2026-08-30",
		Candidates: map[string]models.Candidate{
			"AUTH-001": {ID: "AUTH-001", Title: "Urgent fix", Priority: models.P0},
			"AUTH-002": {ID: "AUTH-002", Title: "Everyday work", Priority: models.P2},
		},
	}

	doc := RenderBacklog(bf)

	p0 := strings.Index(doc, "## P0")
	p1 := strings.Index(doc, "## P1")
	p2 := strings.Index(doc, "## P2")
	p3 := strings.Index(doc, "## P3")
	if !(p0 < p1 && p1 < p2 && p2 < p3) {
		t.Error("expected bucket headings in P0..P3 order")
	}

	// Empty buckets carry the placeholder.
	p1Section := doc[p1:p2]
	if !strings.Contains(p1Section, "_(empty)_") {
		t.Errorf("expected the P1 bucket empty marker, got %q", p1Section)
	}
	if !strings.Contains(doc, "Last updated: 2026-08-30") {
		t.Error("expected the document-level updated stamp")
	}
}

func TestRenderBacklog_PromotedMarker(t *testing.T) {
	bf := BacklogFile{
		Version: "1.0",
		Candidates: map[string]models.Candidate{
			"AUTH-001": {ID: "AUTH-001", Title: "Promoted entry", Priority: models.P2, Promoted: true},
		},
	}

	doc := RenderBacklog(bf)
	if !strings.Contains(doc, "- [x] **AUTH-001**") {
		t.Errorf("expected the promoted checkbox marker, got %q", doc)
	}
}

func TestRenderBacklog_InvalidPriorityFallsToP3(t *testing.T) {
	bf := BacklogFile{
		Version: "1.0",
		Candidates: map[string]models.Candidate{
			"AUTH-001": {ID: "AUTH-001", Title: "Mystery priority", Priority: "P9"},
		},
	}

	doc := RenderBacklog(bf)
	p3 := strings.Index(doc, "## P3")
	if !strings.Contains(doc[p3:], "AUTH-001") {
		t.Error("expected the invalid-priority entry in the P3 bucket")
	}
}

func TestRenderBacklog_SubtaskLines(t *testing.T) {
	bf := BacklogFile{
		Version: "1.0",
		Candidates: map[string]models.Candidate{
			"AUTH-001": {
				ID:       "AUTH-001",
				Title:    "Parent entry",
				Priority: models.P2,
				Subtasks: []string{"first step", "second step"},
			},
		},
	}

	doc := RenderBacklog(bf)
	if !strings.Contains(doc, "  - first step\n  - second step\n") {
		t.Errorf("expected indented subtask lines, got %q", doc)
	}
}
