// Package storage implements the flat-file persistence for taskdeck: the
// backlog of draft candidates and the keyed active/archive task stores.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/taskdeck/taskdeck/pkg/models"
	"gopkg.in/yaml.v3"
)

// TaskStore is a keyed collection of task records, one file per id. The
// active and archive tiers are separate instances over different
// directories.
type TaskStore interface {
	Create(rec *models.TaskRecord) error
	Read(id string) (*models.TaskRecord, error)
	Update(id string, mutate func(*models.TaskRecord) error) (*models.TaskRecord, error)
	Delete(id string) error
	List() ([]*models.TaskRecord, error)
	Exists(id string) (bool, error)
	IDs() ([]string, error)
}

// fileTaskStore persists each record as {id}.md: a YAML frontmatter block
// followed by a markdown body with fixed Description, Subtasks, and Notes
// sections.
type fileTaskStore struct {
	dir string
}

// NewTaskStore creates a TaskStore over the given directory. The directory
// is created lazily on first write.
func NewTaskStore(dir string) TaskStore {
	return &fileTaskStore{dir: dir}
}

func (s *fileTaskStore) path(id string) string {
	return filepath.Join(s.dir, id+".md")
}

func (s *fileTaskStore) Create(rec *models.TaskRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("creating record: id must not be empty")
	}
	if ok, err := s.Exists(rec.ID); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("creating record: task %s already exists", rec.ID)
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating record %s: %w", rec.ID, err)
	}
	data, err := EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("creating record %s: %w", rec.ID, err)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0o600); err != nil {
		return fmt.Errorf("creating record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *fileTaskStore) Read(id string) (*models.TaskRecord, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}
	rec, err := DecodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", id, err)
	}
	return rec, nil
}

func (s *fileTaskStore) Update(id string, mutate func(*models.TaskRecord) error) (*models.TaskRecord, error) {
	rec, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	data, err := EncodeRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("updating record %s: %w", id, err)
	}
	if err := os.WriteFile(s.path(id), data, 0o600); err != nil {
		return nil, fmt.Errorf("updating record %s: %w", id, err)
	}
	return rec, nil
}

func (s *fileTaskStore) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return nil
}

func (s *fileTaskStore) List() ([]*models.TaskRecord, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}
	recs := make([]*models.TaskRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Read(id)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (s *fileTaskStore) Exists(id string) (bool, error) {
	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking record %s: %w", id, err)
}

func (s *fileTaskStore) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing records: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".md") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".md"))
	}
	sort.Strings(ids)
	return ids, nil
}

// --- Record codec ---

const frontmatterFence = "---"

// EncodeRecord renders a record as a frontmatter metadata block followed by
// the fixed body sections.
func EncodeRecord(rec *models.TaskRecord) ([]byte, error) {
	meta, err := yaml.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshalling metadata: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterFence + "\n")
	b.Write(meta)
	b.WriteString(frontmatterFence + "\n")

	b.WriteString("\n## Description\n\n")
	if rec.Description != "" {
		b.WriteString(rec.Description + "\n")
	}

	b.WriteString("\n## Subtasks\n\n")
	for _, st := range rec.Subtasks {
		marker := " "
		if st.Done {
			marker = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", marker, st.Text)
	}

	b.WriteString("\n## Notes\n\n")
	if rec.Notes != "" {
		b.WriteString(rec.Notes + "\n")
	}

	return []byte(b.String()), nil
}

// DecodeRecord parses a frontmatter record file back into a TaskRecord.
func DecodeRecord(data []byte) (*models.TaskRecord, error) {
	text := string(data)
	if !strings.HasPrefix(text, frontmatterFence+"\n") {
		return nil, fmt.Errorf("missing frontmatter block")
	}
	rest := text[len(frontmatterFence)+1:]
	end := strings.Index(rest, "\n"+frontmatterFence+"\n")
	if end < 0 {
		return nil, fmt.Errorf("unterminated frontmatter block")
	}
	meta := rest[:end+1]
	body := rest[end+len(frontmatterFence)+2:]

	var rec models.TaskRecord
	if err := yaml.Unmarshal([]byte(meta), &rec); err != nil {
		return nil, fmt.Errorf("parsing metadata: %w", err)
	}

	rec.Description, rec.Subtasks, rec.Notes = parseBody(body)
	return &rec, nil
}

// parseBody splits the markdown body into the three fixed sections.
func parseBody(body string) (description string, subtasks []models.Subtask, notes string) {
	section := ""
	var desc, note []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			section = strings.TrimSpace(strings.TrimPrefix(trimmed, "## "))
			continue
		}
		switch section {
		case "Description":
			desc = append(desc, line)
		case "Subtasks":
			if st, ok := parseSubtaskLine(trimmed); ok {
				subtasks = append(subtasks, st)
			}
		case "Notes":
			note = append(note, line)
		}
	}
	return strings.TrimSpace(strings.Join(desc, "\n")), subtasks, strings.TrimSpace(strings.Join(note, "\n"))
}

func parseSubtaskLine(line string) (models.Subtask, bool) {
	switch {
	case strings.HasPrefix(line, "- [ ] "):
		return models.Subtask{Text: strings.TrimPrefix(line, "- [ ] ")}, true
	case strings.HasPrefix(line, "- [x] "):
		return models.Subtask{Text: strings.TrimPrefix(line, "- [x] "), Done: true}, true
	case strings.HasPrefix(line, "- [X] "):
		return models.Subtask{Text: strings.TrimPrefix(line, "- [X] "), Done: true}, true
	}
	return models.Subtask{}, false
}
