package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/taskdeck/taskdeck/pkg/models"
	"gopkg.in/yaml.v3"
)

// BacklogFile is the top-level structure of backlog.yaml: a keyed map of
// candidates plus a document-level last-updated stamp. The rendered
// BACKLOG.md is a pure projection of this structure; mutation never touches
// rendered text.
type BacklogFile struct {
	Version    string                      `yaml:"version"`
	Updated    string                      `yaml:"updated,omitempty"`
	Candidates map[string]models.Candidate `yaml:"candidates"`
}

// BacklogStore manages the priority-bucketed queue of draft candidates.
type BacklogStore interface {
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

type fileBacklogStore struct {
	basePath string
	data     BacklogFile
	now      func() time.Time
}

// NewBacklogStore creates a BacklogStore backed by backlog.yaml in the given
// base directory, with BACKLOG.md rendered alongside it on every save.
func NewBacklogStore(basePath string) BacklogStore {
	return &fileBacklogStore{
		basePath: basePath,
		data: BacklogFile{
			Version:    "1.0",
			Candidates: make(map[string]models.Candidate),
		},
		now: time.Now,
	}
}

func (s *fileBacklogStore) yamlPath() string {
	return filepath.Join(s.basePath, "backlog.yaml")
}

func (s *fileBacklogStore) docPath() string {
	return filepath.Join(s.basePath, "BACKLOG.md")
}

func (s *fileBacklogStore) Load() error {
	data, err := os.ReadFile(s.yamlPath())
	if err != nil {
		if os.IsNotExist(err) {
			s.data = BacklogFile{
				Version:    "1.0",
				Candidates: make(map[string]models.Candidate),
			}
			return nil
		}
		return fmt.Errorf("loading backlog: %w", err)
	}

	var bf BacklogFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return fmt.Errorf("loading backlog: parsing YAML: %w", err)
	}
	if bf.Candidates == nil {
		bf.Candidates = make(map[string]models.Candidate)
	}
	s.data = bf
	return nil
}

// Save writes backlog.yaml and re-renders BACKLOG.md, refreshing the
// document-level updated stamp.
func (s *fileBacklogStore) Save() error {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving backlog: creating directory: %w", err)
	}
	s.data.Updated = s.now().UTC().Format("2006-01-02")

	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("saving backlog: marshalling YAML: %w", err)
	}
	if err := os.WriteFile(s.yamlPath(), data, 0o600); err != nil {
		return fmt.Errorf("saving backlog: writing file: %w", err)
	}

	doc := RenderBacklog(s.data)
	if err := os.WriteFile(s.docPath(), []byte(doc), 0o600); err != nil {
		return fmt.Errorf("saving backlog: rendering document: %w", err)
	}
	return nil
}

func (s *fileBacklogStore) Insert(cands []models.Candidate) error {
	for _, cand := range cands {
		if cand.ID == "" {
			return fmt.Errorf("inserting candidate: id must not be empty")
		}
		if _, exists := s.data.Candidates[cand.ID]; exists {
			return fmt.Errorf("inserting candidate: %s already exists", cand.ID)
		}
	}
	for _, cand := range cands {
		s.data.Candidates[cand.ID] = cand
	}
	return nil
}

func (s *fileBacklogStore) Get(id string) (*models.Candidate, error) {
	cand, exists := s.data.Candidates[id]
	if !exists {
		return nil, fmt.Errorf("candidate %s not found", id)
	}
	return &cand, nil
}

// MarkPromoted flips the entry's marker from pending to promoted in place.
// The entry stays in the backlog as an audit marker.
func (s *fileBacklogStore) MarkPromoted(id string) error {
	cand, exists := s.data.Candidates[id]
	if !exists {
		return fmt.Errorf("marking promoted: candidate %s not found", id)
	}
	cand.Promoted = true
	s.data.Candidates[id] = cand
	return nil
}

// Update rewrites title, tags, phase, section, or priority in place. Zero
// values leave fields unchanged. A priority change moves the entry to a
// different bucket in the rendered document.
func (s *fileBacklogStore) Update(id string, updates models.Candidate) error {
	cand, exists := s.data.Candidates[id]
	if !exists {
		return fmt.Errorf("updating candidate: %s not found", id)
	}
	if updates.Title != "" {
		cand.Title = updates.Title
	}
	if updates.Priority != "" {
		cand.Priority = updates.Priority
	}
	if updates.Phase != "" {
		cand.Phase = updates.Phase
	}
	if updates.Section != "" {
		cand.Section = updates.Section
	}
	if updates.Tags != nil {
		cand.Tags = updates.Tags
	}
	if updates.Subtasks != nil {
		cand.Subtasks = updates.Subtasks
	}
	s.data.Candidates[id] = cand
	return nil
}

func (s *fileBacklogStore) Remove(id string) error {
	if _, exists := s.data.Candidates[id]; !exists {
		return fmt.Errorf("removing candidate: %s not found", id)
	}
	delete(s.data.Candidates, id)
	return nil
}

func (s *fileBacklogStore) All() ([]models.Candidate, error) {
	cands := make([]models.Candidate, 0, len(s.data.Candidates))
	for _, cand := range s.data.Candidates {
		cands = append(cands, cand)
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].ID < cands[j].ID })
	return cands, nil
}

func (s *fileBacklogStore) IDs() ([]string, error) {
	ids := make([]string, 0, len(s.data.Candidates))
	for id := range s.data.Candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// --- Document renderer ---

// bucketHeadings maps each priority tier to its section heading in the
// rendered document.
var bucketHeadings = map[models.Priority]string{
	models.P0: "## P0 — Critical",
	models.P1: "## P1 — High",
	models.P2: "## P2 — Medium",
	models.P3: "## P3 — Low",
}

// RenderBacklog projects the structured backlog into the bucketed checklist
// document. The renderer is pure and stateless: the same BacklogFile always
// renders to the same text.
func RenderBacklog(bf BacklogFile) string {
	byBucket := make(map[models.Priority][]models.Candidate)
	for _, cand := range bf.Candidates {
		pri := cand.Priority
		if !pri.Valid() {
			pri = models.P3
		}
		byBucket[pri] = append(byBucket[pri], cand)
	}

	var b strings.Builder
	b.WriteString("# Backlog\n")
	if bf.Updated != "" {
		fmt.Fprintf(&b, "\nLast updated: %s\n", bf.Updated)
	}

	for _, pri := range models.Priorities {
		b.WriteString("\n" + bucketHeadings[pri] + "\n\n")
		cands := byBucket[pri]
		sort.Slice(cands, func(i, j int) bool { return cands[i].ID < cands[j].ID })
		if len(cands) == 0 {
			b.WriteString("_(empty)_\n")
			continue
		}
		for _, cand := range cands {
			b.WriteString(renderCandidateLine(cand))
		}
	}
	return b.String()
}

// renderCandidateLine renders one checklist line plus indented subtask
// lines. Promoted entries keep their line with the promoted marker.
func renderCandidateLine(cand models.Candidate) string {
	marker := " "
	if cand.Promoted {
		marker = "x"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- [%s] **%s** %s", marker, cand.ID, cand.Title)
	if len(cand.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(cand.Tags, ", "))
	}
	if cand.Phase != "" {
		fmt.Fprintf(&b, " (%s)", cand.Phase)
	}
	b.WriteString("\n")
	for _, sub := range cand.Subtasks {
		fmt.Fprintf(&b, "  - %s\n", sub)
	}
	return b.String()
}
