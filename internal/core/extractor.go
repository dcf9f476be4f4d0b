package core

import (
	"regexp"
	"strings"

	"github.com/taskdeck/taskdeck/pkg/models"
)

// reservedMarkers are title prefixes that mark a line as annotation rather
// than work. Lines starting with one of these never become candidates.
var reservedMarkers = []string{"note:", "see:", "ref:", "link:"}

// priorityKeywords maps title keywords to inferred priorities. The first
// keyword found in the lowercase title wins.
var priorityKeywords = []struct {
	keyword  string
	priority models.Priority
}{
	{"critical", models.P0},
	{"blocker", models.P0},
	{"urgent", models.P0},
	{"high", models.P1},
	{"important", models.P1},
	{"medium", models.P2},
	{"normal", models.P2},
	{"low", models.P3},
	{"minor", models.P3},
	{"nice-to-have", models.P3},
}

// tagPattern matches bracketed [tag] tokens in a candidate title.
var tagPattern = regexp.MustCompile(`\[([^\[\]]+)\]`)

// headingPattern matches markdown headings and captures the marker and text.
var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// Extractor converts unstructured planning text into draft candidates.
// The scan is intentionally heuristic: level-2 headings set the current
// phase, level-3 headings the current section, and checklist or bullet
// lines become candidates with priority inferred from title keywords.
type Extractor struct {
	// SubtaskIndent is the leading-whitespace depth beyond which a bullet
	// line attaches as a subtask of the open candidate instead of becoming
	// a candidate itself.
	SubtaskIndent int
}

// NewExtractor creates an Extractor with the given subtask indent threshold.
// A threshold of 0 or less falls back to the default of 1, so the usual
// two-space nested bullet attaches as a subtask.
func NewExtractor(subtaskIndent int) *Extractor {
	if subtaskIndent <= 0 {
		subtaskIndent = 1
	}
	return &Extractor{SubtaskIndent: subtaskIndent}
}

// Extract scans text line by line and returns the draft candidates found.
// defaultPriority applies to any title with no recognized priority keyword.
// Candidates come back without ids; the caller allocates those.
func (e *Extractor) Extract(text string, defaultPriority models.Priority) []models.Candidate {
	if !defaultPriority.Valid() {
		defaultPriority = models.P2
	}

	var (
		candidates []models.Candidate
		phase      string
		section    string
		open       *models.Candidate
	)

	for _, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)

		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			switch {
			case level <= 2:
				// Equal-or-higher heading resets both contexts.
				if level == 2 {
					phase = title
				} else {
					phase = ""
				}
				section = ""
			case level == 3:
				section = title
			}
			open = nil
			continue
		}

		title, isItem := stripListMarker(trimmed)
		if !isItem {
			continue
		}

		if open != nil && indentDepth(raw) > e.SubtaskIndent {
			open.Subtasks = append(open.Subtasks, title)
			continue
		}

		title, tags := extractTags(title)
		if len(title) < 3 || hasReservedMarker(title) {
			open = nil
			continue
		}

		candidates = append(candidates, models.Candidate{
			Title:    title,
			Priority: inferPriority(title, defaultPriority),
			Phase:    phase,
			Section:  section,
			Tags:     tags,
		})
		open = &candidates[len(candidates)-1]
	}

	return candidates
}

// stripListMarker removes a leading bullet or checklist marker and reports
// whether the line was a list item at all.
func stripListMarker(line string) (string, bool) {
	for _, marker := range []string{"- [ ] ", "- [x] ", "- [X] ", "* [ ] ", "* [x] "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	for _, marker := range []string{"- ", "* "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	return line, false
}

// indentDepth counts leading whitespace, with tabs weighted as 4 spaces.
func indentDepth(line string) int {
	depth := 0
	for _, r := range line {
		switch r {
		case ' ':
			depth++
		case '\t':
			depth += 4
		default:
			return depth
		}
	}
	return depth
}

// extractTags pulls bracketed [tag] tokens out of a title and returns the
// cleaned title plus the tags.
func extractTags(title string) (string, []string) {
	var tags []string
	for _, m := range tagPattern.FindAllStringSubmatch(title, -1) {
		tag := strings.TrimSpace(m[1])
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	if tags == nil {
		return title, nil
	}
	cleaned := tagPattern.ReplaceAllString(title, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	return cleaned, tags
}

func hasReservedMarker(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range reservedMarkers {
		if strings.HasPrefix(lower, marker) {
			return true
		}
	}
	return false
}

// inferPriority scans the lowercase title for priority keywords; the first
// match wins, otherwise fallback applies.
func inferPriority(title string, fallback models.Priority) models.Priority {
	lower := strings.ToLower(title)
	for _, kw := range priorityKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.priority
		}
	}
	return fallback
}
