package core

import (
	"fmt"
	"regexp"
	"strconv"
)

// taskIDPattern matches {PROJECT}-{NNN} identifiers.
var taskIDPattern = regexp.MustCompile(`^([A-Z][A-Z0-9]{0,9})-(\d+)$`)

// validProjectPattern matches uppercase alphanumeric project prefixes
// between 1 and 10 characters, starting with a letter.
var validProjectPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}$`)

// ParseTaskID splits an id into its project prefix and numeric suffix.
func ParseTaskID(id string) (project string, num int, ok bool) {
	m := taskIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// FormatTaskID renders a project prefix and number as a canonical id,
// zero-padding the number to padWidth digits.
func FormatTaskID(project string, num, padWidth int) string {
	return fmt.Sprintf("%s-%0*d", project, padWidth, num)
}

// IDSource yields the set of task ids currently held by one storage tier.
type IDSource interface {
	IDs() ([]string, error)
}

// IDAllocator computes the next unused identifier for a project by scanning
// every storage tier. Numbers are never reused, even for deleted tasks.
// There is no cross-call locking: two allocations issued before either is
// durably written can collide.
type IDAllocator interface {
	Next(project string) (string, error)
	NextBatch(project string, n int) ([]string, error)
}

type storeIDAllocator struct {
	padWidth int
	sources  []IDSource
}

// NewIDAllocator creates an IDAllocator that scans the given sources
// (typically the backlog, active, and archive stores). padWidth controls
// zero-padding of the numeric suffix.
func NewIDAllocator(padWidth int, sources ...IDSource) IDAllocator {
	if padWidth <= 0 {
		padWidth = 3
	}
	return &storeIDAllocator{padWidth: padWidth, sources: sources}
}

// usedNumbers collects every numeric suffix already allocated for project
// across all sources.
func (a *storeIDAllocator) usedNumbers(project string) (map[int]struct{}, error) {
	used := make(map[int]struct{})
	for _, src := range a.sources {
		ids, err := src.IDs()
		if err != nil {
			return nil, fmt.Errorf("scanning ids for %s: %w", project, err)
		}
		for _, id := range ids {
			p, n, ok := ParseTaskID(id)
			if ok && p == project {
				used[n] = struct{}{}
			}
		}
	}
	return used, nil
}

// Next returns project-(max+1) over every number found in any store.
func (a *storeIDAllocator) Next(project string) (string, error) {
	if !validProjectPattern.MatchString(project) {
		return "", &ValidationError{Field: "project", Msg: fmt.Sprintf("%q must match [A-Z][A-Z0-9]{0,9}", project)}
	}
	used, err := a.usedNumbers(project)
	if err != nil {
		return "", err
	}
	max := 0
	for n := range used {
		if n > max {
			max = n
		}
	}
	return FormatTaskID(project, max+1, a.padWidth), nil
}

// NextBatch assigns n sequential ids, skipping any number already present in
// any store.
func (a *storeIDAllocator) NextBatch(project string, n int) ([]string, error) {
	if !validProjectPattern.MatchString(project) {
		return nil, &ValidationError{Field: "project", Msg: fmt.Sprintf("%q must match [A-Z][A-Z0-9]{0,9}", project)}
	}
	used, err := a.usedNumbers(project)
	if err != nil {
		return nil, err
	}
	// Start past the highest number ever seen so deleted numbers are never
	// handed out again.
	next := 1
	for have := range used {
		if have >= next {
			next = have + 1
		}
	}
	ids := make([]string, 0, n)
	for len(ids) < n {
		if _, taken := used[next]; !taken {
			ids = append(ids, FormatTaskID(project, next, a.padWidth))
			used[next] = struct{}{}
		}
		next++
	}
	return ids, nil
}
