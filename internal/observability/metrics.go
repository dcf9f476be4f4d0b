package observability

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Metrics aggregates lifecycle activity over a time window.
type Metrics struct {
	TasksCreated   int
	TasksImported  int
	TasksPromoted  int
	TasksCompleted int
	TasksArchived  int
	EventCount     int
	EventsByType   map[string]int
	OldestEvent    *time.Time
	NewestEvent    *time.Time
}

// MetricsCalculator computes metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type eventLogMetrics struct {
	log EventLog
}

// NewMetricsCalculator creates a MetricsCalculator over the given event log.
func NewMetricsCalculator(log EventLog) MetricsCalculator {
	return &eventLogMetrics{log: log}
}

// Calculate reads every event since the given time and tallies lifecycle
// counters. A completed task is counted from a task.updated event whose
// changed fields include "completed".
func (m *eventLogMetrics) Calculate(since time.Time) (*Metrics, error) {
	events, err := m.log.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("calculating metrics: %w", err)
	}

	metrics := &Metrics{EventsByType: make(map[string]int)}
	for _, event := range events {
		metrics.EventCount++
		metrics.EventsByType[event.Type]++

		switch event.Type {
		case "task.created":
			metrics.TasksCreated++
		case "backlog.imported":
			if count, ok := event.Data["count"].(float64); ok {
				metrics.TasksImported += int(count)
			}
		case "task.promoted":
			metrics.TasksPromoted++
		case "task.updated":
			if fields, ok := event.Data["fields"].(string); ok && slices.Contains(strings.Split(fields, ","), "completed") {
				metrics.TasksCompleted++
			}
		case "task.archived":
			metrics.TasksArchived++
		}

		t := event.Time
		if metrics.OldestEvent == nil || t.Before(*metrics.OldestEvent) {
			oldest := t
			metrics.OldestEvent = &oldest
		}
		if metrics.NewestEvent == nil || t.After(*metrics.NewestEvent) {
			newest := t
			metrics.NewestEvent = &newest
		}
	}

	return metrics, nil
}
