// Package internal provides the App struct that wires all components of
// taskdeck together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/taskdeck/taskdeck/internal/cli"
	"github.com/taskdeck/taskdeck/internal/core"
	"github.com/taskdeck/taskdeck/internal/observability"
	"github.com/taskdeck/taskdeck/internal/storage"
	"github.com/taskdeck/taskdeck/pkg/models"
)

// App holds all service dependencies for taskdeck.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigManager
	Config    *models.GlobalConfig

	// Storage layer
	Backlog storage.BacklogStore
	Active  storage.TaskStore
	Archive storage.TaskStore

	// Core services
	Allocator core.IDAllocator
	Extractor *core.Extractor
	Lifecycle core.Controller
	Auditor   *core.Auditor

	// Observability
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components of taskdeck. basePath is the root
// directory where all data is stored (typically the directory containing
// .taskdeck).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigManager(basePath)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		// Use defaults if config file is missing or unreadable.
		cfg = core.DefaultConfig()
	}
	if err := app.ConfigMgr.Validate(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage layer ---
	app.Backlog = storage.NewBacklogStore(basePath)
	app.Active = storage.NewTaskStore(filepath.Join(basePath, "tasks"))
	app.Archive = storage.NewTaskStore(filepath.Join(basePath, "archive"))

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".tdk_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable event recording if the log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Core services ---
	// The allocator scans all three tiers so a number is never handed out
	// twice, even across the backlog/active/archive boundary.
	app.Allocator = core.NewIDAllocator(cfg.IDPadWidth, app.Backlog, app.Active, app.Archive)
	app.Extractor = core.NewExtractor(cfg.SubtaskIndent)

	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
	}
	app.Lifecycle = core.NewController(app.Backlog, app.Active, app.Archive, app.Allocator, app.Extractor, events, cfg)
	app.Auditor = core.NewAuditor(app.Backlog, app.Active, app.Archive)

	// --- CLI layer ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Lifecycle = app.Lifecycle
	cli.Auditor = app.Auditor
	cli.EventLog = app.EventLog
	cli.MetricsCalc = app.MetricsCalc

	return app, nil
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the data directory: TDK_HOME if set, otherwise
// the nearest ancestor directory containing .taskdeck, otherwise the
// current directory.
func ResolveBasePath() string {
	if home := os.Getenv("TDK_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".taskdeck")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger,
// lifting task_id out of the data map into the event's own field.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	taskID, _ := data["task_id"].(string)
	delete(data, "task_id")
	if len(data) == 0 {
		data = nil
	}
	return a.log.Write(observability.Event{
		Time:   time.Now().UTC(),
		Type:   eventType,
		TaskID: taskID,
		Data:   data,
	})
}
