package cli

import (
	"github.com/taskdeck/taskdeck/internal/core"
	"github.com/taskdeck/taskdeck/internal/observability"
	"github.com/taskdeck/taskdeck/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath    string
	Config      *models.GlobalConfig
	Lifecycle   core.Controller
	Auditor     *core.Auditor
	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
)
