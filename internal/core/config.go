// Package core contains the task-lifecycle engine: identifier allocation,
// candidate extraction, dependency resolution, scheduling, the lifecycle
// controller, and the audit pass.
package core

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/taskdeck/taskdeck/pkg/models"
)

// ConfigManager loads and validates the .taskdeck configuration file.
type ConfigManager interface {
	Load() (*models.GlobalConfig, error)
	Validate(cfg *models.GlobalConfig) error
}

// viperConfigManager implements ConfigManager using Viper for reading the
// YAML configuration file.
type viperConfigManager struct {
	basePath string
}

// NewConfigManager creates a ConfigManager that reads .taskdeck from
// basePath.
func NewConfigManager(basePath string) ConfigManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns a GlobalConfig populated with the built-in defaults.
func DefaultConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		DefaultProject:  "TASK",
		DefaultPriority: models.P2,
		IDPadWidth:      3,
		SubtaskIndent:   1,
		NextLimit:       5,
	}
}

// Load reads the .taskdeck file from the base path. If the file does not
// exist, the defaults are returned.
func (cm *viperConfigManager) Load() (*models.GlobalConfig, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(".taskdeck")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("defaults.project", cfg.DefaultProject)
	v.SetDefault("defaults.priority", string(cfg.DefaultPriority))
	v.SetDefault("id.pad_width", cfg.IDPadWidth)
	v.SetDefault("import.subtask_indent", cfg.SubtaskIndent)
	v.SetDefault("next.limit", cfg.NextLimit)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .taskdeck: %w", err)
	}

	cfg.DefaultProject = v.GetString("defaults.project")
	cfg.DefaultPriority = models.Priority(v.GetString("defaults.priority"))
	cfg.IDPadWidth = v.GetInt("id.pad_width")
	cfg.SubtaskIndent = v.GetInt("import.subtask_indent")
	cfg.NextLimit = v.GetInt("next.limit")

	return cfg, nil
}

// Validate checks the configuration for invalid values and returns a clear
// error naming every problem found.
func (cm *viperConfigManager) Validate(cfg *models.GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !validProjectPattern.MatchString(cfg.DefaultProject) {
		errs = append(errs, fmt.Sprintf(
			"defaults.project %q is invalid, must match [A-Z][A-Z0-9]{0,9}",
			cfg.DefaultProject,
		))
	}

	if !cfg.DefaultPriority.Valid() {
		errs = append(errs, fmt.Sprintf(
			"defaults.priority %q is invalid, must be one of: P0, P1, P2, P3",
			cfg.DefaultPriority,
		))
	}

	if cfg.IDPadWidth < 1 || cfg.IDPadWidth > 10 {
		errs = append(errs, fmt.Sprintf(
			"id.pad_width %d is invalid, must be between 1 and 10",
			cfg.IDPadWidth,
		))
	}

	if cfg.SubtaskIndent < 1 {
		errs = append(errs, fmt.Sprintf(
			"import.subtask_indent %d is invalid, must be at least 1",
			cfg.SubtaskIndent,
		))
	}

	if cfg.NextLimit < 1 {
		errs = append(errs, fmt.Sprintf(
			"next.limit %d is invalid, must be at least 1",
			cfg.NextLimit,
		))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
