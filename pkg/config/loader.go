package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Root:             defaultWorkspaceRoot(),
			CalibrationDir:   "calibration",
			LockPollInterval: 5 * time.Second,
			LockWaitTimeout:  10 * time.Minute,
		},
		Tools: ToolsConfig{
			Provisioner:   "terraform",
			Configurer:    "ansible-playbook",
			Playbook:      "site.yml",
			StopPlaybook:  "stop.yml",
			StartPlaybook: "start.yml",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(defaultWorkspaceRoot(), "history.db"),
		},
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			LogFormat:       "console",
			TracingExporter: "none",
			MetricsAddress:  ":9090",
		},
	}
}

func defaultWorkspaceRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stackform"
	}
	return filepath.Join(home, ".stackform")
}

// Load reads configuration from path, merged over defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.resolvePaths()
	return cfg, nil
}

// Validate checks the configuration for field-level errors.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: field %s failed %s validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// resolvePaths makes relative directories absolute against the
// workspace root.
func (c *Config) resolvePaths() {
	if !filepath.IsAbs(c.Workspace.CalibrationDir) {
		c.Workspace.CalibrationDir = filepath.Join(c.Workspace.Root, c.Workspace.CalibrationDir)
	}
	if c.History.Path != "" && !filepath.IsAbs(c.History.Path) {
		c.History.Path = filepath.Join(c.Workspace.Root, c.History.Path)
	}
}
