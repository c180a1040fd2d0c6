package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level stackform configuration.
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Tools     ToolsConfig     `yaml:"tools"`
	History   HistoryConfig   `yaml:"history"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorkspaceConfig controls workspace directory layout and locking.
type WorkspaceConfig struct {
	// Root is the base directory holding per-workspace state.
	Root string `yaml:"root" validate:"required"`

	// CalibrationDir holds recorded calibration samples. Relative
	// paths are resolved against Root.
	CalibrationDir string `yaml:"calibration_dir" validate:"required"`

	// LockPollInterval is how often a waiting operation re-checks
	// the lock file between filesystem notifications.
	LockPollInterval time.Duration `yaml:"lock_poll_interval" validate:"min=100ms"`

	// LockWaitTimeout bounds how long an operation waits for a
	// concurrent operation to release the workspace.
	LockWaitTimeout time.Duration `yaml:"lock_wait_timeout" validate:"min=1s"`
}

// UnmarshalYAML decodes duration fields from strings like "30m" while
// keeping existing values for fields the file leaves unset.
func (w *WorkspaceConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Root             string `yaml:"root"`
		CalibrationDir   string `yaml:"calibration_dir"`
		LockPollInterval string `yaml:"lock_poll_interval"`
		LockWaitTimeout  string `yaml:"lock_wait_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Root != "" {
		w.Root = raw.Root
	}
	if raw.CalibrationDir != "" {
		w.CalibrationDir = raw.CalibrationDir
	}
	if raw.LockPollInterval != "" {
		d, err := time.ParseDuration(raw.LockPollInterval)
		if err != nil {
			return fmt.Errorf("invalid lock_poll_interval: %w", err)
		}
		w.LockPollInterval = d
	}
	if raw.LockWaitTimeout != "" {
		d, err := time.ParseDuration(raw.LockWaitTimeout)
		if err != nil {
			return fmt.Errorf("invalid lock_wait_timeout: %w", err)
		}
		w.LockWaitTimeout = d
	}
	return nil
}

// ToolsConfig names the external binaries operations shell out to.
type ToolsConfig struct {
	Provisioner string `yaml:"provisioner" validate:"required"`
	Configurer  string `yaml:"configurer" validate:"required"`

	// Playbook names run by the configurer during deploy, stop, and
	// start, resolved against the workspace directory.
	Playbook      string `yaml:"playbook" validate:"required"`
	StopPlaybook  string `yaml:"stop_playbook" validate:"required"`
	StartPlaybook string `yaml:"start_playbook" validate:"required"`

	// Readiness is an optional command run after provisioning to wait
	// for resources to become reachable. Empty skips the wait.
	Readiness string `yaml:"readiness"`
}

// HistoryConfig controls the operation history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// TelemetryConfig controls logging, tracing, and metrics.
type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=json console"`

	TracingEnabled  bool   `yaml:"tracing_enabled"`
	TracingExporter string `yaml:"tracing_exporter" validate:"omitempty,oneof=otlp stdout none"`
	TracingEndpoint string `yaml:"tracing_endpoint"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddress string `yaml:"metrics_address" validate:"required_if=MetricsEnabled true"`
}
