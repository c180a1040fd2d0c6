package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stackform/stackform/pkg/config"
	"github.com/stackform/stackform/pkg/history"
	"github.com/stackform/stackform/pkg/orchestrator"
	"github.com/stackform/stackform/pkg/telemetry"
)

// runtime bundles the wired-up components every subcommand needs.
type runtime struct {
	cfg  *config.Config
	tel  *telemetry.Telemetry
	hist *history.Store
	orch *orchestrator.Orchestrator
}

// newRuntime loads configuration and builds telemetry, the history store,
// and the orchestrator. Callers must close the runtime when done.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = buildVersion
	tcfg.Logging.Level = cfg.Telemetry.LogLevel
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	tcfg.Logging.Format = cfg.Telemetry.LogFormat
	tcfg.Tracing.Enabled = cfg.Telemetry.TracingEnabled
	if cfg.Telemetry.TracingExporter != "" {
		tcfg.Tracing.Exporter = cfg.Telemetry.TracingExporter
	}
	tcfg.Tracing.Endpoint = cfg.Telemetry.TracingEndpoint
	tcfg.Metrics.Enabled = cfg.Telemetry.MetricsEnabled
	tcfg.Metrics.ListenAddress = cfg.Telemetry.MetricsAddress

	tel, err := telemetry.NewTelemetry(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if tcfg.Metrics.Enabled {
		if err := tel.StartMetricsServer(); err != nil {
			tel.Logger.WithError(err).Warn("Failed to start metrics server")
		}
	}

	var hist *history.Store
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		hist, err = history.NewStore(history.Config{Path: cfg.History.Path})
		if err != nil {
			return nil, err
		}
		if err := hist.Init(ctx); err != nil {
			return nil, err
		}
		if err := hist.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	return &runtime{
		cfg:  cfg,
		tel:  tel,
		hist: hist,
		orch: orchestrator.New(cfg, tel, hist, os.Stdout),
	}, nil
}

// close releases the runtime's resources.
func (r *runtime) close(ctx context.Context) {
	if r.hist != nil {
		if err := r.hist.Close(); err != nil {
			r.tel.Logger.WithError(err).Warn("Failed to close history store")
		}
	}
	if err := r.tel.Shutdown(ctx); err != nil {
		r.tel.Logger.WithError(err).Warn("Failed to shut down telemetry")
	}
}
