// Package telemetry provides observability instrumentation for stackform.
//
// It integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), and Prometheus metrics into a single unit that is carried
// through the context of a running deployment operation.
//
// Initialize at startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "stackform"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// Component loggers and workspace/operation fields:
//
//	logger := tel.Logger.NewComponentLogger("orchestrator")
//	logger = logger.WithWorkspace(dir).WithOperation("deploy")
//	logger.Info("Starting deploy")
//
// Spans wrap each operation and each of its steps, and metrics track
// operation counts, durations, and live progress percent.
package telemetry
