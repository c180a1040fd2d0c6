package calibration

import (
	"errors"
	"time"

	"github.com/stackform/stackform/pkg/telemetry"
)

// Default models cover the cold-start case where no samples exist yet for
// a (provider, operation) pair.
var (
	DefaultLinesModel    = Model{Base: 800, PerNode: 250}
	DefaultDurationModel = Model{Base: 600, PerNode: 120}
)

// Estimate is the predicted output volume and duration for one run.
type Estimate struct {
	// Lines is the expected total output line count.
	Lines int

	// Duration is the expected wall-clock duration.
	Duration time.Duration

	// Calibrated reports whether historical samples backed the estimate
	// or the fixed defaults were used.
	Calibrated bool
}

// Estimator predicts run volume from the samples in one calibration
// directory.
type Estimator struct {
	dir    string
	logger *telemetry.Logger
}

// NewEstimator creates an estimator over the given calibration directory.
func NewEstimator(dir string, logger *telemetry.Logger) *Estimator {
	return &Estimator{
		dir:    dir,
		logger: logger.NewComponentLogger("calibration"),
	}
}

// Estimate predicts the output volume and duration of a run for the given
// provider, operation, and node count. Missing calibration data is not
// fatal: the fixed default models are used and the miss is logged at low
// severity.
func (e *Estimator) Estimate(provider, operation string, nodes int) (Estimate, error) {
	samples, err := Discover(e.dir, provider, operation)
	if err != nil {
		return Estimate{}, err
	}

	linesModel, err := FitLines(samples)
	if err != nil {
		if !errors.Is(err, ErrRegressionUnavailable) {
			return Estimate{}, err
		}
		e.logger.WithFields(map[string]interface{}{
			"provider":  provider,
			"operation": operation,
		}).Debug("No calibration samples, using default estimate")
		return Estimate{
			Lines:    DefaultLinesModel.Eval(nodes),
			Duration: time.Duration(DefaultDurationModel.Eval(nodes)) * time.Second,
		}, nil
	}

	durationModel, err := FitDuration(samples)
	if err != nil {
		return Estimate{}, err
	}

	return Estimate{
		Lines:      linesModel.Eval(nodes),
		Duration:   time.Duration(durationModel.Eval(nodes)) * time.Second,
		Calibrated: true,
	}, nil
}

// Record captures a finished run as a new sample for future estimates.
func (e *Estimator) Record(s Sample) error {
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now().UTC()
	}
	e.logger.WithFields(map[string]interface{}{
		"provider":    s.Provider,
		"operation":   s.Operation,
		"nodes":       s.Nodes,
		"total_lines": s.TotalLines,
	}).Debug("Recording calibration sample")
	return WriteSample(e.dir, s)
}

// Samples lists every known sample for a (provider, operation) pair.
func (e *Estimator) Samples(provider, operation string) ([]Sample, error) {
	return Discover(e.dir, provider, operation)
}
