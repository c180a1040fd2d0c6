package calibration

import (
	"errors"
	"math"
)

// ErrRegressionUnavailable indicates no calibration data exists for the requested
// (provider, operation) pair. Not fatal: callers fall back to the default
// model.
var ErrRegressionUnavailable = errors.New("no calibration samples available")

// Model is an affine estimate f(nodes) = Base + PerNode*nodes.
type Model struct {
	Base    float64
	PerNode float64
}

// Eval evaluates the model at a node count, rounded to the nearest whole
// unit and never negative.
func (m Model) Eval(nodes int) int {
	v := math.Round(m.Base + m.PerNode*float64(nodes))
	if v < 0 {
		return 0
	}
	return int(v)
}

// FitLines fits the line-count model from the available samples.
//
// With samples at two or more distinct node counts, the model is a true
// two-point linear fit through the smallest- and largest-node samples, so
// evaluating at a sampled node count reproduces that sample exactly. With
// a single distinct node count, the model is constant at that sample's
// value regardless of the requested node count (the latest recording wins
// when several samples share the node count). With no samples, ErrRegressionUnavailable
// is returned.
func FitLines(samples []Sample) (Model, error) {
	return fit(samples, func(s Sample) float64 { return float64(s.TotalLines) })
}

// FitDuration fits the duration model (in seconds) with the same rules as
// FitLines.
func FitDuration(samples []Sample) (Model, error) {
	return fit(samples, func(s Sample) float64 { return s.Duration.Seconds() })
}

func fit(samples []Sample, value func(Sample) float64) (Model, error) {
	if len(samples) == 0 {
		return Model{}, ErrRegressionUnavailable
	}

	lo, hi := samples[0], samples[0]
	for _, s := range samples[1:] {
		switch {
		case s.Nodes < lo.Nodes:
			lo = s
		case s.Nodes == lo.Nodes && s.RecordedAt.After(lo.RecordedAt):
			lo = s
		}
		switch {
		case s.Nodes > hi.Nodes:
			hi = s
		case s.Nodes == hi.Nodes && s.RecordedAt.After(hi.RecordedAt):
			hi = s
		}
	}

	if lo.Nodes == hi.Nodes {
		return Model{Base: value(hi), PerNode: 0}, nil
	}

	perNode := (value(hi) - value(lo)) / float64(hi.Nodes-lo.Nodes)
	base := value(lo) - perNode*float64(lo.Nodes)
	return Model{Base: base, PerNode: perNode}, nil
}
