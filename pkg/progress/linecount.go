package progress

import (
	"fmt"
	"time"
)

// LineCountParser reports progress purely by output volume: the fraction of
// an estimated total line count processed so far, capped at 100%. It is
// used for operations that span several underlying tool invocations, where
// structural parsing of any single tool would cover only part of the run.
// The estimate comes from calibration over historical runs.
type LineCountParser struct {
	expectedLines    int
	expectedDuration time.Duration
	seen             int
	started          time.Time
}

// NewLineCountParser creates a parser expecting the given total output
// volume. expectedDuration may be zero when no duration estimate is
// available; the time-remaining hint is then omitted.
func NewLineCountParser(expectedLines int, expectedDuration time.Duration) *LineCountParser {
	return &LineCountParser{
		expectedLines:    expectedLines,
		expectedDuration: expectedDuration,
		started:          time.Now(),
	}
}

// SeenLines returns the number of lines processed so far.
func (p *LineCountParser) SeenLines() int {
	return p.seen
}

// ParseLine implements LineParser. Every line advances the estimate.
func (p *LineCountParser) ParseLine(string) (Update, bool) {
	p.seen++

	pct := 100.0
	if p.expectedLines > 0 {
		pct = float64(p.seen) / float64(p.expectedLines) * 100
		if pct > 100 {
			pct = 100
		}
	}

	msg := fmt.Sprintf("%d of ~%d lines", p.seen, p.expectedLines)
	if remaining := p.remaining(pct); remaining > 0 {
		msg = fmt.Sprintf("%s, ~%s remaining", msg, remaining.Round(time.Second))
	}
	return Update{Percent: pct, Scaled: true, Message: msg}, true
}

// remaining estimates time left from the calibrated duration and the
// completed fraction.
func (p *LineCountParser) remaining(pct float64) time.Duration {
	if p.expectedDuration <= 0 || pct <= 0 {
		return 0
	}
	remaining := p.expectedDuration - time.Duration(float64(p.expectedDuration)*pct/100)
	if remaining < 0 {
		return 0
	}
	return remaining
}
