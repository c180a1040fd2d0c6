package calibration

import (
	"testing"
	"time"

	"github.com/stackform/stackform/pkg/telemetry"
)

func TestEstimateFallsBackToDefaults(t *testing.T) {
	e := NewEstimator(t.TempDir(), telemetry.NopLogger())

	estimate, err := e.Estimate("aws", "deploy", 2)
	if err != nil {
		t.Fatalf("expected missing samples not to be fatal: %v", err)
	}
	if estimate.Calibrated {
		t.Error("expected uncalibrated estimate")
	}
	if estimate.Lines != 800+250*2 {
		t.Errorf("expected default lines model, got %d", estimate.Lines)
	}
	if estimate.Duration != time.Duration(600+120*2)*time.Second {
		t.Errorf("expected default duration model, got %s", estimate.Duration)
	}
}

func TestEstimateUsesSamples(t *testing.T) {
	dir := t.TempDir()
	e := NewEstimator(dir, telemetry.NopLogger())

	now := time.Now().UTC()
	for _, s := range []Sample{
		{Provider: "aws", Operation: "deploy", Nodes: 1, TotalLines: 994, Duration: 600 * time.Second, RecordedAt: now},
		{Provider: "aws", Operation: "deploy", Nodes: 4, TotalLines: 1903, Duration: 1500 * time.Second, RecordedAt: now},
	} {
		if err := e.Record(s); err != nil {
			t.Fatalf("failed to record sample: %v", err)
		}
	}

	estimate, err := e.Estimate("aws", "deploy", 1)
	if err != nil {
		t.Fatalf("failed to estimate: %v", err)
	}
	if !estimate.Calibrated {
		t.Error("expected calibrated estimate")
	}
	if estimate.Lines != 994 {
		t.Errorf("expected the nodes=1 sample reproduced exactly, got %d", estimate.Lines)
	}
	if estimate.Duration != 600*time.Second {
		t.Errorf("expected the nodes=1 duration reproduced exactly, got %s", estimate.Duration)
	}
}

func TestRecordStampsTimestamp(t *testing.T) {
	dir := t.TempDir()
	e := NewEstimator(dir, telemetry.NopLogger())

	err := e.Record(Sample{
		Provider: "aws", Operation: "deploy", Nodes: 1,
		TotalLines: 500, Duration: time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	samples, err := e.Samples("aws", "deploy")
	if err != nil {
		t.Fatalf("failed to list samples: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0].RecordedAt.IsZero() {
		t.Error("expected recorded timestamp to be stamped")
	}
}
