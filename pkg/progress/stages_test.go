package progress

import (
	"errors"
	"testing"
)

func TestStageWeightsSumToHundred(t *testing.T) {
	for _, stage := range []string{StageDeploy, StageDestroy, StageStop, StageStart} {
		total, err := StageWeightTotal(stage)
		if err != nil {
			t.Fatalf("failed to total stage %s: %v", stage, err)
		}
		if total != 100 {
			t.Errorf("stage %s weights sum to %d, expected 100", stage, total)
		}
	}
}

func TestStepsRejectsUnknownStage(t *testing.T) {
	if _, err := Steps("bogus"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestOverallPercentAtStepBoundaries(t *testing.T) {
	// deploy: begin 5, provision-init 5, provision-plan 5,
	// provision-apply 40, wait-for-resources 15, configure 25, complete 5.
	cases := []struct {
		step        string
		stepPercent float64
		want        float64
	}{
		{StepBegin, 0, 0},
		{StepBegin, 100, 5},
		{StepProvisionInit, 0, 5},
		{StepProvisionPlan, 100, 15},
		{StepProvisionApply, 50, 35},
		{StepWaitForResources, 0, 55},
		{StepConfigure, 100, 95},
		{StepComplete, 100, 100},
	}
	for _, tc := range cases {
		got, err := OverallPercent(StageDeploy, tc.step, tc.stepPercent)
		if err != nil {
			t.Fatalf("failed for step %s: %v", tc.step, err)
		}
		if got != tc.want {
			t.Errorf("OverallPercent(deploy, %s, %.0f) = %.1f, want %.1f",
				tc.step, tc.stepPercent, got, tc.want)
		}
	}
}

func TestOverallPercentClampsStepPercent(t *testing.T) {
	got, err := OverallPercent(StageDestroy, StepDeprovision, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 90 {
		t.Errorf("expected clamp to 90, got %.1f", got)
	}

	got, err = OverallPercent(StageDestroy, StepDeprovision, -10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 10 {
		t.Errorf("expected clamp to 10, got %.1f", got)
	}
}

func TestOverallPercentUnknownStep(t *testing.T) {
	_, err := OverallPercent(StageDeploy, "mystery", 50)
	var unknownErr *UnknownStepError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownStepError, got %v", err)
	}
	if unknownErr.Stage != StageDeploy || unknownErr.Step != "mystery" {
		t.Errorf("unexpected error details: %+v", unknownErr)
	}

	// Steps valid in one stage are not valid in another.
	if _, err := OverallPercent(StageStop, StepConfigure, 50); err == nil {
		t.Error("expected error for configure step in stop stage")
	}
}
