package progress

import "fmt"

// Stage names for the operations driven by the orchestrator.
const (
	StageDeploy  = "deploy"
	StageDestroy = "destroy"
	StageStop    = "stop"
	StageStart   = "start"
)

// Step names shared across stages.
const (
	StepBegin            = "begin"
	StepProvisionInit    = "provision-init"
	StepProvisionPlan    = "provision-plan"
	StepProvisionApply   = "provision-apply"
	StepWaitForResources = "wait-for-resources"
	StepConfigure        = "configure"
	StepDeprovision      = "deprovision"
	StepRun              = "run"
	StepComplete         = "complete"
)

// StepWeight is one named step of a stage with its share of the stage's
// total. Weights are interpreted as fractions of 100.
type StepWeight struct {
	Name   string
	Weight int
}

// stageSteps holds the fixed, explicitly ordered step list of each stage.
// Order matters: overall percent is the sum of the weights of all steps
// strictly before the current one, so steps must never be summed in map
// iteration order.
var stageSteps = map[string][]StepWeight{
	StageDeploy: {
		{StepBegin, 5},
		{StepProvisionInit, 5},
		{StepProvisionPlan, 5},
		{StepProvisionApply, 40},
		{StepWaitForResources, 15},
		{StepConfigure, 25},
		{StepComplete, 5},
	},
	StageDestroy: {
		{StepBegin, 10},
		{StepDeprovision, 80},
		{StepComplete, 10},
	},
	StageStop: {
		{StepBegin, 10},
		{StepRun, 80},
		{StepComplete, 10},
	},
	StageStart: {
		{StepBegin, 10},
		{StepRun, 80},
		{StepComplete, 10},
	},
}

// UnknownStepError indicates a progress emission referenced a step that is
// not part of its stage's fixed order.
type UnknownStepError struct {
	Stage string
	Step  string
}

// Error implements the error interface.
func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("unknown step %q in stage %q", e.Step, e.Stage)
}

// Steps returns the ordered step list of a stage, or an error for an
// unknown stage.
func Steps(stage string) ([]StepWeight, error) {
	steps, ok := stageSteps[stage]
	if !ok {
		return nil, fmt.Errorf("unknown stage: %s", stage)
	}
	return steps, nil
}

// StageWeightTotal returns the sum of all step weights of a stage.
func StageWeightTotal(stage string) (int, error) {
	steps, err := Steps(stage)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, s := range steps {
		total += s.Weight
	}
	return total, nil
}

// OverallPercent converts "percent within the current step" into "percent
// of the stage": the full weights of every step strictly before the current
// one, plus the current step's weight scaled by stepPercent.
func OverallPercent(stage, step string, stepPercent float64) (float64, error) {
	steps, err := Steps(stage)
	if err != nil {
		return 0, err
	}

	if stepPercent < 0 {
		stepPercent = 0
	}
	if stepPercent > 100 {
		stepPercent = 100
	}

	overall := 0.0
	for _, s := range steps {
		if s.Name == step {
			return overall + float64(s.Weight)*stepPercent/100, nil
		}
		overall += float64(s.Weight)
	}
	return 0, &UnknownStepError{Stage: stage, Step: step}
}
