package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/stackform/stackform/pkg/progress"
	"github.com/stackform/stackform/pkg/workspace"
)

// Nominal line-count estimates for the short provisioner steps that have
// no plan summary to scale against.
const (
	initEstimateLines = 50
	initEstimateTime  = 30 * time.Second
	planEstimateLines = 100
	planEstimateTime  = 60 * time.Second
)

// Deploy provisions the infrastructure and configures it.
func (o *Orchestrator) Deploy(ctx context.Context, name string, opts RunOptions) error {
	return o.run(ctx, name, operationSpec{
		name:          "deploy",
		stage:         progress.StageDeploy,
		successStatus: workspace.StatusReady,
		failureStatus: workspace.StatusDeployFailed,
		steps:         o.deploySteps,
	}, opts)
}

// Destroy tears the infrastructure down. The state document is kept with
// a destroyed status for inspection.
func (o *Orchestrator) Destroy(ctx context.Context, name string, opts RunOptions) error {
	return o.run(ctx, name, operationSpec{
		name:          "destroy",
		stage:         progress.StageDestroy,
		successStatus: workspace.StatusDestroyed,
		failureStatus: workspace.StatusDestroyFailed,
		steps:         o.destroySteps,
	}, opts)
}

// Stop halts the deployment's resources without destroying them.
func (o *Orchestrator) Stop(ctx context.Context, name string, opts RunOptions) error {
	return o.run(ctx, name, operationSpec{
		name:          "stop",
		stage:         progress.StageStop,
		successStatus: workspace.StatusStopped,
		failureStatus: workspace.StatusStopFailed,
		steps:         o.playbookSteps("stop", o.cfg.Tools.StopPlaybook),
	}, opts)
}

// Start brings stopped resources back up.
func (o *Orchestrator) Start(ctx context.Context, name string, opts RunOptions) error {
	return o.run(ctx, name, operationSpec{
		name:          "start",
		stage:         progress.StageStart,
		successStatus: workspace.StatusReady,
		failureStatus: workspace.StatusStartFailed,
		steps:         o.playbookSteps("start", o.cfg.Tools.StartPlaybook),
	}, opts)
}

// deploySteps runs the deploy stage: provisioner init, plan, and apply,
// an optional readiness wait, then the configurer playbook.
func (o *Orchestrator) deploySteps(ctx context.Context, rc *runContext) error {
	tools := o.cfg.Tools

	err := rc.runner.Run(ctx, progress.Invocation{
		Tool:    "provisioner",
		Command: tools.Provisioner,
		Args:    []string{"init", "-input=false", "-no-color"},
		Dir:     rc.dir,
		Step:    progress.StepProvisionInit,
		Parser:  progress.NewLineCountParser(initEstimateLines, initEstimateTime),
	})
	if err != nil {
		return err
	}

	err = rc.runner.Run(ctx, progress.Invocation{
		Tool:    "provisioner",
		Command: tools.Provisioner,
		Args:    []string{"plan", "-input=false", "-no-color", "-out=tfplan"},
		Dir:     rc.dir,
		Step:    progress.StepProvisionPlan,
		Parser:  progress.NewLineCountParser(planEstimateLines, planEstimateTime),
	})
	if err != nil {
		return err
	}

	err = rc.runner.Run(ctx, progress.Invocation{
		Tool:    "provisioner",
		Command: tools.Provisioner,
		Args:    []string{"apply", "-input=false", "-no-color", "-auto-approve", "tfplan"},
		Dir:     rc.dir,
		Step:    progress.StepProvisionApply,
		Parser:  progress.NewProvisionParser(),
	})
	if err != nil {
		return err
	}

	if err := o.waitForResources(ctx, rc); err != nil {
		return err
	}

	return rc.runner.Run(ctx, progress.Invocation{
		Tool:    "configurer",
		Command: tools.Configurer,
		Args:    []string{filepath.Join(rc.dir, tools.Playbook)},
		Dir:     rc.dir,
		Step:    progress.StepConfigure,
		Parser:  progress.NewConfigureParser(),
	})
}

// destroySteps runs the destroy stage through the provisioner.
func (o *Orchestrator) destroySteps(ctx context.Context, rc *runContext) error {
	return rc.runner.Run(ctx, progress.Invocation{
		Tool:    "provisioner",
		Command: o.cfg.Tools.Provisioner,
		Args:    []string{"destroy", "-input=false", "-no-color", "-auto-approve"},
		Dir:     rc.dir,
		Step:    progress.StepDeprovision,
		Parser:  progress.NewProvisionParser(),
	})
}

// playbookSteps returns the step body for the single-playbook stop and
// start stages. Their output has no plan summary to scale against, so
// progress comes from the calibrated line-count model.
func (o *Orchestrator) playbookSteps(operation, playbook string) func(ctx context.Context, rc *runContext) error {
	return func(ctx context.Context, rc *runContext) error {
		estimate, err := o.estimator().Estimate(rc.state.ProviderName, operation, rc.nodes)
		if err != nil {
			return err
		}

		return rc.runner.Run(ctx, progress.Invocation{
			Tool:    "configurer",
			Command: o.cfg.Tools.Configurer,
			Args:    []string{filepath.Join(rc.dir, playbook)},
			Dir:     rc.dir,
			Step:    progress.StepRun,
			Parser:  progress.NewLineCountParser(estimate.Lines, estimate.Duration),
		})
	}
}

// waitForResources runs the configured readiness command, if any, before
// configuration starts. Without one the step passes immediately: resource
// validation is the deployment content's concern, not this tool's.
func (o *Orchestrator) waitForResources(ctx context.Context, rc *runContext) error {
	if o.cfg.Tools.Readiness == "" {
		if err := rc.tracker.Emit(progress.StepWaitForResources, progress.StatusStarted, 0, "no readiness check configured"); err != nil {
			return err
		}
		return rc.tracker.Emit(progress.StepWaitForResources, progress.StatusInProgress, 100, "skipped readiness wait")
	}

	parts := strings.Fields(o.cfg.Tools.Readiness)
	return rc.runner.Run(ctx, progress.Invocation{
		Tool:    "readiness",
		Command: parts[0],
		Args:    parts[1:],
		Dir:     rc.dir,
		Step:    progress.StepWaitForResources,
		Parser:  progress.NewLineCountParser(initEstimateLines, initEstimateTime),
	})
}
