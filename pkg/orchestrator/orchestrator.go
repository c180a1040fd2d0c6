package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/stackform/stackform/pkg/calibration"
	"github.com/stackform/stackform/pkg/config"
	"github.com/stackform/stackform/pkg/history"
	"github.com/stackform/stackform/pkg/telemetry"
	"github.com/stackform/stackform/pkg/workspace"
)

// Orchestrator drives deployment operations over named workspaces.
type Orchestrator struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	history *history.Store
	out     io.Writer

	logger *telemetry.Logger
}

// New creates an orchestrator. The history store may be nil when history
// recording is disabled; tool output is forwarded to out.
func New(cfg *config.Config, tel *telemetry.Telemetry, hist *history.Store, out io.Writer) *Orchestrator {
	if out == nil {
		out = os.Stdout
	}
	return &Orchestrator{
		cfg:     cfg,
		tel:     tel,
		history: hist,
		out:     out,
		logger:  tel.Logger.NewComponentLogger("orchestrator"),
	}
}

// WorkspaceDir returns the directory of a named workspace.
func (o *Orchestrator) WorkspaceDir(name string) string {
	return filepath.Join(o.cfg.Workspace.Root, name)
}

// InitParams describes a new workspace.
type InitParams struct {
	TargetVersion  string
	TargetPlatform string
	Provider       string
}

// InitWorkspace creates a workspace and its initial state document. It
// fails if the workspace already exists.
func (o *Orchestrator) InitWorkspace(_ context.Context, name string, params InitParams) error {
	if name == "" {
		return fmt.Errorf("workspace name is required")
	}

	store := workspace.NewStore(o.WorkspaceDir(name))
	err := store.Init(workspace.State{
		Status:         workspace.StatusInitialized,
		TargetVersion:  params.TargetVersion,
		TargetPlatform: params.TargetPlatform,
		ProviderName:   params.Provider,
	})
	if err != nil {
		return err
	}

	o.logger.WithWorkspace(name).WithFields(map[string]interface{}{
		"provider": params.Provider,
		"version":  params.TargetVersion,
	}).Info("Workspace initialized")
	return nil
}

// Status reports the externally visible status of a workspace: an
// in-progress status while an operation holds the lock, otherwise the
// persisted state. Stale locks are reclaimed as a side effect.
func (o *Orchestrator) Status(_ context.Context, name string) (workspace.Status, *workspace.State, error) {
	dir := o.WorkspaceDir(name)
	store := workspace.NewStore(dir)
	locks := workspace.NewLockManager(dir, o.tel.Logger)

	status, err := workspace.DerivedStatus(store, locks)
	if err != nil {
		return "", nil, err
	}

	state, err := store.Read()
	if err != nil {
		return "", nil, err
	}
	return status, state, nil
}

// estimator returns the calibration estimator over the configured sample
// directory.
func (o *Orchestrator) estimator() *calibration.Estimator {
	return calibration.NewEstimator(o.cfg.Workspace.CalibrationDir, o.tel.Logger)
}
