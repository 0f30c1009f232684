package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rulegrab/rulegrab/internal/progress"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/status"
	pkgsync "github.com/rulegrab/rulegrab/internal/sync"
	"github.com/rulegrab/rulegrab/internal/versions"
)

// runUnit performs one spec and records its status
func (c *defaultCoordinator) runUnit(
	ctx context.Context,
	spec *sources.SourceSpec,
	flag *progress.CancelFlag,
	tracker *progress.Tracker,
	logger *slog.Logger,
) (unit UnitReport) {
	unit.Spec = spec.Name

	// The final status is written in a defer so a panicking unit still leaves
	// a Failed record behind.
	now := time.Now()
	runStatus := &status.RunStatus{
		RunID:     c.runID,
		Phase:     status.PhaseFailed,
		Message:   fmt.Sprintf("Unexpected failure while fetching spec %s", spec.Name),
		StartedAt: &now,
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Unit panicked", "spec", spec.Name, "panic", r)
			unit.Err = fmt.Errorf("unit %s panicked: %v", spec.Name, r)
		}
		c.saveStatus(ctx, spec.Name, runStatus, logger)
	}()

	c.saveStatus(ctx, spec.Name, &status.RunStatus{
		RunID:     c.runID,
		Phase:     status.PhaseRunning,
		StartedAt: &now,
	}, logger)

	result, err := c.manager.PerformSync(ctx, spec, &pkgsync.Run{
		OutputRoot:     c.outputRoot,
		Tracker:        tracker,
		Cancel:         flag,
		Metrics:        c.metrics,
		TracerProvider: c.tracerProvider,
	})
	unit.Result = result
	unit.Err = err
	if err != nil {
		logger.Error("Unit failed", "spec", spec.Name, "error", err)
	}

	runStatus = pkgsync.ToRunStatus(c.runID, result, err)
	return unit
}

// saveStatus persists a unit status when a persistence is configured. The
// report is observational, so failures are only logged.
func (c *defaultCoordinator) saveStatus(
	ctx context.Context, specName string, st *status.RunStatus, logger *slog.Logger,
) {
	if c.statusPersistence == nil {
		return
	}
	st.Version = versions.GetVersionInfo().Version
	// the run may be cancelled; the report must still be written
	if err := c.statusPersistence.SaveStatus(context.WithoutCancel(ctx), specName, st); err != nil {
		logger.Error("Error saving run status", "spec", specName, "error", err)
	}
}
