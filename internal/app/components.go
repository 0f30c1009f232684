package app

import (
	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/progress"
	pkgsync "github.com/rulegrab/rulegrab/internal/sync"
	"github.com/rulegrab/rulegrab/internal/sync/coordinator"
)

// AppComponents groups the run-scoped components of a fetch run
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Coordinator dispatches one unit per tool
	Coordinator coordinator.Coordinator

	// SyncManager runs a single unit
	SyncManager pkgsync.Manager

	// Tracker aggregates progress across units
	Tracker *progress.Tracker

	// Arbiter holds the sticky overwrite policy of the run
	Arbiter *conflict.Arbiter

	// ProgressBar is set when a terminal progress bar is drawn
	ProgressBar bool
}
