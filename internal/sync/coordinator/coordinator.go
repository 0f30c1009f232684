package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rulegrab/rulegrab/internal/progress"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/status"
	pkgsync "github.com/rulegrab/rulegrab/internal/sync"
	"github.com/rulegrab/rulegrab/internal/telemetry"
)

// LockFileName is the lock file created in the output root for the duration of a run
const LockFileName = ".rulegrab.lock"

var (
	// ErrRunInProgress means another run holds the output root lock
	ErrRunInProgress = errors.New("another run is using the output root")

	// ErrNoSpecs means Run was called without any source spec
	ErrNoSpecs = errors.New("no source specs to run")

	// ErrAlreadyStarted means Run was called twice on the same coordinator
	ErrAlreadyStarted = errors.New("coordinator already started")
)

// Coordinator runs the units of one fetch run
type Coordinator interface {
	// Run executes every spec concurrently and blocks until all units have
	// ended. Unit failures are reported per unit in the Report; the error is
	// only set when the run could not start.
	Run(ctx context.Context, specs []*sources.SourceSpec) (*Report, error)

	// Cancel asks every unit to stop before its next source. It may be called
	// before Run, from any goroutine, any number of times.
	Cancel()

	// RunID identifies this run in logs and reports
	RunID() string
}

// UnitReport is the outcome of one unit
type UnitReport struct {
	Spec   string
	Result *pkgsync.Result
	Err    error
}

// Report summarizes a run
type Report struct {
	RunID      string
	OutputRoot string
	Units      []UnitReport

	// Progress is the tracker state once every unit ended
	Progress progress.Snapshot

	StartedAt time.Time
	Duration  time.Duration
}

// Failed reports whether any unit could not run
func (r *Report) Failed() bool {
	for _, u := range r.Units {
		if u.Err != nil {
			return true
		}
	}
	return false
}

// Cancelled reports whether any unit stopped early
func (r *Report) Cancelled() bool {
	for _, u := range r.Units {
		if u.Result != nil && u.Result.Cancelled {
			return true
		}
	}
	return false
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager    pkgsync.Manager
	outputRoot string
	runID      string

	tracker           *progress.Tracker
	statusPersistence status.StatusPersistence
	metrics           *telemetry.FetchMetrics
	tracerProvider    trace.TracerProvider
	maxUnits          int
	lock              bool

	started atomic.Bool

	mu        gosync.Mutex
	cancelled bool
	flags     []*progress.CancelFlag
}

// New creates a coordinator landing files under outputRoot
func New(manager pkgsync.Manager, outputRoot string, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:    manager,
		outputRoot: outputRoot,
		runID:      uuid.NewString(),
		lock:       true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunID returns the run id
func (c *defaultCoordinator) RunID() string {
	return c.runID
}

// Cancel raises every registered unit flag and marks the run cancelled so
// units registered later start with a raised flag
func (c *defaultCoordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cancelled {
		slog.Warn("Cancelling run", "run_id", c.runID)
	}
	c.cancelled = true
	for _, flag := range c.flags {
		flag.Cancel()
	}
}

// newFlag registers a cancel flag for one unit
func (c *defaultCoordinator) newFlag() *progress.CancelFlag {
	c.mu.Lock()
	defer c.mu.Unlock()

	flag := &progress.CancelFlag{}
	if c.cancelled {
		flag.Cancel()
	}
	c.flags = append(c.flags, flag)
	return flag
}

// Run executes every spec
func (c *defaultCoordinator) Run(ctx context.Context, specs []*sources.SourceSpec) (*Report, error) {
	if len(specs) == 0 {
		return nil, ErrNoSpecs
	}
	if !c.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	logger := slog.With("run_id", c.runID)

	if err := os.MkdirAll(c.outputRoot, 0o750); err != nil {
		return nil, &pkgsync.DirectoryCreateError{Path: c.outputRoot, Err: err}
	}

	if c.lock {
		unlock, err := c.acquireLock()
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	tracker := c.tracker
	if tracker == nil {
		tracker = progress.NewTracker()
		defer tracker.Close()
	}

	var total uint64
	for _, spec := range specs {
		total += uint64(spec.ItemCount())
	}
	// announced before any unit starts
	tracker.AddTotal(total)

	flags := make([]*progress.CancelFlag, len(specs))
	for i := range specs {
		flags[i] = c.newFlag()
	}

	report := &Report{
		RunID:      c.runID,
		OutputRoot: c.outputRoot,
		Units:      make([]UnitReport, len(specs)),
		StartedAt:  time.Now(),
	}

	logger.Info("Starting run",
		"output_root", c.outputRoot,
		"specs", len(specs),
		"sources", total)

	var g errgroup.Group
	if c.maxUnits > 0 {
		g.SetLimit(c.maxUnits)
	}
	for i, spec := range specs {
		g.Go(func() error {
			report.Units[i] = c.runUnit(ctx, spec, flags[i], tracker, logger)
			// a failed unit never stops its siblings
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.StartedAt)
	report.Progress = tracker.Snapshot()

	logger.Info("Run finished",
		"completed", report.Progress.Completed,
		"total", report.Progress.Total,
		"succeeded", report.Progress.Succeeded,
		"skipped", report.Progress.Skipped,
		"failed", report.Progress.Failed,
		"duration", report.Duration.String())

	return report, nil
}

// acquireLock takes the output root lock without waiting
func (c *defaultCoordinator) acquireLock() (func(), error) {
	fileLock := flock.New(filepath.Join(c.outputRoot, LockFileName))
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock output root %s: %w", c.outputRoot, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, fileLock.Path())
	}
	return func() {
		if err := fileLock.Unlock(); err != nil {
			slog.Warn("Failed to release output root lock", "path", fileLock.Path(), "error", err)
		}
	}, nil
}
