package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rulegrab/rulegrab/internal/progress"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/telemetry"
)

const defaultDirPerm os.FileMode = 0o750

// SourceResult is the outcome of one source of a spec
type SourceResult struct {
	Item     sources.Item
	Outcome  sources.Outcome
	Duration time.Duration
}

// Result contains the result of one unit, successful or not
type Result struct {
	// Name is the spec name
	Name string

	// DestDir is outputRoot/destSubfolder
	DestDir string

	// Total is the number of sources of the spec
	Total int

	// Attempted counts sources processed before the unit ended
	Attempted int

	Written int
	Skipped int
	Failed  int

	// Files counts files landed across all sources
	Files int

	// Cancelled is set when the unit stopped before attempting every source
	Cancelled bool

	Sources []SourceResult

	StartedAt  time.Time
	FinishedAt time.Time
}

// DirectoryCreateError means the unit's destination directory could not be
// created. The unit is aborted and none of its sources are attempted.
type DirectoryCreateError struct {
	Path string
	Err  error
}

func (e *DirectoryCreateError) Error() string {
	return fmt.Sprintf("failed to create directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreateError) Unwrap() error {
	return e.Err
}

// Run carries the run-scoped state shared by the units of one run
type Run struct {
	// OutputRoot is the directory receiving every spec's destSubfolder
	OutputRoot string

	// Tracker is shared by all units of the run. Nil disables progress.
	Tracker *progress.Tracker

	// Cancel is the unit's own flag. Nil means the unit cannot be cancelled
	// other than through its context.
	Cancel *progress.CancelFlag

	Metrics        *telemetry.FetchMetrics
	TracerProvider trace.TracerProvider
}

// Manager runs source specs
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/rulegrab/rulegrab/internal/sync Manager
type Manager interface {
	// PerformSync fetches every source of spec into run.OutputRoot/spec.DestSubfolder.
	// Per-source failures are reported in the Result; the returned error is
	// only set when the unit could not run at all.
	PerformSync(ctx context.Context, spec *sources.SourceSpec, run *Run) (*Result, error)
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	fetcherFactory sources.FetcherFactory
}

// NewDefaultSyncManager creates a new default sync manager
func NewDefaultSyncManager(fetcherFactory sources.FetcherFactory) Manager {
	return &defaultSyncManager{
		fetcherFactory: fetcherFactory,
	}
}

// PerformSync runs one unit: repositories first, then pages, each in
// configuration order, stopping early once the unit's flag or ctx is cancelled.
func (s *defaultSyncManager) PerformSync(
	ctx context.Context, spec *sources.SourceSpec, run *Run,
) (*Result, error) {
	if spec == nil {
		return nil, fmt.Errorf("source spec cannot be nil")
	}
	if run == nil {
		run = &Run{}
	}

	logger := slog.With("spec", spec.Name)
	ctx, span := telemetry.StartSpan(ctx, run.TracerProvider, "sync "+spec.Name,
		attribute.String("spec", spec.Name),
		attribute.Int("sources", spec.ItemCount()),
	)

	result := &Result{
		Name:      spec.Name,
		DestDir:   filepath.Join(run.OutputRoot, spec.DestSubfolder),
		Total:     spec.ItemCount(),
		StartedAt: time.Now(),
	}

	if err := os.MkdirAll(result.DestDir, defaultDirPerm); err != nil {
		dirErr := &DirectoryCreateError{Path: result.DestDir, Err: err}
		logger.Error("Failed to create output directory", "path", result.DestDir, "error", err)
		result.FinishedAt = time.Now()
		if run.Tracker != nil {
			// none of the unit's items will be attempted
			run.Tracker.Forfeit(uint64(result.Total))
		}
		finish(run.Tracker)
		telemetry.EndSpan(span, dirErr)
		return result, dirErr
	}

	logger.Info("Starting sync", "dest", result.DestDir, "sources", result.Total)

	fetchers := make(map[sources.Kind]sources.Fetcher, 2)
	for _, item := range spec.Items() {
		if cancelled(ctx, run.Cancel) {
			result.Cancelled = true
			logger.Warn("Sync cancelled",
				"attempted", result.Attempted,
				"remaining", result.Total-result.Attempted)
			break
		}

		if run.Tracker != nil {
			run.Tracker.SetLabel(item.URL)
		}

		sourceResult := s.fetchItem(ctx, spec, item, result.DestDir, fetchers, run)
		result.add(sourceResult)

		if run.Tracker != nil {
			run.Tracker.Complete(itemResult(sourceResult.Outcome.Kind))
		}
		run.Metrics.RecordSource(ctx, spec.Name, string(item.Kind), sourceResult.Outcome.Kind.String(),
			len(sourceResult.Outcome.Paths), sourceResult.Duration)
	}

	finish(run.Tracker)
	result.FinishedAt = time.Now()
	duration := result.FinishedAt.Sub(result.StartedAt)
	run.Metrics.RecordUnit(ctx, spec.Name, duration, result.Cancelled)

	span.SetAttributes(
		attribute.Int("written", result.Written),
		attribute.Int("skipped", result.Skipped),
		attribute.Int("failed", result.Failed),
		attribute.Bool("cancelled", result.Cancelled),
	)
	telemetry.EndSpan(span, nil)

	logger.Info("Sync finished",
		"attempted", result.Attempted,
		"written", result.Written,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"files", result.Files,
		"cancelled", result.Cancelled,
		"duration", duration.String())

	return result, nil
}

// fetchItem runs one source through the fetcher for its kind
func (s *defaultSyncManager) fetchItem(
	ctx context.Context,
	spec *sources.SourceSpec,
	item sources.Item,
	destDir string,
	fetchers map[sources.Kind]sources.Fetcher,
	run *Run,
) SourceResult {
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, run.TracerProvider, "fetch "+string(item.Kind),
		attribute.String("source", item.URL),
	)

	fetcher, ok := fetchers[item.Kind]
	if !ok {
		var err error
		fetcher, err = s.fetcherFactory.CreateFetcher(item.Kind, spec)
		if err != nil {
			slog.Error("Failed to create fetcher", "spec", spec.Name, "source", item.URL, "error", err)
			telemetry.EndSpan(span, err)
			return SourceResult{
				Item:     item,
				Outcome:  sources.Outcome{Kind: sources.OutcomeFailed, Err: err},
				Duration: time.Since(start),
			}
		}
		fetchers[item.Kind] = fetcher
	}

	outcome := fetcher.Fetch(ctx, item.URL, destDir)
	if outcome.Kind == sources.OutcomeFailed {
		slog.Error("Source failed", "spec", spec.Name, "source", item.URL, "error", outcome.Err)
		telemetry.EndSpan(span, outcome.Err)
	} else {
		span.SetAttributes(attribute.String("outcome", outcome.Kind.String()))
		telemetry.EndSpan(span, nil)
	}

	return SourceResult{
		Item:     item,
		Outcome:  outcome,
		Duration: time.Since(start),
	}
}

func (r *Result) add(sr SourceResult) {
	r.Attempted++
	r.Files += len(sr.Outcome.Paths)
	switch sr.Outcome.Kind {
	case sources.OutcomeWritten:
		r.Written++
	case sources.OutcomeSkipped:
		r.Skipped++
	case sources.OutcomeFailed:
		r.Failed++
	}
	r.Sources = append(r.Sources, sr)
}
