package sync

import (
	"context"
	"errors"

	"github.com/rulegrab/rulegrab/internal/progress"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/status"
)

// cancelled reports whether the unit must stop before its next item
func cancelled(ctx context.Context, flag *progress.CancelFlag) bool {
	if flag != nil && flag.IsSet() {
		return true
	}
	return ctx.Err() != nil
}

func finish(tracker *progress.Tracker) {
	if tracker != nil {
		tracker.Finish()
	}
}

// itemResult maps a fetch outcome onto the tracker's counters
func itemResult(kind sources.OutcomeKind) progress.ItemResult {
	switch kind {
	case sources.OutcomeWritten:
		return progress.ItemSucceeded
	case sources.OutcomeSkipped:
		return progress.ItemSkipped
	default:
		return progress.ItemFailed
	}
}

// Phase summarizes how the unit ended
func (r *Result) Phase() status.Phase {
	switch {
	case r.Cancelled:
		return status.PhaseCancelled
	case r.Failed > 0 && r.Failed == r.Attempted:
		return status.PhaseFailed
	case r.Failed > 0:
		return status.PhasePartial
	default:
		return status.PhaseComplete
	}
}

// ToRunStatus converts a unit result into its persisted form. err is the
// error PerformSync returned, if any.
func ToRunStatus(runID string, result *Result, err error) *status.RunStatus {
	st := &status.RunStatus{RunID: runID}
	if result != nil {
		started, finished := result.StartedAt, result.FinishedAt
		st.Phase = result.Phase()
		st.OutputDir = result.DestDir
		st.StartedAt = &started
		st.FinishedAt = &finished
		st.Attempted = result.Attempted
		st.Succeeded = result.Written
		st.Skipped = result.Skipped
		st.Failed = result.Failed
		st.FilesWritten = result.Files

		for _, sr := range result.Sources {
			source := status.SourceStatus{
				URL:     sr.Item.URL,
				Kind:    string(sr.Item.Kind),
				Outcome: sr.Outcome.Kind.String(),
				Files:   sr.Outcome.Paths,
			}
			if sr.Outcome.Err != nil && !isSkipReason(sr.Outcome.Err) {
				source.Error = sr.Outcome.Err.Error()
			}
			st.Sources = append(st.Sources, source)
		}
	}

	if err != nil {
		st.Phase = status.PhaseFailed
		st.Message = err.Error()
	}
	return st
}

// isSkipReason reports whether err only explains a skip
func isSkipReason(err error) bool {
	return errors.Is(err, sources.ErrFiltered) || errors.Is(err, sources.ErrOverwriteSkipped)
}
