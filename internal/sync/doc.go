// Package sync runs one source spec to completion. A spec is a named tool
// with git repositories and direct file URLs whose matching files land in a
// single destination directory under the run's output root.
//
// # Units
//
// Manager.PerformSync is one unit of work. It creates
// outputRoot/destSubfolder, then processes the spec's repositories followed by
// its direct URLs, in configuration order and one at a time. Each source is
// handed to the sources.Fetcher for its kind, created once per unit through a
// sources.FetcherFactory.
//
// Before each source the unit checks its progress.CancelFlag and its context.
// Once either is cancelled the remaining sources are neither started nor
// counted, and Result.Cancelled is set.
//
// # Progress
//
// Around each source the unit calls Tracker.SetLabel with the source URL and
// Tracker.Complete with the mapped outcome, so the shared tracker counts
// attempted sources. When the unit stops, for whatever reason, it emits a
// final update with an empty label through Tracker.Finish.
//
// # Errors
//
// Per-source failures (clone, HTTP, write) are logged with a source attribute
// and recorded in Result.Sources; they never stop the unit. The only error
// PerformSync returns for a valid spec is *DirectoryCreateError, which aborts
// that unit alone.
//
// The coordinator subpackage runs several units concurrently over one shared
// tracker.
package sync
