// Package sources fetches detection content from the external sources of a
// tool into its destination directory.
//
// The package defines the Fetcher interface, which lands the files of one
// source (a git repository or a single direct URL) in a destination
// directory, and the SourceSpec describing one tool's sources.
//
// Architecture:
//   - SourceSpec: immutable description of a tool's repositories, direct
//     URLs, destination subfolder and allowed extensions
//   - Fetcher: fetches one source and reports an Outcome
//     (Written, Skipped or Failed); failures never escape as panics or
//     abort other sources
//   - FetcherFactory: builds the fetcher for a source kind, wiring the
//     run-scoped conflict Arbiter and file writer into every fetcher
//
// Current implementations:
//   - gitFetcher: clones a repository into a scratch directory, walks the
//     worktree and lands every admitted file as <repo>_<filename>, with an
//     optional per-clone timeout
//   - directFetcher: downloads a single URL and lands it under the final
//     path segment of the URL
//   - feedFetcher: downloads an indicator feed and appends it to the day's
//     file of its type, <type>-<YYYY-MM-DD>.<txt|csv>; the Arbiter is not
//     asked
//
// The git and direct fetchers consult the extension filter first, then the
// conflict Arbiter when the destination exists, and write through the atomic
// writer.
package sources
