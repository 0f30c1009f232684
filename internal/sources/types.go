package sources

import (
	"context"
	"fmt"

	"github.com/rulegrab/rulegrab/internal/filtering"
)

// Kind is the type of a source
type Kind string

const (
	// KindRepo is a git repository cloned in full
	KindRepo Kind = "repo"
	// KindPage is a single file downloaded with one GET
	KindPage Kind = "page"
	// KindFeed is an indicator feed merged into the day's file of its type
	KindFeed Kind = "feed"
)

// Feed output formats
const (
	// FeedFormatTxt keeps one indicator per line
	FeedFormatTxt = "txt"
	// FeedFormatCSV joins every indicator on a single comma-separated line
	FeedFormatCSV = "csv"
)

// SourceSpec describes one tool's sources and destination. It is built once
// per run from configuration and never modified afterwards.
type SourceSpec struct {
	// Name identifies the tool, e.g. "Sigma"
	Name string

	// DestSubfolder is the directory under the output root receiving the files
	DestSubfolder string

	// RepoURLs are git repositories, processed first and in order
	RepoURLs []string

	// PageURLs are direct file URLs, processed after the repositories, in order
	PageURLs []string

	// FeedURLs are indicator feeds, processed last and in order
	FeedURLs []string

	// FeedType names the indicator type of FeedURLs, e.g. "IP"
	FeedType string

	// FeedFormat is FeedFormatTxt or FeedFormatCSV
	FeedFormat string

	// AllowedExtensions limits which files are kept. Empty keeps everything.
	AllowedExtensions []string

	// PathFilter optionally limits which repository paths are kept
	PathFilter *filtering.PathFilter
}

// Item is one source of a spec
type Item struct {
	Kind Kind
	URL  string
}

// Items returns the spec's sources in processing order: repositories, pages, then feeds
func (s *SourceSpec) Items() []Item {
	items := make([]Item, 0, s.ItemCount())
	for _, u := range s.RepoURLs {
		items = append(items, Item{Kind: KindRepo, URL: u})
	}
	for _, u := range s.PageURLs {
		items = append(items, Item{Kind: KindPage, URL: u})
	}
	for _, u := range s.FeedURLs {
		items = append(items, Item{Kind: KindFeed, URL: u})
	}
	return items
}

// ItemCount is the number of sources, which is the unit's progress total
func (s *SourceSpec) ItemCount() int {
	return len(s.RepoURLs) + len(s.PageURLs) + len(s.FeedURLs)
}

// OutcomeKind classifies the result of fetching one source
type OutcomeKind int

const (
	// OutcomeWritten means at least one file was written
	OutcomeWritten OutcomeKind = iota
	// OutcomeSkipped means nothing was written and nothing failed
	OutcomeSkipped
	// OutcomeFailed means the source could not be fetched, or every admitted file failed to write
	OutcomeFailed
)

// String returns the outcome name
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeWritten:
		return "written"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome is the result of fetching one source
type Outcome struct {
	Kind OutcomeKind

	// Paths are the destination files written
	Paths []string

	// Skipped counts files not written because of the filters or a kept conflict
	Skipped int

	// Failed counts files that could not be written
	Failed int

	// Err is the source-level error for OutcomeFailed, the reason for
	// OutcomeSkipped, or the first file-level error otherwise
	Err error
}

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=types.go Fetcher,FetcherFactory

// Fetcher lands the files of one source in a destination directory
type Fetcher interface {
	// Fetch processes source and writes into destDir. All failures are
	// reported in the Outcome.
	Fetch(ctx context.Context, source string, destDir string) Outcome
}

// FetcherFactory creates the fetcher for a source kind
type FetcherFactory interface {
	// CreateFetcher returns the fetcher handling sources of kind for spec
	CreateFetcher(kind Kind, spec *SourceSpec) (Fetcher, error)
}
