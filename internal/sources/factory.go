package sources

import (
	"fmt"
	"time"

	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/filtering"
	"github.com/rulegrab/rulegrab/internal/git"
	"github.com/rulegrab/rulegrab/internal/httpclient"
	"github.com/rulegrab/rulegrab/internal/sync/writer"
)

// Env holds the run-scoped collaborators shared by every fetcher of a run
type Env struct {
	GitClient  git.Client
	HTTPClient httpclient.Client
	Arbiter    *conflict.Arbiter
	Writer     writer.FileWriter
	Filter     filtering.ExtensionFilter

	CloneTimeout time.Duration
	CloneDepth   int
	ScratchRoot  string

	// Now dates feed files; defaults to time.Now
	Now func() time.Time
}

// defaultFetcherFactory builds git and direct fetchers from a shared Env
type defaultFetcherFactory struct {
	env Env
}

// NewFetcherFactory creates a factory handing env to every fetcher it builds
func NewFetcherFactory(env Env) FetcherFactory {
	if env.GitClient == nil {
		env.GitClient = git.NewDefaultGitClient()
	}
	if env.HTTPClient == nil {
		env.HTTPClient = httpclient.NewDefaultClient(0)
	}
	if env.Writer == nil {
		env.Writer = writer.NewAtomicFileWriter()
	}
	if env.Filter == nil {
		env.Filter = filtering.NewDefaultExtensionFilter()
	}
	return &defaultFetcherFactory{env: env}
}

// CreateFetcher returns the fetcher for kind, configured for spec
func (f *defaultFetcherFactory) CreateFetcher(kind Kind, spec *SourceSpec) (Fetcher, error) {
	if spec == nil {
		return nil, fmt.Errorf("source spec cannot be nil")
	}

	switch kind {
	case KindRepo:
		return NewGitFetcher(GitFetcherConfig{
			Client:            f.env.GitClient,
			Arbiter:           f.env.Arbiter,
			Writer:            f.env.Writer,
			Filter:            f.env.Filter,
			AllowedExtensions: spec.AllowedExtensions,
			PathFilter:        spec.PathFilter,
			CloneTimeout:      f.env.CloneTimeout,
			CloneDepth:        f.env.CloneDepth,
			ScratchRoot:       f.env.ScratchRoot,
		}), nil
	case KindPage:
		return NewDirectFetcher(DirectFetcherConfig{
			Client:            f.env.HTTPClient,
			Arbiter:           f.env.Arbiter,
			Writer:            f.env.Writer,
			Filter:            f.env.Filter,
			AllowedExtensions: spec.AllowedExtensions,
		}), nil
	case KindFeed:
		return NewFeedFetcher(FeedFetcherConfig{
			Client: f.env.HTTPClient,
			Writer: f.env.Writer,
			Type:   spec.FeedType,
			Format: spec.FeedFormat,
			Now:    f.env.Now,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", kind)
	}
}
