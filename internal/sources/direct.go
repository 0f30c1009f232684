package sources

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/filtering"
	"github.com/rulegrab/rulegrab/internal/httpclient"
	"github.com/rulegrab/rulegrab/internal/sync/writer"
)

// DirectFetcherConfig wires a direct fetcher
type DirectFetcherConfig struct {
	Client  httpclient.Client
	Arbiter *conflict.Arbiter
	Writer  writer.FileWriter
	Filter  filtering.ExtensionFilter

	AllowedExtensions []string
}

// directFetcher downloads single files
type directFetcher struct {
	cfg    DirectFetcherConfig
	lander lander
}

// NewDirectFetcher creates a fetcher for direct URLs
func NewDirectFetcher(cfg DirectFetcherConfig) Fetcher {
	if cfg.Client == nil {
		cfg.Client = httpclient.NewDefaultClient(0)
	}
	if cfg.Filter == nil {
		cfg.Filter = filtering.NewDefaultExtensionFilter()
	}
	if cfg.Writer == nil {
		cfg.Writer = writer.NewAtomicFileWriter()
	}
	return &directFetcher{cfg: cfg, lander: lander{arbiter: cfg.Arbiter}}
}

// Fetch downloads source into destDir under the URL's final path segment.
// A name rejected by the extension filter is skipped without any request.
func (f *directFetcher) Fetch(ctx context.Context, source string, destDir string) Outcome {
	name, err := FileNameFromURL(source)
	if err != nil {
		slog.Error("Invalid direct source", "source", source, "error", err)
		return Outcome{Kind: OutcomeFailed, Err: err}
	}
	if !f.cfg.Filter.Admit(name, f.cfg.AllowedExtensions) {
		slog.Debug("Direct source filtered by extension", "source", source, "allowed", f.cfg.AllowedExtensions)
		return Outcome{Kind: OutcomeSkipped, Skipped: 1, Err: ErrFiltered}
	}

	startTime := time.Now()
	body, err := f.cfg.Client.Get(ctx, source)
	if err != nil {
		slog.Error("Download failed",
			"source", source,
			"duration", time.Since(startTime).String(),
			"error", err)
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	dest := filepath.Join(destDir, name)
	err = f.lander.land(ctx, dest, source, func() error {
		return f.cfg.Writer.Write(ctx, dest, body)
	})
	switch {
	case err == nil:
		slog.Info("Saved file",
			"source", source,
			"path", dest,
			"bytes", len(body),
			"duration", time.Since(startTime).String())
		return Outcome{Kind: OutcomeWritten, Paths: []string{dest}}
	case errors.Is(err, ErrOverwriteSkipped):
		return Outcome{Kind: OutcomeSkipped, Skipped: 1, Err: err}
	default:
		slog.Error("Failed to write file", "source", source, "path", dest, "error", err)
		return Outcome{Kind: OutcomeFailed, Failed: 1, Err: err}
	}
}
