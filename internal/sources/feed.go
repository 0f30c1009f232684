package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rulegrab/rulegrab/internal/httpclient"
	"github.com/rulegrab/rulegrab/internal/sync/writer"
)

// FeedFetcherConfig wires a feed fetcher
type FeedFetcherConfig struct {
	Client httpclient.Client
	Writer writer.FileWriter

	// Type is the indicator type, used lowercased in the file name
	Type string

	// Format is FeedFormatTxt or FeedFormatCSV; empty means txt
	Format string

	// Now dates the file; defaults to time.Now
	Now func() time.Time
}

// feedFetcher appends indicator feeds to one file per type and day
type feedFetcher struct {
	cfg FeedFetcherConfig
}

// NewFeedFetcher creates a fetcher merging feeds of one indicator type
func NewFeedFetcher(cfg FeedFetcherConfig) Fetcher {
	if cfg.Client == nil {
		cfg.Client = httpclient.NewDefaultClient(0)
	}
	if cfg.Writer == nil {
		cfg.Writer = writer.NewAtomicFileWriter()
	}
	if cfg.Format == "" {
		cfg.Format = FeedFormatTxt
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &feedFetcher{cfg: cfg}
}

// FeedFileName is the day's file of an indicator type, e.g. ip-2024-05-01.txt
func FeedFileName(feedType, format string, day time.Time) string {
	return fmt.Sprintf("%s-%s.%s", strings.ToLower(Sanitize(feedType)), day.Format(time.DateOnly), format)
}

// Fetch downloads source and merges it into the day's file in destDir.
// Feeds of the same type land in the same file in the order they are fetched.
func (f *feedFetcher) Fetch(ctx context.Context, source string, destDir string) Outcome {
	startTime := time.Now()
	body, err := f.cfg.Client.Get(ctx, source)
	if err != nil {
		slog.Error("Feed download failed",
			"source", source,
			"type", f.cfg.Type,
			"duration", time.Since(startTime).String(),
			"error", err)
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	dest := filepath.Join(destDir, FeedFileName(f.cfg.Type, f.cfg.Format, f.cfg.Now()))
	existing, err := os.ReadFile(dest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("Failed to read feed file", "source", source, "path", dest, "error", err)
		return Outcome{Kind: OutcomeFailed, Failed: 1, Err: err}
	}

	merged := MergeFeed(f.cfg.Format, existing, body)
	if err := f.cfg.Writer.Write(ctx, dest, merged); err != nil {
		slog.Error("Failed to write feed file", "source", source, "path", dest, "error", err)
		return Outcome{Kind: OutcomeFailed, Failed: 1, Err: err}
	}

	slog.Info("Merged feed",
		"source", source,
		"type", f.cfg.Type,
		"path", dest,
		"bytes", len(body),
		"duration", time.Since(startTime).String())
	return Outcome{Kind: OutcomeWritten, Paths: []string{dest}}
}

// MergeFeed appends a downloaded feed to the existing content. txt keeps one
// indicator per line; csv turns line breaks into commas. Surrounding
// whitespace of both parts is dropped and an empty part adds no separator.
func MergeFeed(format string, existing, body []byte) []byte {
	prev := strings.TrimSpace(string(existing))
	next := strings.TrimSpace(strings.ReplaceAll(string(body), "\r\n", "\n"))

	sep := "\n"
	if format == FeedFormatCSV {
		sep = ","
		next = strings.ReplaceAll(next, "\n", ",")
	}

	switch {
	case prev == "":
		return []byte(next)
	case next == "":
		return []byte(prev)
	default:
		return []byte(prev + sep + next)
	}
}
