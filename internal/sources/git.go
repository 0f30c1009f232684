package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/filtering"
	"github.com/rulegrab/rulegrab/internal/git"
	"github.com/rulegrab/rulegrab/internal/sync/writer"
)

// GitFetcherConfig wires a git fetcher
type GitFetcherConfig struct {
	Client  git.Client
	Arbiter *conflict.Arbiter
	Writer  writer.FileWriter
	Filter  filtering.ExtensionFilter

	AllowedExtensions []string
	PathFilter        *filtering.PathFilter

	// CloneTimeout bounds each clone; zero means no bound
	CloneTimeout time.Duration
	// CloneDepth limits history; zero means a full clone
	CloneDepth int
	// ScratchRoot is where scratch clones are created; empty means the OS temp dir
	ScratchRoot string
}

// gitFetcher lands the admitted files of a git repository
type gitFetcher struct {
	cfg    GitFetcherConfig
	lander lander
}

// NewGitFetcher creates a fetcher for git repositories
func NewGitFetcher(cfg GitFetcherConfig) Fetcher {
	if cfg.Client == nil {
		cfg.Client = git.NewDefaultGitClient()
	}
	if cfg.Filter == nil {
		cfg.Filter = filtering.NewDefaultExtensionFilter()
	}
	if cfg.Writer == nil {
		cfg.Writer = writer.NewAtomicFileWriter()
	}
	return &gitFetcher{cfg: cfg, lander: lander{arbiter: cfg.Arbiter}}
}

// Fetch clones source into a scratch directory and copies every admitted file
// into destDir as <repo>_<filename>. The scratch clone is always removed.
func (f *gitFetcher) Fetch(ctx context.Context, source string, destDir string) Outcome {
	startTime := time.Now()
	slog.Info("Starting git clone", "repository", source, "timeout", f.cfg.CloneTimeout.String())

	repoInfo, err := f.clone(ctx, source)
	cloneDuration := time.Since(startTime)
	if err != nil {
		slog.Error("Git clone failed",
			"error", err,
			"repository", source,
			"duration", cloneDuration.String())
		return Outcome{Kind: OutcomeFailed, Err: err}
	}
	slog.Info("Git clone completed",
		"repository", source,
		"duration", cloneDuration.String(),
		"branch", repoInfo.Branch,
		"commit_sha", repoInfo.Head)

	defer func() {
		if cleanupErr := f.cfg.Client.Cleanup(context.Background(), repoInfo); cleanupErr != nil {
			slog.Warn("Failed to cleanup git repository", "repository", source, "error", cleanupErr)
		}
	}()

	prefix := Sanitize(RepoDirName(source))
	outcome := Outcome{}
	kept := 0

	walkErr := f.cfg.Client.Walk(repoInfo, func(file git.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !f.cfg.Filter.Admit(file.Name(), f.cfg.AllowedExtensions) {
			outcome.Skipped++
			return nil
		}
		if ok, reason := f.cfg.PathFilter.ShouldInclude(file.Path); !ok {
			slog.Debug("Path filtered", "repository", source, "path", file.Path, "reason", reason)
			outcome.Skipped++
			return nil
		}

		dest := filepath.Join(destDir, prefix+"_"+file.Name())
		err := f.lander.land(ctx, dest, source, func() error {
			rc, err := file.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", file.Path, err)
			}
			defer func() { _ = rc.Close() }()
			_, err = f.cfg.Writer.WriteFrom(ctx, dest, rc)
			return err
		})
		switch {
		case err == nil:
			outcome.Paths = append(outcome.Paths, dest)
		case errors.Is(err, ErrOverwriteSkipped):
			outcome.Skipped++
			kept++
		default:
			slog.Warn("Failed to write file", "repository", source, "path", file.Path, "error", err)
			outcome.Failed++
			if outcome.Err == nil {
				outcome.Err = err
			}
		}
		return nil
	})

	switch {
	case walkErr != nil:
		outcome.Kind = OutcomeFailed
		outcome.Err = fmt.Errorf("failed to walk clone of %s: %w", source, walkErr)
	case len(outcome.Paths) > 0:
		outcome.Kind = OutcomeWritten
	case outcome.Failed > 0:
		outcome.Kind = OutcomeFailed
	case kept > 0:
		outcome.Kind = OutcomeSkipped
		outcome.Err = ErrOverwriteSkipped
	default:
		outcome.Kind = OutcomeSkipped
		outcome.Err = ErrFiltered
	}

	slog.Info("Repository processed",
		"repository", source,
		"written", len(outcome.Paths),
		"skipped", outcome.Skipped,
		"failed", outcome.Failed)
	return outcome
}

type cloneResult struct {
	info *git.RepositoryInfo
	err  error
}

// clone runs the clone on its own goroutine so the caller is released as soon
// as the timeout fires. A clone abandoned that way is cancelled through its
// context and its scratch directory removed once it returns.
func (f *gitFetcher) clone(ctx context.Context, source string) (*git.RepositoryInfo, error) {
	cloneConfig := &git.CloneConfig{
		URL:         source,
		Depth:       f.cfg.CloneDepth,
		ScratchRoot: f.cfg.ScratchRoot,
	}

	if f.cfg.CloneTimeout <= 0 {
		info, err := f.cfg.Client.Clone(ctx, cloneConfig)
		if err != nil {
			return nil, &CloneError{URL: source, Err: err}
		}
		return info, nil
	}

	cloneCtx, cancel := context.WithTimeout(ctx, f.cfg.CloneTimeout)
	defer cancel()

	done := make(chan cloneResult, 1)
	go func() {
		info, err := f.cfg.Client.Clone(cloneCtx, cloneConfig)
		done <- cloneResult{info: info, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
				return nil, &CloneTimeoutError{URL: source, Timeout: f.cfg.CloneTimeout}
			}
			return nil, &CloneError{URL: source, Err: r.err}
		}
		return r.info, nil
	case <-cloneCtx.Done():
		go f.reclaim(source, done)
		if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
			return nil, &CloneTimeoutError{URL: source, Timeout: f.cfg.CloneTimeout}
		}
		return nil, &CloneError{URL: source, Err: cloneCtx.Err()}
	}
}

// reclaim waits for an abandoned clone and removes whatever it left behind
func (f *gitFetcher) reclaim(source string, done <-chan cloneResult) {
	r := <-done
	if r.err != nil || r.info == nil {
		return
	}
	slog.Debug("Removing clone that finished after its timeout", "repository", source)
	if err := f.cfg.Client.Cleanup(context.Background(), r.info); err != nil {
		slog.Warn("Failed to cleanup abandoned clone", "repository", source, "error", err)
	}
}
