package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rulegrab/rulegrab/internal/config"
	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/git"
	"github.com/rulegrab/rulegrab/internal/httpclient"
	"github.com/rulegrab/rulegrab/internal/progress"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/status"
	pkgsync "github.com/rulegrab/rulegrab/internal/sync"
	"github.com/rulegrab/rulegrab/internal/sync/coordinator"
	"github.com/rulegrab/rulegrab/internal/telemetry"
	"github.com/rulegrab/rulegrab/internal/versions"
)

// FetchAppOptions is a function that configures the fetch app builder
type FetchAppOptions func(*fetchAppConfig) error

// fetchAppConfig holds the builder state. Component overrides are mainly
// for tests; production code only sets the configuration and the terminal.
type fetchAppConfig struct {
	config    *config.Config
	toolNames []string
	runID     string

	// Terminal used for conflict prompts and the progress bar
	in          io.Reader
	out         io.Writer
	interactive *bool
	progressBar bool
	observers   []progress.Observer

	// Optional component overrides
	resolver    conflict.Resolver
	gitClient   git.Client
	httpClient  httpclient.Client
	syncManager pkgsync.Manager
	telemetry   *telemetry.Telemetry
}

func baseConfig(opts ...FetchAppOptions) (*fetchAppConfig, error) {
	cfg := &fetchAppConfig{
		in:  os.Stdin,
		out: os.Stderr,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return cfg, nil
}

// NewFetchApp builds every component of a fetch run from the configuration
func NewFetchApp(ctx context.Context, opts ...FetchAppOptions) (*FetchApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	specs, err := cfg.config.ToSourceSpecs(cfg.toolNames...)
	if err != nil {
		return nil, err
	}

	tel, err := buildTelemetry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry: %w", err)
	}

	// Telemetry is shut down by the app, unless building fails
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			_ = tel.Shutdown(ctx)
		}
	}()

	components, err := buildFetchComponents(cfg, tel)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch components: %w", err)
	}

	cleanupNeeded = false
	return &FetchApp{
		config:     cfg.config,
		specs:      specs,
		components: components,
		telemetry:  tel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithTools restricts the run to the named tools. No names runs every tool.
func WithTools(names ...string) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.toolNames = names
		return nil
	}
}

// WithRunID overrides the generated run id
func WithRunID(id string) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.runID = id
		return nil
	}
}

// WithTerminal sets where prompts are read from and written to
func WithTerminal(in io.Reader, out io.Writer) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		if in == nil || out == nil {
			return fmt.Errorf("terminal input and output are required")
		}
		cfg.in = in
		cfg.out = out
		return nil
	}
}

// WithInteractive overrides terminal detection for conflict prompts
func WithInteractive(interactive bool) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.interactive = &interactive
		return nil
	}
}

// WithProgressBar renders a progress bar on the terminal output
func WithProgressBar(enabled bool) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.progressBar = enabled
		return nil
	}
}

// WithObservers adds progress observers next to the default log observer
func WithObservers(observers ...progress.Observer) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.observers = append(cfg.observers, observers...)
		return nil
	}
}

// WithResolver replaces the resolver chosen by the configured conflict mode
func WithResolver(r conflict.Resolver) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.resolver = r
		return nil
	}
}

// WithGitClient allows injecting a custom git client (for testing)
func WithGitClient(c git.Client) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.gitClient = c
		return nil
	}
}

// WithHTTPClient allows injecting a custom HTTP client (for testing)
func WithHTTPClient(c httpclient.Client) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithTelemetry allows injecting already initialized telemetry
func WithTelemetry(t *telemetry.Telemetry) FetchAppOptions {
	return func(cfg *fetchAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildTelemetry initializes telemetry from configuration, defaulting the
// service version to the binary version
func buildTelemetry(ctx context.Context, b *fetchAppConfig) (*telemetry.Telemetry, error) {
	if b.telemetry != nil {
		return b.telemetry, nil
	}

	var telCfg *telemetry.Config
	if b.config.Telemetry != nil {
		c := *b.config.Telemetry
		if c.ServiceVersion == "" {
			c.ServiceVersion = versions.GetVersionInfo().Version
		}
		telCfg = &c
	}
	return telemetry.New(ctx, telemetry.WithTelemetryConfig(telCfg))
}

// buildFetchComponents builds the arbiter, fetchers, sync manager, tracker
// and coordinator of one run
func buildFetchComponents(b *fetchAppConfig, tel *telemetry.Telemetry) (*AppComponents, error) {
	slog.Info("Initializing fetch components")

	// prompts is set when conflicts will be asked on the terminal output
	prompts := false
	resolver := b.resolver
	if resolver == nil {
		var err error
		resolver, err = conflict.NewResolverForMode(b.config.GetConflictMode(), func() conflict.Resolver {
			var termOpts []conflict.TerminalOption
			if b.interactive != nil {
				termOpts = append(termOpts, conflict.WithInteractive(*b.interactive))
			}
			terminal := conflict.NewTerminalResolver(b.in, b.out, termOpts...)
			prompts = terminal.Interactive()
			return terminal
		})
		if err != nil {
			return nil, err
		}
	}
	arbiter := conflict.NewArbiter(resolver)

	fetchMetrics, err := telemetry.NewFetchMetrics(tel.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	syncManager := b.syncManager
	if syncManager == nil {
		httpClient := b.httpClient
		if httpClient == nil {
			httpClient = buildHTTPClient(b.config, tel)
		}
		factory := sources.NewFetcherFactory(sources.Env{
			GitClient:    b.gitClient,
			HTTPClient:   httpClient,
			Arbiter:      arbiter,
			CloneTimeout: b.config.GetCloneTimeout(),
			CloneDepth:   b.config.CloneDepth,
		})
		syncManager = pkgsync.NewDefaultSyncManager(factory)
	}

	// the bar redraws its line from another goroutine and would erase a
	// pending prompt, so it is only drawn when nothing is asked
	progressBar := b.progressBar && !prompts
	if b.progressBar && prompts {
		slog.Info("Progress bar disabled, conflicts are prompted on the terminal")
	}
	observers := []progress.Observer{progress.NewLogObserver(nil)}
	if progressBar {
		observers = append(observers, progress.NewTerminalObserver(b.out))
	}
	observers = append(observers, b.observers...)
	tracker := progress.NewTracker(observers...)

	coordOpts := []coordinator.Option{
		coordinator.WithTracker(tracker),
		coordinator.WithFetchMetrics(fetchMetrics),
		coordinator.WithTracerProvider(tel.TracerProvider()),
		coordinator.WithMaxConcurrentUnits(b.config.MaxConcurrentTools),
		coordinator.WithRunID(b.runID),
	}
	if dir := b.config.StatusDir; dir != "" {
		coordOpts = append(coordOpts, coordinator.WithStatusPersistence(status.NewFileStatusPersistence(dir)))
		slog.Info("Run reports enabled", "status_dir", dir)
	}

	coord := coordinator.New(syncManager, b.config.GetOutputRoot(), coordOpts...)
	slog.Info("Fetch components initialized successfully", "run_id", coord.RunID())

	return &AppComponents{
		Coordinator: coord,
		SyncManager: syncManager,
		Tracker:     tracker,
		Arbiter:     arbiter,
		ProgressBar: progressBar,
	}, nil
}

// buildHTTPClient builds the direct-download client with retries and a
// tracing transport
func buildHTTPClient(cfg *config.Config, tel *telemetry.Telemetry) httpclient.Client {
	opts := []httpclient.Option{
		httpclient.WithTransport(telemetry.NewTracingTransport(tel.TracerProvider(), nil)),
		httpclient.WithUserAgent("rulegrab/" + versions.GetVersionInfo().Version),
	}
	if cfg.HTTP != nil {
		opts = append(opts,
			httpclient.WithRetries(cfg.HTTP.Retries),
			httpclient.WithMaxResponseSize(cfg.HTTP.MaxResponseSize),
		)
	}
	return httpclient.NewDefaultClient(cfg.GetHTTPTimeout(), opts...)
}
