// Package config provides configuration loading and validation for fetch runs.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/filtering"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/telemetry"
)

const (
	// DefaultOutputRoot is used when outputRoot is not configured
	DefaultOutputRoot = "./rule_output"

	// DefaultHTTPTimeout bounds a single direct download
	DefaultHTTPTimeout = 2 * time.Minute

	// DefaultIOCSubfolder receives the indicator feed files
	DefaultIOCSubfolder = "iocs"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this also cleans the path
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// OutputRoot receives one subfolder per tool. Defaults to ./rule_output.
	OutputRoot string `yaml:"outputRoot,omitempty"`

	// CloneTimeout bounds each git clone (e.g. "5m"). Empty means no timeout.
	CloneTimeout string `yaml:"cloneTimeout,omitempty"`

	// CloneDepth limits clone history. Zero clones the full history.
	CloneDepth int `yaml:"cloneDepth,omitempty"`

	// MaxConcurrentTools bounds how many tools are fetched at once. Zero
	// fetches every tool concurrently.
	MaxConcurrentTools int `yaml:"maxConcurrentTools,omitempty"`

	HTTP     *HTTPConfig     `yaml:"http,omitempty"`
	Conflict *ConflictConfig `yaml:"conflict,omitempty"`

	// StatusDir enables the per-tool run report when set
	StatusDir string `yaml:"statusDir,omitempty"`

	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`

	Tools []ToolConfig `yaml:"tools"`

	// IOCs merges indicator feeds into one file per type and day
	IOCs *IOCConfig `yaml:"iocs,omitempty"`
}

// HTTPConfig defines direct download settings
type HTTPConfig struct {
	// Timeout bounds one request, e.g. "2m"
	Timeout string `yaml:"timeout,omitempty"`

	// Retries is the number of retries after a transient failure
	Retries uint `yaml:"retries,omitempty"`

	// MaxResponseSize caps a downloaded body in bytes
	MaxResponseSize int64 `yaml:"maxResponseSize,omitempty"`
}

// ConflictConfig defines how existing destination files are handled
type ConflictConfig struct {
	// Mode is one of ask, overwrite or skip. Defaults to ask.
	Mode string `yaml:"mode,omitempty"`
}

// ToolConfig defines the sources of one detection tool
type ToolConfig struct {
	// Name identifies the tool, e.g. "Sigma"
	Name string `yaml:"name"`

	// DestSubfolder is the directory under outputRoot receiving the files
	DestSubfolder string `yaml:"destSubfolder"`

	// Extensions limits which files are kept, with or without a leading dot.
	// Empty keeps everything.
	Extensions []string `yaml:"extensions,omitempty"`

	// Repos are git repository URLs, fetched first
	Repos []string `yaml:"repos,omitempty"`

	// Pages are direct file URLs, fetched after the repositories
	Pages []string `yaml:"pages,omitempty"`

	// Paths optionally filters repository paths with glob patterns
	Paths *PathsConfig `yaml:"paths,omitempty"`
}

// IOCConfig defines the indicator feeds of a run
type IOCConfig struct {
	// DestSubfolder is the directory under outputRoot receiving the feed
	// files. Defaults to iocs.
	DestSubfolder string `yaml:"destSubfolder,omitempty"`

	// Format is txt (one indicator per line) or csv. Defaults to txt.
	Format string `yaml:"format,omitempty"`

	Feeds []FeedConfig `yaml:"feeds"`
}

// FeedConfig lists the feeds of one indicator type
type FeedConfig struct {
	// Type names the indicators, e.g. "IP" or "Domain"
	Type string `yaml:"type"`

	// URLs are fetched in order and appended to the same file
	URLs []string `yaml:"urls"`
}

// GetDestSubfolder returns the feed directory, using the default if not specified
func (c *IOCConfig) GetDestSubfolder() string {
	if c == nil || c.DestSubfolder == "" {
		return DefaultIOCSubfolder
	}
	return c.DestSubfolder
}

// GetFormat returns the feed file format, using txt if not specified
func (c *IOCConfig) GetFormat() string {
	if c == nil || c.Format == "" {
		return sources.FeedFormatTxt
	}
	return strings.ToLower(c.Format)
}

// FeedSpecName is the unit name of an indicator type, e.g. "IOC IP"
func FeedSpecName(feedType string) string {
	return "IOC " + feedType
}

// PathsConfig defines include/exclude globs for repository paths
type PathsConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates YAML configuration
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetOutputRoot returns the output root, using the default if not specified
func (c *Config) GetOutputRoot() string {
	if c.OutputRoot == "" {
		return DefaultOutputRoot
	}
	return c.OutputRoot
}

// GetCloneTimeout returns the parsed clone timeout; zero means none
func (c *Config) GetCloneTimeout() time.Duration {
	d, _ := parseOptionalDuration(c.CloneTimeout)
	return d
}

// GetHTTPTimeout returns the per-request timeout
func (c *Config) GetHTTPTimeout() time.Duration {
	if c.HTTP == nil {
		return DefaultHTTPTimeout
	}
	d, _ := parseOptionalDuration(c.HTTP.Timeout)
	if d == 0 {
		return DefaultHTTPTimeout
	}
	return d
}

// GetConflictMode returns the conflict mode, using ask if not specified
func (c *Config) GetConflictMode() string {
	if c.Conflict == nil || c.Conflict.Mode == "" {
		return conflict.ModeAsk
	}
	return strings.ToLower(c.Conflict.Mode)
}

// Validate re-checks the configuration, typically after flags overrode it
func (c *Config) Validate() error {
	return c.validate()
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if _, err := parseOptionalDuration(c.CloneTimeout); err != nil {
		return fmt.Errorf("cloneTimeout must be a valid duration (e.g., '5m'): %w", err)
	}
	if c.CloneDepth < 0 {
		return fmt.Errorf("cloneDepth cannot be negative")
	}
	if c.MaxConcurrentTools < 0 {
		return fmt.Errorf("maxConcurrentTools cannot be negative")
	}
	if c.HTTP != nil {
		if _, err := parseOptionalDuration(c.HTTP.Timeout); err != nil {
			return fmt.Errorf("http.timeout must be a valid duration (e.g., '2m'): %w", err)
		}
		if c.HTTP.MaxResponseSize < 0 {
			return fmt.Errorf("http.maxResponseSize cannot be negative")
		}
	}
	if _, err := conflict.NewResolverForMode(c.GetConflictMode(), func() conflict.Resolver { return nil }); err != nil {
		return fmt.Errorf("conflict.mode: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	if len(c.Tools) == 0 && (c.IOCs == nil || len(c.IOCs.Feeds) == 0) {
		return fmt.Errorf("at least one tool or IOC feed must be configured")
	}

	// run reports are stored per sanitized name
	names := make(map[string]string)
	subfolders := make(map[string]string)
	for i := range c.Tools {
		tool := &c.Tools[i]
		if tool.Name == "" {
			return fmt.Errorf("tools[%d]: name is required", i)
		}
		key := strings.ToLower(sources.Sanitize(tool.Name))
		if other, ok := names[key]; ok {
			if strings.EqualFold(other, tool.Name) {
				return fmt.Errorf("tools[%d]: duplicate tool name '%s'", i, tool.Name)
			}
			return fmt.Errorf("tools[%d]: tool name '%s' clashes with '%s' once punctuation and case are ignored", i, tool.Name, other)
		}
		names[key] = tool.Name

		if err := validateTool(tool, fmt.Sprintf("tools[%d] (%s)", i, tool.Name)); err != nil {
			return err
		}

		sub := filepath.Clean(tool.DestSubfolder)
		if other, ok := subfolders[sub]; ok {
			return fmt.Errorf("tools[%d] (%s): destSubfolder '%s' is already used by %s", i, tool.Name, tool.DestSubfolder, other)
		}
		subfolders[sub] = tool.Name
	}

	if c.IOCs != nil {
		if err := c.IOCs.validate(names, subfolders); err != nil {
			return fmt.Errorf("iocs: %w", err)
		}
	}
	return nil
}

// validate checks the feed section against the names and subfolders the
// tools already use
func (c *IOCConfig) validate(names, subfolders map[string]string) error {
	switch c.GetFormat() {
	case sources.FeedFormatTxt, sources.FeedFormatCSV:
	default:
		return fmt.Errorf("format must be txt or csv, got '%s'", c.Format)
	}

	dest := c.GetDestSubfolder()
	if !filepath.IsLocal(dest) {
		return fmt.Errorf("destSubfolder must be a relative path inside outputRoot, got '%s'", dest)
	}
	if other, ok := subfolders[filepath.Clean(dest)]; ok {
		return fmt.Errorf("destSubfolder '%s' is already used by %s", dest, other)
	}

	for i, feed := range c.Feeds {
		if strings.TrimSpace(feed.Type) == "" {
			return fmt.Errorf("feeds[%d]: type is required", i)
		}
		// types share a directory and are told apart by file name
		name := FeedSpecName(feed.Type)
		key := strings.ToLower(sources.Sanitize(name))
		if other, ok := names[key]; ok {
			return fmt.Errorf("feeds[%d]: type '%s' clashes with '%s'", i, feed.Type, other)
		}
		names[key] = name

		for _, raw := range feed.URLs {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			if err := validateFeedURL(raw); err != nil {
				return fmt.Errorf("feeds[%d] (%s): url %s: %w", i, feed.Type, raw, err)
			}
		}
	}
	return nil
}

// validateTool validates a single tool configuration
func validateTool(tool *ToolConfig, prefix string) error {
	if tool.DestSubfolder == "" {
		return fmt.Errorf("%s: destSubfolder is required", prefix)
	}
	if !filepath.IsLocal(tool.DestSubfolder) {
		return fmt.Errorf("%s: destSubfolder must be a relative path inside outputRoot, got '%s'", prefix, tool.DestSubfolder)
	}

	for _, repo := range tool.Repos {
		if strings.TrimSpace(repo) == "" {
			continue
		}
		if err := validateRepoURL(repo); err != nil {
			return fmt.Errorf("%s: repo %s: %w", prefix, repo, err)
		}
	}
	for _, page := range tool.Pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		if err := validatePageURL(page); err != nil {
			return fmt.Errorf("%s: page %s: %w", prefix, page, err)
		}
	}

	if tool.Paths != nil {
		if _, err := filtering.NewPathFilter(tool.Paths.Include, tool.Paths.Exclude); err != nil {
			return fmt.Errorf("%s: paths: %w", prefix, err)
		}
	}
	return nil
}

// validateRepoURL accepts http(s), ssh, git and file URLs, scp-style
// addresses (git@host:path) and local paths
func validateRepoURL(raw string) error {
	if filepath.IsAbs(raw) || isSCPLike(raw) {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "http", "https", "ssh", "git":
		if u.Host == "" {
			return fmt.Errorf("missing host")
		}
		return nil
	case "file":
		return nil
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// validatePageURL accepts http(s) URLs naming a file
func validatePageURL(raw string) error {
	_, err := sources.FileNameFromURL(raw)
	return err
}

// validateFeedURL accepts http(s) URLs; feeds need no file name
func validateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func isSCPLike(raw string) bool {
	at := strings.Index(raw, "@")
	colon := strings.Index(raw, ":")
	return at > 0 && colon > at && !strings.Contains(raw[:colon], "/")
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %s", s)
	}
	return d, nil
}
