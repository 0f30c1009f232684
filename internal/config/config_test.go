package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulegrab/rulegrab/internal/conflict"
	"github.com/rulegrab/rulegrab/internal/telemetry"
)

const minimalTool = `
tools:
  - name: Yara
    destSubfolder: yara
    extensions: [yar, yara]
    repos:
      - https://github.com/Yara-Rules/rules.git
`

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name             string
		yamlContent      string
		skipFileCreation bool
		wantConfig       *Config
		wantErr          string
	}{
		{
			name:        "minimal_config",
			yamlContent: minimalTool,
			wantConfig: &Config{
				Tools: []ToolConfig{{
					Name:          "Yara",
					DestSubfolder: "yara",
					Extensions:    []string{"yar", "yara"},
					Repos:         []string{"https://github.com/Yara-Rules/rules.git"},
				}},
			},
		},
		{
			name: "full_config",
			yamlContent: `outputRoot: /tmp/rules
cloneTimeout: "5m"
cloneDepth: 1
maxConcurrentTools: 2
statusDir: /tmp/status
http:
  timeout: "30s"
  retries: 3
  maxResponseSize: 1048576
conflict:
  mode: overwrite
telemetry:
  enabled: true
  serviceName: rulegrab-test
  metrics:
    enabled: true
tools:
  - name: Sigma
    destSubfolder: sigma
    extensions: [yml, yaml]
    repos:
      - https://github.com/SigmaHQ/sigma.git
      - ""
    pages:
      - https://raw.githubusercontent.com/delivr-to/detections/refs/heads/main/sigma-rules/file_event_win_pdf_html_smuggle.yml
    paths:
      include: ["rules/**"]
      exclude: ["**/deprecated/**"]`,
			wantConfig: &Config{
				OutputRoot:         "/tmp/rules",
				CloneTimeout:       "5m",
				CloneDepth:         1,
				MaxConcurrentTools: 2,
				StatusDir:          "/tmp/status",
				HTTP: &HTTPConfig{
					Timeout:         "30s",
					Retries:         3,
					MaxResponseSize: 1048576,
				},
				Conflict: &ConflictConfig{Mode: "overwrite"},
				Telemetry: &telemetry.Config{
					Enabled:     true,
					ServiceName: "rulegrab-test",
					Metrics:     &telemetry.MetricsConfig{Enabled: true},
				},
				Tools: []ToolConfig{{
					Name:          "Sigma",
					DestSubfolder: "sigma",
					Extensions:    []string{"yml", "yaml"},
					Repos:         []string{"https://github.com/SigmaHQ/sigma.git", ""},
					Pages: []string{
						"https://raw.githubusercontent.com/delivr-to/detections/refs/heads/main/sigma-rules/file_event_win_pdf_html_smuggle.yml",
					},
					Paths: &PathsConfig{
						Include: []string{"rules/**"},
						Exclude: []string{"**/deprecated/**"},
					},
				}},
			},
		},
		{
			name:        "invalid_yaml",
			yamlContent: `tools: [invalid yaml`,
			wantErr:     "failed to parse YAML config",
		},
		{
			name:        "invalid_config",
			yamlContent: `outputRoot: /tmp`,
			wantErr:     "at least one tool or IOC feed must be configured",
		},
		{
			name:             "file_not_found",
			skipFileCreation: true,
			wantErr:          "failed to evaluate symlinks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			if tt.skipFileCreation {
				configPath = filepath.Join(tmpDir, "non-existent.yaml")
			} else {
				err := os.WriteFile(configPath, []byte(tt.yamlContent), 0600)
				require.NoError(t, err)
			}

			config, err := LoadConfig(WithConfigPath(configPath))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, config)
		})
	}
}

func TestLoadConfig_NoPath(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validTool := func() ToolConfig {
		return ToolConfig{
			Name:          "Yara",
			DestSubfolder: "yara",
			Repos:         []string{"https://github.com/Yara-Rules/rules.git"},
		}
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: "config cannot be nil",
		},
		{
			name:    "no tools",
			config:  &Config{},
			wantErr: "at least one tool or IOC feed must be configured",
		},
		{
			name:   "valid",
			config: &Config{Tools: []ToolConfig{validTool()}},
		},
		{
			name: "tool without sources is valid",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Zeek",
				DestSubfolder: "zeek",
			}}},
		},
		{
			name: "blank urls are ignored",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Zeek",
				DestSubfolder: "zeek",
				Repos:         []string{"", "  "},
				Pages:         []string{""},
			}}},
		},
		{
			name: "accepted repo forms",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Yara",
				DestSubfolder: "yara",
				Repos: []string{
					"https://github.com/Yara-Rules/rules.git",
					"http://example.com/rules.git",
					"ssh://git@github.com/org/rules.git",
					"git://example.com/rules.git",
					"git@github.com:org/rules.git",
					"file:///srv/git/rules",
					"/srv/git/rules",
				},
			}}},
		},
		{
			name:    "missing name",
			config:  &Config{Tools: []ToolConfig{{DestSubfolder: "yara"}}},
			wantErr: "tools[0]: name is required",
		},
		{
			name: "duplicate name is case-insensitive",
			config: &Config{Tools: []ToolConfig{
				validTool(),
				{Name: "YARA", DestSubfolder: "other"},
			}},
			wantErr: "tools[1]: duplicate tool name 'YARA'",
		},
		{
			name: "names colliding once sanitized",
			config: &Config{Tools: []ToolConfig{
				{Name: "Sigma-1", DestSubfolder: "sigma1"},
				{Name: "sigma_1", DestSubfolder: "sigma2"},
			}},
			wantErr: "tools[1]: tool name 'sigma_1' clashes with 'Sigma-1'",
		},
		{
			name: "iocs only",
			config: &Config{IOCs: &IOCConfig{Feeds: []FeedConfig{
				{Type: "IP", URLs: []string{"https://feeds.example.com/ips"}},
			}}},
		},
		{
			name:    "iocs bad format",
			config:  &Config{IOCs: &IOCConfig{Format: "json", Feeds: []FeedConfig{{Type: "IP"}}}},
			wantErr: "iocs: format must be txt or csv, got 'json'",
		},
		{
			name: "iocs subfolder used by a tool",
			config: &Config{
				Tools: []ToolConfig{{Name: "Misp", DestSubfolder: "iocs"}},
				IOCs:  &IOCConfig{Feeds: []FeedConfig{{Type: "IP"}}},
			},
			wantErr: "iocs: destSubfolder 'iocs' is already used by Misp",
		},
		{
			name:    "iocs duplicate type",
			config:  &Config{IOCs: &IOCConfig{Feeds: []FeedConfig{{Type: "IP"}, {Type: "ip"}}}},
			wantErr: "iocs: feeds[1]: type 'ip' clashes with 'IOC IP'",
		},
		{
			name:    "iocs type without name",
			config:  &Config{IOCs: &IOCConfig{Feeds: []FeedConfig{{Type: " "}}}},
			wantErr: "iocs: feeds[0]: type is required",
		},
		{
			name: "iocs feed url",
			config: &Config{IOCs: &IOCConfig{Feeds: []FeedConfig{
				{Type: "URL", URLs: []string{"ftp://feeds.example.com/urls"}},
			}}},
			wantErr: "iocs: feeds[0] (URL): url ftp://feeds.example.com/urls: scheme must be http or https",
		},
		{
			name:    "missing destSubfolder",
			config:  &Config{Tools: []ToolConfig{{Name: "Yara"}}},
			wantErr: "tools[0] (Yara): destSubfolder is required",
		},
		{
			name:    "destSubfolder escapes output root",
			config:  &Config{Tools: []ToolConfig{{Name: "Yara", DestSubfolder: "../yara"}}},
			wantErr: "destSubfolder must be a relative path inside outputRoot",
		},
		{
			name:    "absolute destSubfolder",
			config:  &Config{Tools: []ToolConfig{{Name: "Yara", DestSubfolder: "/etc"}}},
			wantErr: "destSubfolder must be a relative path inside outputRoot",
		},
		{
			name: "shared destSubfolder",
			config: &Config{Tools: []ToolConfig{
				validTool(),
				{Name: "Sigma", DestSubfolder: "./yara"},
			}},
			wantErr: "destSubfolder './yara' is already used by Yara",
		},
		{
			name: "unsupported repo scheme",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Yara",
				DestSubfolder: "yara",
				Repos:         []string{"ftp://example.com/rules.git"},
			}}},
			wantErr: "unsupported scheme",
		},
		{
			name: "repo without host",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Yara",
				DestSubfolder: "yara",
				Repos:         []string{"https:///rules.git"},
			}}},
			wantErr: "missing host",
		},
		{
			name: "page without file name",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Suricata",
				DestSubfolder: "suricata",
				Pages:         []string{"https://rules.example.com/"},
			}}},
			wantErr: "tools[0] (Suricata): page https://rules.example.com/",
		},
		{
			name: "page with ssh scheme",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Suricata",
				DestSubfolder: "suricata",
				Pages:         []string{"ssh://example.com/a.rules"},
			}}},
			wantErr: "scheme must be http or https",
		},
		{
			name: "invalid path pattern",
			config: &Config{Tools: []ToolConfig{{
				Name:          "Yara",
				DestSubfolder: "yara",
				Paths:         &PathsConfig{Include: []string{"[invalid"}},
			}}},
			wantErr: "tools[0] (Yara): paths: invalid include pattern",
		},
		{
			name: "invalid clone timeout",
			config: &Config{
				CloneTimeout: "soon",
				Tools:        []ToolConfig{validTool()},
			},
			wantErr: "cloneTimeout must be a valid duration",
		},
		{
			name: "negative clone timeout",
			config: &Config{
				CloneTimeout: "-1m",
				Tools:        []ToolConfig{validTool()},
			},
			wantErr: "duration cannot be negative",
		},
		{
			name: "negative clone depth",
			config: &Config{
				CloneDepth: -1,
				Tools:      []ToolConfig{validTool()},
			},
			wantErr: "cloneDepth cannot be negative",
		},
		{
			name: "negative concurrency",
			config: &Config{
				MaxConcurrentTools: -2,
				Tools:              []ToolConfig{validTool()},
			},
			wantErr: "maxConcurrentTools cannot be negative",
		},
		{
			name: "invalid http timeout",
			config: &Config{
				HTTP:  &HTTPConfig{Timeout: "1 minute"},
				Tools: []ToolConfig{validTool()},
			},
			wantErr: "http.timeout must be a valid duration",
		},
		{
			name: "negative max response size",
			config: &Config{
				HTTP:  &HTTPConfig{MaxResponseSize: -1},
				Tools: []ToolConfig{validTool()},
			},
			wantErr: "http.maxResponseSize cannot be negative",
		},
		{
			name: "unknown conflict mode",
			config: &Config{
				Conflict: &ConflictConfig{Mode: "merge"},
				Tools:    []ToolConfig{validTool()},
			},
			wantErr: "conflict.mode: unknown conflict mode",
		},
		{
			name: "conflict mode is case-insensitive",
			config: &Config{
				Conflict: &ConflictConfig{Mode: "Skip"},
				Tools:    []ToolConfig{validTool()},
			},
		},
		{
			name: "invalid telemetry sampling",
			config: &Config{
				Telemetry: &telemetry.Config{
					Enabled: true,
					Tracing: &telemetry.TracingConfig{Enabled: true, Sampling: ptrFloat64(2)},
				},
				Tools: []ToolConfig{validTool()},
			},
			wantErr: "telemetry: tracing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGetters(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{}
		assert.Equal(t, DefaultOutputRoot, cfg.GetOutputRoot())
		assert.Equal(t, time.Duration(0), cfg.GetCloneTimeout())
		assert.Equal(t, DefaultHTTPTimeout, cfg.GetHTTPTimeout())
		assert.Equal(t, conflict.ModeAsk, cfg.GetConflictMode())
	})

	t.Run("configured", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{
			OutputRoot:   "/data/rules",
			CloneTimeout: "90s",
			HTTP:         &HTTPConfig{Timeout: "10s"},
			Conflict:     &ConflictConfig{Mode: "OVERWRITE"},
		}
		assert.Equal(t, "/data/rules", cfg.GetOutputRoot())
		assert.Equal(t, 90*time.Second, cfg.GetCloneTimeout())
		assert.Equal(t, 10*time.Second, cfg.GetHTTPTimeout())
		assert.Equal(t, conflict.ModeOverwrite, cfg.GetConflictMode())
	})

	t.Run("empty http timeout uses default", func(t *testing.T) {
		t.Parallel()
		cfg := &Config{HTTP: &HTTPConfig{Retries: 2}}
		assert.Equal(t, DefaultHTTPTimeout, cfg.GetHTTPTimeout())
	})
}

func TestWithConfigPath(t *testing.T) {
	tmpDir := t.TempDir()

	err := os.MkdirAll(filepath.Join(tmpDir, "configs"), 0755)
	require.NoError(t, err, "failed to create subdir")

	err = os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(minimalTool), 0600)
	require.NoError(t, err, "failed to write config file")

	err = os.WriteFile(filepath.Join(tmpDir, "configs", "app.yaml"), []byte(minimalTool), 0600)
	require.NoError(t, err, "failed to write config file")

	err = os.Symlink(filepath.Join("configs", "app.yaml"), filepath.Join(tmpDir, "link.yaml"))
	require.NoError(t, err, "failed to create symlink")

	t.Chdir(tmpDir)

	tests := []struct {
		name     string
		path     string
		wantPath string
		wantErr  bool
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: true,
		},
		{
			name:    "path traversal at start",
			path:    "../etc/passwd",
			wantErr: true,
		},
		{
			name:    "path traversal in middle",
			path:    "config/../../etc/passwd",
			wantErr: true,
		},
		{
			name:    "non-existent file",
			path:    "missing.yaml",
			wantErr: true,
		},
		{
			name:     "valid relative path",
			path:     "config.yaml",
			wantPath: "config.yaml",
		},
		{
			name:     "valid relative path with subdir",
			path:     "configs/app.yaml",
			wantPath: "configs/app.yaml",
		},
		{
			name:     "symlink is resolved",
			path:     "link.yaml",
			wantPath: "configs/app.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := WithConfigPath(tt.path)
			cfg := &loaderConfig{}
			err := opt(cfg)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantPath, cfg.path)
			}
		})
	}
}

func ptrFloat64(f float64) *float64 {
	return &f
}
