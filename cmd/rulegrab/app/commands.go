// Package app provides the cobra commands of the rulegrab CLI.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rulegrab/rulegrab/internal/config"
	"github.com/rulegrab/rulegrab/internal/versions"
)

const (
	flagConfig    = "config"
	flagLogFormat = "log-format"
)

// NewRootCmd creates the root command with every subcommand attached. Each
// call builds a fresh command tree bound to its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "rulegrab",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Aggregate detection rules from git repositories and URLs",
		Long: `rulegrab fetches detection content (YARA, Sigma, Suricata, Sysmon and other
rule sets) from a catalog of git repositories and direct file URLs into a local
corpus, one folder per tool.

The catalog is a YAML file passed with --config. See the examples/ directory
for sample catalogs.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			SetupLogging(cmd.ErrOrStderr(), v.GetString(flagLogFormat))
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().StringP(flagConfig, "c", "", "Path to the catalog configuration file (YAML)")
	rootCmd.PersistentFlags().String(flagLogFormat, LogFormatJSON, "Log format (json or text)")
	bindFlags(v, rootCmd.PersistentFlags().Lookup(flagConfig), rootCmd.PersistentFlags().Lookup(flagLogFormat))

	rootCmd.AddCommand(newRunCmd(v))
	rootCmd.AddCommand(newListCmd(v))
	rootCmd.AddCommand(newValidateCmd(v))
	rootCmd.AddCommand(newStatusCmd(v))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig loads the catalog named by --config or RULEGRAB_CONFIG
func loadConfig(v *viper.Viper) (*config.Config, error) {
	path := v.GetString(flagConfig)
	if path == "" {
		return nil, fmt.Errorf("a configuration file is required (--config or %s_CONFIG)", EnvPrefix)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Debug("Loaded configuration", "path", path, "tools", len(cfg.Tools))
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("error retrieving format flag: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("error formatting version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(out, string(output))
				return err
			}

			_, err = fmt.Fprintf(out, "rulegrab %s\n  commit:   %s\n  built:    %s\n  go:       %s\n  platform: %s\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
