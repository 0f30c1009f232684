package app

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rulegrab/rulegrab/internal/status"
	"github.com/rulegrab/rulegrab/internal/versions"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tools of the catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return renderCatalog(cmd.OutOrStdout(), cfg)
		},
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			specs, err := cfg.ToSourceSpecs()
			if err != nil {
				return err
			}

			total := 0
			for _, spec := range specs {
				total += spec.ItemCount()
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d tools, %d sources\n", len(specs), total)
			return err
		},
	}
}

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the report of the last run of each tool",
		Long: `Show the report written by the last run of each tool. Reports are only
written when statusDir is set in the configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if cfg.StatusDir == "" {
				return fmt.Errorf("statusDir is not configured, no run reports are written")
			}

			statuses, err := status.NewFileStatusPersistence(cfg.StatusDir).LoadAllStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load run reports: %w", err)
			}
			if len(statuses) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No run reports found")
				return err
			}

			names := make([]string, 0, len(statuses))
			for name, st := range statuses {
				names = append(names, name)
				if versions.WrittenByNewer(st.Version) {
					slog.Warn("Run report was written by a newer rulegrab", "tool", name, "version", st.Version)
				}
			}
			sort.Strings(names)
			return renderStatuses(cmd.OutOrStdout(), names, statuses)
		},
	}
}
