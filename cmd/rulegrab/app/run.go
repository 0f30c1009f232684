package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	internalapp "github.com/rulegrab/rulegrab/internal/app"
	"github.com/rulegrab/rulegrab/internal/config"
	"github.com/rulegrab/rulegrab/internal/sync/coordinator"
)

const (
	flagOutputRoot   = "output-root"
	flagCloneTimeout = "clone-timeout"
	flagOnConflict   = "on-conflict"
	flagTool         = "tool"
	flagDryRun       = "dry-run"
	flagProgress     = "progress"

	// shutdownTimeout bounds the telemetry flush once the run has ended
	shutdownTimeout = 10 * time.Second
)

// errRunFailed is returned when at least one tool could not be fetched at all
var errRunFailed = errors.New("one or more tools failed")

// errRunCancelled is returned when the run was interrupted
var errRunCancelled = errors.New("run cancelled")

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch every configured tool into the output root",
		Long: `Fetch the git repositories and direct URLs of every configured tool.

Tools are fetched concurrently; the sources of one tool are fetched in order,
repositories first. Matching files land in <output-root>/<destSubfolder>.

Existing files are handled by the conflict mode: ask prompts on the terminal
(the answer can be applied to all remaining conflicts), overwrite and skip
never prompt. The first interrupt stops every tool before its next source;
a second one aborts in-flight downloads.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, v)
		},
	}

	cmd.Flags().String(flagOutputRoot, "", "Override the configured output root")
	cmd.Flags().String(flagCloneTimeout, "", "Override the configured clone timeout (e.g. 5m)")
	cmd.Flags().String(flagOnConflict, "", "Override the conflict mode (ask, overwrite or skip)")
	cmd.Flags().StringSlice(flagTool, nil, "Only fetch the named tools (repeatable)")
	cmd.Flags().Bool(flagDryRun, false, "Print what would be fetched without fetching")
	cmd.Flags().Bool(flagProgress, true, "Render a progress bar when stderr is a terminal")

	bindFlags(v,
		cmd.Flags().Lookup(flagOutputRoot),
		cmd.Flags().Lookup(flagCloneTimeout),
		cmd.Flags().Lookup(flagOnConflict),
		cmd.Flags().Lookup(flagTool),
		cmd.Flags().Lookup(flagDryRun),
		cmd.Flags().Lookup(flagProgress),
	)
	return cmd
}

// applyOverrides copies flag values over the loaded configuration and
// validates the result
func applyOverrides(cfg *config.Config, v *viper.Viper) error {
	if s := v.GetString(flagOutputRoot); s != "" {
		cfg.OutputRoot = s
	}
	if s := v.GetString(flagCloneTimeout); s != "" {
		cfg.CloneTimeout = s
	}
	if s := v.GetString(flagOnConflict); s != "" {
		cfg.Conflict = &config.ConflictConfig{Mode: s}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func runFetch(cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, v); err != nil {
		return err
	}

	tools := v.GetStringSlice(flagTool)
	if v.GetBool(flagDryRun) {
		specs, err := cfg.ToSourceSpecs(tools...)
		if err != nil {
			return err
		}
		return renderPlan(cmd.OutOrStdout(), cfg.GetOutputRoot(), specs)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errOut := cmd.ErrOrStderr()
	fetchApp, err := internalapp.NewFetchApp(ctx,
		internalapp.WithConfig(cfg),
		internalapp.WithTools(tools...),
		internalapp.WithTerminal(cmd.InOrStdin(), errOut),
		internalapp.WithProgressBar(v.GetBool(flagProgress) && isTerminal(errOut)),
	)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer shutdownCancel()
		if err := fetchApp.Close(shutdownCtx); err != nil {
			slog.Error("Error closing fetch run", "error", err)
		}
	}()

	stop := handleSignals(fetchApp.Cancel, cancel)
	defer stop()

	report, err := fetchApp.Run(ctx)
	if err != nil {
		return err
	}

	if err := renderReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	return reportError(report)
}

// reportError maps a finished run to the command result
func reportError(report *coordinator.Report) error {
	switch {
	case report.Failed():
		return errRunFailed
	case report.Cancelled():
		return errRunCancelled
	default:
		return nil
	}
}

// handleSignals cancels the run on the first SIGINT or SIGTERM and aborts it
// on the second. The returned function stops listening.
func handleSignals(cancelRun func(), abort context.CancelFunc) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		count := 0
		for {
			select {
			case sig := <-signals:
				count++
				if count == 1 {
					slog.Warn("Interrupt received, stopping after the current sources", "signal", sig.String())
					cancelRun()
					continue
				}
				slog.Warn("Second interrupt received, aborting", "signal", sig.String())
				abort()
				return
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(signals)
		close(done)
	}
}

// isTerminal reports whether w writes to a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	// #nosec G115 -- file descriptors fit in an int
	return term.IsTerminal(int(f.Fd()))
}
