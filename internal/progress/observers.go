package progress

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// LogObserver writes progress to the default slog logger
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver. A nil logger means slog.Default().
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

// Notify logs each update at debug level and the run-complete update at info
func (o *LogObserver) Notify(s Snapshot) {
	if s.Total > 0 && s.Done() && s.Label == "" {
		o.logger.Info("All sources processed",
			"completed", s.Completed,
			"total", s.Total,
			"succeeded", s.Succeeded,
			"skipped", s.Skipped,
			"failed", s.Failed)
		return
	}
	o.logger.Debug("Progress update",
		"completed", s.Completed,
		"total", s.Total,
		"label", s.Label)
}

const defaultBarWidth = 40

var labelStyle = lipgloss.NewStyle().Faint(true)

// TerminalObserver renders a single-line progress bar, redrawn in place
type TerminalObserver struct {
	out io.Writer
	bar progress.Model
}

// TerminalOption configures a TerminalObserver
type TerminalOption func(*TerminalObserver)

// WithBarWidth sets the bar width in cells
func WithBarWidth(width int) TerminalOption {
	return func(o *TerminalObserver) {
		o.bar.Width = width
	}
}

// NewTerminalObserver creates a bar observer writing to out
func NewTerminalObserver(out io.Writer, opts ...TerminalOption) *TerminalObserver {
	o := &TerminalObserver{
		out: out,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(defaultBarWidth)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Notify redraws the bar. The line is terminated once the run is done.
func (o *TerminalObserver) Notify(s Snapshot) {
	line := fmt.Sprintf("\r%s %d/%d", o.bar.ViewAs(s.Fraction()), s.Completed, s.Total)
	if s.Label != "" {
		line += " " + labelStyle.Render(s.Label)
	}
	// clear the tail of a longer previous line
	line += "\033[K"
	if s.Total > 0 && s.Done() && s.Label == "" {
		line += "\n"
	}
	_, _ = io.WriteString(o.out, line)
}
