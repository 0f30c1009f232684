package app

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/rulegrab/rulegrab/internal/config"
	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/status"
	"github.com/rulegrab/rulegrab/internal/sync/coordinator"
)

// renderTable writes header and rows as a table
func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("failed to build table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// renderCatalog lists the configured tools and indicator feeds
func renderCatalog(w io.Writer, cfg *config.Config) error {
	specs, err := cfg.ToSourceSpecs()
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(specs))
	for _, spec := range specs {
		rows = append(rows, []string{
			spec.Name,
			spec.DestSubfolder,
			strconv.Itoa(len(spec.RepoURLs)),
			strconv.Itoa(len(spec.PageURLs)),
			strconv.Itoa(len(spec.FeedURLs)),
			formatExtensions(spec.AllowedExtensions),
		})
	}
	return renderTable(w, []string{"Tool", "Destination", "Repos", "Pages", "Feeds", "Extensions"}, rows)
}

// renderPlan prints what a run would fetch
func renderPlan(w io.Writer, outputRoot string, specs []*sources.SourceSpec) error {
	rows := make([][]string, 0, len(specs))
	total := 0
	for _, spec := range specs {
		total += spec.ItemCount()
		rows = append(rows, []string{
			spec.Name,
			filepath.Join(outputRoot, spec.DestSubfolder),
			strconv.Itoa(len(spec.RepoURLs)),
			strconv.Itoa(len(spec.PageURLs)),
			strconv.Itoa(len(spec.FeedURLs)),
			strconv.Itoa(spec.ItemCount()),
		})
	}
	if err := renderTable(w, []string{"Tool", "Destination", "Repos", "Pages", "Feeds", "Sources"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d sources across %d tools\n", total, len(specs))
	return err
}

// renderReport prints the per-tool outcome of a finished run
func renderReport(w io.Writer, report *coordinator.Report) error {
	rows := make([][]string, 0, len(report.Units))
	for _, unit := range report.Units {
		row := []string{unit.Spec, "-", "-", "-", "-", "-"}
		if r := unit.Result; r != nil {
			row = []string{
				unit.Spec,
				string(r.Phase()),
				strconv.Itoa(r.Written),
				strconv.Itoa(r.Skipped),
				strconv.Itoa(r.Failed),
				strconv.Itoa(r.Files),
			}
		}
		if unit.Err != nil {
			row[1] = string(status.PhaseFailed)
		}
		rows = append(rows, row)
	}
	if err := renderTable(w, []string{"Tool", "Phase", "Written", "Skipped", "Failed", "Files"}, rows); err != nil {
		return err
	}

	p := report.Progress
	_, err := fmt.Fprintf(w, "Run %s: %d/%d sources in %s (%d written, %d skipped, %d failed)\n",
		report.RunID, p.Completed, p.Total, report.Duration.Round(time.Millisecond),
		p.Succeeded, p.Skipped, p.Failed)
	return err
}

// renderStatuses lists persisted run reports, sorted by tool name
func renderStatuses(w io.Writer, names []string, statuses map[string]*status.RunStatus) error {
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		st := statuses[name]
		finished := "-"
		if st.FinishedAt != nil {
			finished = st.FinishedAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			name,
			string(st.Phase),
			finished,
			strconv.Itoa(st.Attempted),
			strconv.Itoa(st.Failed),
			strconv.Itoa(st.FilesWritten),
			st.RunID,
		})
	}
	return renderTable(w, []string{"Tool", "Phase", "Finished", "Attempted", "Failed", "Files", "Run"}, rows)
}

func formatExtensions(exts []string) string {
	if len(exts) == 0 {
		return "*"
	}
	return strings.Join(exts, ", ")
}
