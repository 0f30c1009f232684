package status

import "time"

// Phase represents how the last run of a source spec ended
type Phase string

const (
	// PhaseRunning means the spec is being fetched
	PhaseRunning Phase = "Running"

	// PhaseComplete means every item was attempted and none failed
	PhaseComplete Phase = "Complete"

	// PhasePartial means every item was attempted and some failed
	PhasePartial Phase = "Partial"

	// PhaseFailed means the spec could not run at all or every item failed
	PhaseFailed Phase = "Failed"

	// PhaseCancelled means the run was cancelled before all items were attempted
	PhaseCancelled Phase = "Cancelled"
)

// SourceStatus is the outcome of one source URL
type SourceStatus struct {
	// URL is the repository or direct URL
	URL string `yaml:"url"`

	// Kind is "repo" or "page"
	Kind string `yaml:"kind"`

	// Outcome is "written", "skipped" or "failed"
	Outcome string `yaml:"outcome"`

	// Files lists the paths landed from this source
	Files []string `yaml:"files,omitempty"`

	Error string `yaml:"error,omitempty"`
}

// RunStatus is the persisted record of the last run of one source spec
type RunStatus struct {
	// RunID identifies the run that wrote this status
	RunID string `yaml:"runId,omitempty"`

	// Version is the rulegrab version that wrote this status
	Version string `yaml:"version,omitempty"`

	Phase Phase `yaml:"phase"`

	// Message provides additional information, such as a fatal error
	Message string `yaml:"message,omitempty"`

	// OutputDir is the directory files were landed in
	OutputDir string `yaml:"outputDir,omitempty"`

	StartedAt  *time.Time `yaml:"startedAt,omitempty"`
	FinishedAt *time.Time `yaml:"finishedAt,omitempty"`

	Attempted int `yaml:"attempted"`
	Succeeded int `yaml:"succeeded"`
	Skipped   int `yaml:"skipped"`
	Failed    int `yaml:"failed"`

	// FilesWritten counts files landed across all sources
	FilesWritten int `yaml:"filesWritten"`

	Sources []SourceStatus `yaml:"sources,omitempty"`
}
