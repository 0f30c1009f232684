// Package status records the outcome of each source spec between runs
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rulegrab/rulegrab/internal/sources"
	"github.com/rulegrab/rulegrab/internal/sync/writer"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

// StatusFileName is the name of the per-spec status file
const StatusFileName = "status.yaml"

// StatusPersistence defines the interface for run status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the status of the named spec
	SaveStatus(ctx context.Context, specName string, status *RunStatus) error

	// LoadStatus loads the status of the named spec. It returns an empty
	// RunStatus when nothing was saved yet.
	LoadStatus(ctx context.Context, specName string) (*RunStatus, error)

	// LoadAllStatus loads every saved status keyed by its directory name
	LoadAllStatus(ctx context.Context) (map[string]*RunStatus, error)
}

// fileStatusPersistence keeps one YAML file per spec under basePath
type fileStatusPersistence struct {
	basePath string
	writer   writer.FileWriter
}

// NewFileStatusPersistence creates a file-based status persistence rooted at basePath
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
		writer:   writer.NewAtomicFileWriter(),
	}
}

// specDir maps a spec name to its status directory
func (f *fileStatusPersistence) specDir(specName string) string {
	return filepath.Join(f.basePath, sources.Sanitize(specName))
}

// SaveStatus replaces the spec's status file atomically
func (f *fileStatusPersistence) SaveStatus(ctx context.Context, specName string, status *RunStatus) error {
	data, err := yaml.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status for spec '%s': %w", specName, err)
	}

	filePath := filepath.Join(f.specDir(specName), StatusFileName)
	if err := f.writer.Write(ctx, filePath, data); err != nil {
		return fmt.Errorf("failed to write status file for spec '%s': %w", specName, err)
	}
	return nil
}

// LoadStatus reads the spec's status file
func (f *fileStatusPersistence) LoadStatus(_ context.Context, specName string) (*RunStatus, error) {
	return f.load(f.specDir(specName))
}

func (*fileStatusPersistence) load(dir string) (*RunStatus, error) {
	filePath := filepath.Join(dir, StatusFileName)

	// #nosec G304 -- filePath is built from the configured status dir and a sanitized name
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &RunStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file %s: %w", filePath, err)
	}

	var status RunStatus
	if err := yaml.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status file %s: %w", filePath, err)
	}
	return &status, nil
}

// LoadAllStatus loads every spec status found under the base path
func (f *fileStatusPersistence) LoadAllStatus(_ context.Context) (map[string]*RunStatus, error) {
	result := make(map[string]*RunStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		status, err := f.load(filepath.Join(f.basePath, entry.Name()))
		if err != nil {
			// one corrupt file must not hide the others
			slog.Warn("Skipping unreadable status", "spec_dir", entry.Name(), "error", err)
			continue
		}
		result[entry.Name()] = status
	}
	return result, nil
}
