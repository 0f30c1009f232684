// Package writer lands fetched content on disk with a stage-then-rename discipline
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_file_writer.go -package=mocks -source=writer.go FileWriter

const (
	// stagingPattern names the per-write staging directory created next to the destination
	stagingPattern = ".rulegrab-stage-*"

	// partSuffix is appended to the staged file name
	partSuffix = ".part"

	defaultDirPerm  os.FileMode = 0o750
	defaultFilePerm os.FileMode = 0o644
)

// Write operations reported in WriteError.Op
const (
	OpMkdir  = "mkdir"
	OpStage  = "stage"
	OpWrite  = "write"
	OpRename = "rename"
)

// WriteError describes a failed write. The destination is untouched whenever
// Op is not OpRename, and a failed rename leaves the previous content in place.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// FileWriter defines the interface used by fetchers to land files
type FileWriter interface {
	// Write atomically replaces destPath with content
	Write(ctx context.Context, destPath string, content []byte) error

	// WriteFrom atomically replaces destPath with everything read from r
	// and returns the number of bytes written
	WriteFrom(ctx context.Context, destPath string, r io.Reader) (int64, error)
}

// AtomicFileWriter stages content in a temporary directory created inside the
// destination directory and promotes it with a rename on the same filesystem.
type AtomicFileWriter struct {
	dirPerm  os.FileMode
	filePerm os.FileMode
}

var _ FileWriter = (*AtomicFileWriter)(nil)

// Option configures an AtomicFileWriter
type Option func(*AtomicFileWriter)

// WithDirPerm sets the permissions used when creating destination directories
func WithDirPerm(perm os.FileMode) Option {
	return func(w *AtomicFileWriter) {
		w.dirPerm = perm
	}
}

// WithFilePerm sets the permissions of promoted files
func WithFilePerm(perm os.FileMode) Option {
	return func(w *AtomicFileWriter) {
		w.filePerm = perm
	}
}

// NewAtomicFileWriter creates a new AtomicFileWriter
func NewAtomicFileWriter(opts ...Option) *AtomicFileWriter {
	w := &AtomicFileWriter{
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write atomically replaces destPath with content
func (w *AtomicFileWriter) Write(ctx context.Context, destPath string, content []byte) error {
	_, err := w.WriteFrom(ctx, destPath, bytes.NewReader(content))
	return err
}

// WriteFrom atomically replaces destPath with everything read from r
func (w *AtomicFileWriter) WriteFrom(ctx context.Context, destPath string, r io.Reader) (int64, error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, w.dirPerm); err != nil {
		return 0, &WriteError{Op: OpMkdir, Path: dir, Err: err}
	}

	stageDir, err := os.MkdirTemp(dir, stagingPattern)
	if err != nil {
		return 0, &WriteError{Op: OpStage, Path: dir, Err: err}
	}
	// The staging directory never outlives the call, whatever the outcome
	defer func() {
		_ = os.RemoveAll(stageDir)
	}()

	partPath := filepath.Join(stageDir, filepath.Base(destPath)+partSuffix)
	written, err := w.stage(partPath, r)
	if err != nil {
		return 0, &WriteError{Op: OpWrite, Path: partPath, Err: err}
	}

	// A cancelled run must not promote anything it has not committed to yet
	if err := ctx.Err(); err != nil {
		return 0, &WriteError{Op: OpWrite, Path: partPath, Err: err}
	}

	if err := os.Rename(partPath, destPath); err != nil {
		return 0, &WriteError{Op: OpRename, Path: destPath, Err: err}
	}

	return written, nil
}

// stage copies r into a new file at partPath and flushes it to disk
func (w *AtomicFileWriter) stage(partPath string, r io.Reader) (int64, error) {
	// #nosec G304 -- partPath is built from a directory created by os.MkdirTemp
	f, err := os.OpenFile(partPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, w.filePerm)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return written, nil
}
