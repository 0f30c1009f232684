package sources

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/rulegrab/rulegrab/internal/conflict"
)

// lander writes one file into place, asking the arbiter first when the
// destination already exists
type lander struct {
	arbiter *conflict.Arbiter
}

// land returns ErrOverwriteSkipped when an existing destination is kept and
// the write error otherwise
func (l lander) land(ctx context.Context, dest, label string, write func() error) error {
	_, err := os.Lstat(dest)
	switch {
	case err == nil:
		if l.arbiter == nil || !l.arbiter.Resolve(ctx, dest, label) {
			slog.Debug("Keeping existing file", "path", dest, "source", label)
			return ErrOverwriteSkipped
		}
	case !errors.Is(err, fs.ErrNotExist):
		// unknown state, write anyway and let the writer report it
		slog.Debug("Could not stat destination", "path", dest, "error", err)
	}

	return write()
}
