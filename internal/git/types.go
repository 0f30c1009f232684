package git

import (
	"io"
	"path"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
)

// CloneConfig contains configuration for cloning a repository
type CloneConfig struct {
	// URL is the repository URL to clone. Local paths are accepted.
	URL string

	// Branch is the specific branch to clone (optional, default is the remote HEAD)
	Branch string

	// Depth limits history to the given number of commits. Zero means a full clone.
	Depth int

	// ScratchRoot is the parent directory for the scratch clone.
	// Empty means the OS temp directory.
	ScratchRoot string
}

// RepositoryInfo contains information about a cloned repository
type RepositoryInfo struct {
	// Repository is the go-git repository instance
	Repository *git.Repository

	// Branch is the checked out branch name
	Branch string

	// Head is the checked out commit hash
	Head string

	// RemoteURL is the remote repository URL
	RemoteURL string

	// Dir is the scratch directory holding the worktree. It is removed by Cleanup.
	Dir string

	// worktree is the scratch directory as a billy filesystem, used for walking
	worktree billy.Filesystem
}

// File is a regular file of a cloned worktree
type File struct {
	// Path is the slash-separated path relative to the worktree root
	Path string

	// Size is the file size in bytes
	Size int64

	fs billy.Filesystem
}

// Name returns the base name of the file
func (f File) Name() string {
	return path.Base(f.Path)
}

// Open opens the file for reading
func (f File) Open() (io.ReadCloser, error) {
	return f.fs.Open(f.Path)
}

// WalkFunc is called for every regular file of a worktree. Returning an error
// stops the walk.
type WalkFunc func(f File) error
