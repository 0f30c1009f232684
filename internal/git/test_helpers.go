package git

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// TestRepoConfig contains configuration for creating a test repository
type TestRepoConfig struct {
	// Dir is the parent directory for the repository; empty means t.TempDir()
	Dir string
	// Name is the repository directory name; empty means "repo"
	Name  string
	Files map[string]string // Map of filename to content
}

// CreateTestRepo creates a Git repository on disk with one commit holding the
// given files and returns its path. The repository is removed with the test's
// temp dir.
func CreateTestRepo(t *testing.T, config TestRepoConfig) string {
	t.Helper()

	parent := config.Dir
	if parent == "" {
		parent = t.TempDir()
	}
	name := config.Name
	if name == "" {
		name = "repo"
	}
	repoDir := filepath.Join(parent, name)

	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}

	workTree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	// deterministic add order
	filenames := make([]string, 0, len(config.Files))
	for filename := range config.Files {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	for _, filename := range filenames {
		filePath := filepath.Join(repoDir, filepath.FromSlash(filename))
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", filename, err)
		}
		if err := os.WriteFile(filePath, []byte(config.Files[filename]), 0o644); err != nil {
			t.Fatalf("Failed to write file %s: %v", filename, err)
		}
		if _, err := workTree.Add(filename); err != nil {
			t.Fatalf("Failed to add file %s: %v", filename, err)
		}
	}

	_, err = workTree.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  time.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	return repoDir
}
