package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const scratchPattern = "rulegrab-clone-*"

// Client defines the interface for Git operations
type Client interface {
	// Clone clones a repository into a fresh scratch directory
	Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error)

	// Walk calls fn for every regular file of the cloned worktree, skipping .git
	Walk(repoInfo *RepositoryInfo, fn WalkFunc) error

	// Cleanup removes the scratch directory
	Cleanup(ctx context.Context, repoInfo *RepositoryInfo) error
}

// defaultGitClient implements Client using go-git on the local filesystem
type defaultGitClient struct{}

// NewDefaultGitClient creates a new defaultGitClient
func NewDefaultGitClient() Client {
	return &defaultGitClient{}
}

// Clone clones a repository with the given configuration. The clone never
// touches anything outside its own scratch directory, and the directory is
// removed again if the clone fails or ctx ends first.
func (*defaultGitClient) Clone(ctx context.Context, config *CloneConfig) (*RepositoryInfo, error) {
	if config == nil || config.URL == "" {
		return nil, errors.New("repository URL is required")
	}

	dir, err := os.MkdirTemp(config.ScratchRoot, scratchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	cloneOptions := &git.CloneOptions{
		URL:   config.URL,
		Depth: config.Depth,
	}
	if config.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(config.Branch)
		cloneOptions.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, cloneOptions)
	if err != nil {
		removeScratch(dir)
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	repoInfo := &RepositoryInfo{
		Repository: repo,
		RemoteURL:  config.URL,
		Dir:        dir,
		worktree:   osfs.New(dir),
	}

	if ref, err := repo.Head(); err == nil {
		repoInfo.Head = ref.Hash().String()
		if ref.Name().IsBranch() {
			repoInfo.Branch = ref.Name().Short()
		}
	} else {
		// an empty repository has no HEAD yet; there is simply nothing to walk
		slog.Debug("Cloned repository has no HEAD", "url", config.URL, "error", err)
	}

	return repoInfo, nil
}

// Walk visits the worktree in lexical order
func (*defaultGitClient) Walk(repoInfo *RepositoryInfo, fn WalkFunc) error {
	if repoInfo == nil || repoInfo.worktree == nil {
		return errors.New("repository is nil")
	}
	fs := repoInfo.worktree

	return util.Walk(fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == git.GitDirName {
				return filepath.SkipDir
			}
			return nil
		}
		// symlinks and other special files are not content
		if !info.Mode().IsRegular() {
			return nil
		}
		return fn(File{
			Path: filepath.ToSlash(p),
			Size: info.Size(),
			fs:   fs,
		})
	})
}

// Cleanup removes the scratch directory. It is safe to call more than once.
func (*defaultGitClient) Cleanup(_ context.Context, repoInfo *RepositoryInfo) error {
	if repoInfo == nil {
		return errors.New("repository is nil")
	}
	if repoInfo.Dir == "" {
		return nil
	}

	slog.Debug("Removing scratch clone", "dir", repoInfo.Dir)
	if err := os.RemoveAll(repoInfo.Dir); err != nil {
		return fmt.Errorf("failed to remove scratch directory %s: %w", repoInfo.Dir, err)
	}

	repoInfo.Dir = ""
	repoInfo.worktree = nil
	repoInfo.Repository = nil
	return nil
}

func removeScratch(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("Failed to remove scratch directory", "dir", dir, "error", err)
	}
}
