package gitinfo

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// Adapter implements domain.GitInfo using go-git. Repositories open
// with dot-git detection, so analyzing a package nested inside a
// larger checkout still finds the enclosing repository.
type Adapter struct{}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) open(path string) (*git.Repository, error) {
	return git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
}

func (a *Adapter) IsGitRepo(path string) bool {
	_, err := a.open(path)
	return err == nil
}

// CommitHash returns the full HEAD hash, suffixed with -dirty when the
// worktree has uncommitted changes.
func (a *Adapter) CommitHash(path string) (string, error) {
	repo, err := a.open(path)
	if err != nil {
		return "", fmt.Errorf("opening git repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	hash := head.Hash().String()
	if isDirty(repo) {
		hash += "-dirty"
	}
	return hash, nil
}

// isDirty reports whether the worktree differs from HEAD. Errors read
// as clean.
func isDirty(repo *git.Repository) bool {
	wt, err := repo.Worktree()
	if err != nil {
		return false
	}
	status, err := wt.Status()
	if err != nil {
		return false
	}
	return !status.IsClean()
}
