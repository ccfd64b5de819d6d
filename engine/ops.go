package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"devdeck/models"
)

// CloneProject clones the project's repository into dest, which must not
// exist yet. Public repositories go through go-git; when that needs
// credentials the system git is used so its credential helper applies.
func CloneProject(ctx context.Context, project models.Project, dest string) error {
	if project.GithubURL == "" {
		return fmt.Errorf("project %s has no repository URL", project.Name)
	}

	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("directory already exists at %s", dest)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check destination: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:   project.GithubURL,
		Depth: 1,
	})
	if err == nil {
		return nil
	}
	_ = os.RemoveAll(dest)

	if !errors.Is(err, transport.ErrAuthenticationRequired) && !errors.Is(err, transport.ErrAuthorizationFailed) {
		return fmt.Errorf("failed to clone repository from %s: %w", project.GithubURL, err)
	}
	if err := cloneWithSystemGit(ctx, project.GithubURL, dest); err != nil {
		_ = os.RemoveAll(dest)
		return fmt.Errorf("failed to clone repository from %s: %w", project.GithubURL, err)
	}
	return nil
}

// HeadCommit returns the hash HEAD points at in the repository at dir.
func HeadCommit(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("failed to open git repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	return head.Hash().String(), nil
}

// IsGitRepo reports whether dir is the root of a git repository.
func IsGitRepo(dir string) (bool, error) {
	_, err := git.PlainOpen(dir)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, git.ErrRepositoryNotExists):
		return false, nil
	default:
		return false, err
	}
}

func cloneWithSystemGit(ctx context.Context, repoURL, destPath string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", repoURL, destPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
