package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devdeck/models"
)

func TestHeadCommitAndIsGitRepo(t *testing.T) {
	dir := t.TempDir()

	ok, err := IsGitRepo(dir)
	require.NoError(t, err)
	assert.False(t, ok)

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	writeFile(t, filepath.Join(dir, "README.md"), "# demo\n")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.test", When: time.Now()},
	})
	require.NoError(t, err)

	ok, err = IsGitRepo(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	head, err := HeadCommit(dir)
	require.NoError(t, err)
	assert.Equal(t, hash.String(), head)
}

func TestHeadCommitOutsideRepo(t *testing.T) {
	_, err := HeadCommit(t.TempDir())
	assert.Error(t, err)
}

func TestCloneProjectRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	err := CloneProject(ctx, models.Project{Name: "x"}, filepath.Join(t.TempDir(), "x"))
	assert.ErrorContains(t, err, "no repository URL")

	existing := t.TempDir()
	err = CloneProject(ctx, models.Project{Name: "x", GithubURL: "https://github.com/acme/x"}, existing)
	assert.ErrorContains(t, err, "already exists")
}
