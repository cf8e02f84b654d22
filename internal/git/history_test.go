package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, root, rel, body string, when time.Time) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(rel)
	require.NoError(t, err)
	sig := &object.Signature{Name: "Site Author", Email: "author@example.com", When: when}
	_, err = wt.Commit("update "+rel, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
}

func TestLastCommitTime(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	t1 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	commitFile(t, repo, root, "src/pages/index.njk", "v1", t1)
	commitFile(t, repo, root, "src/pages/about.njk", "v1", t2)

	h, err := Open(filepath.Join(root, "src", "pages"))
	require.NoError(t, err)

	got, err := h.LastCommitTime(filepath.Join(root, "src", "pages", "index.njk"))
	require.NoError(t, err)
	assert.True(t, got.Equal(t1), got)

	got, err = h.LastCommitTime(filepath.Join(root, "src", "pages", "about.njk"))
	require.NoError(t, err)
	assert.True(t, got.Equal(t2), got)

	require.NoError(t, os.WriteFile(filepath.Join(root, "untracked.njk"), []byte("x"), 0o644))
	_, err = h.LastCommitTime(filepath.Join(root, "untracked.njk"))
	assert.ErrorIs(t, err, ErrNoCommits)
}

func TestOpen_NotARepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
