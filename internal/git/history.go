package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNoCommits is returned when a file has never been committed.
var ErrNoCommits = errors.New("no commits touch file")

// History answers "when was this file last committed" for one repository.
// Answers are cached; History is safe for concurrent use.
type History struct {
	repo *git.Repository
	root string

	mu    sync.Mutex
	cache map[string]time.Time
}

// Open finds the repository containing dir, searching parent directories.
func Open(dir string) (*History, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return &History{repo: repo, root: wt.Filesystem.Root(), cache: make(map[string]time.Time)}, nil
}

// Root is the worktree root of the repository.
func (h *History) Root() string { return h.root }

// LastCommitTime returns the committer time of the newest commit touching path.
func (h *History) LastCommitTime(path string) (time.Time, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, err
	}
	rel, err := filepath.Rel(h.root, abs)
	if err != nil {
		return time.Time{}, err
	}
	rel = filepath.ToSlash(rel)

	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.cache[rel]; ok {
		return t, nil
	}

	iter, err := h.repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return time.Time{}, fmt.Errorf("log %s: %w", rel, err)
	}
	defer iter.Close()
	c, err := iter.Next()
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", rel, ErrNoCommits)
	}
	when := commitTime(c)
	h.cache[rel] = when
	return when, nil
}

func commitTime(c *object.Commit) time.Time {
	return c.Committer.When.UTC()
}
