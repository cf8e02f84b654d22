package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type rebuildLog struct {
	mu      sync.Mutex
	plans   []Plan
	started chan Plan
	release chan struct{}
}

func newRebuildLog() *rebuildLog {
	return &rebuildLog{started: make(chan Plan, 16)}
}

func (l *rebuildLog) rebuild(ctx context.Context, p Plan) error {
	l.mu.Lock()
	l.plans = append(l.plans, p)
	release := l.release
	l.mu.Unlock()
	select {
	case l.started <- p:
	default:
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
		}
	}
	return nil
}

func (l *rebuildLog) snapshot() []Plan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Plan(nil), l.plans...)
}

func waitPlan(t *testing.T, ch <-chan Plan) Plan {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
		return Plan{}
	}
}

func startSession(t *testing.T, cfg *Classifier, log *rebuildLog) (*Session, func()) {
	t.Helper()
	s := NewSession(cfg, 20*time.Millisecond, log.rebuild)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return s, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestSession_DebounceMergesWindow(t *testing.T) {
	root := t.TempDir()
	c := NewClassifier(testConfig(root))
	log := newRebuildLog()
	s, stop := startSession(t, c, log)
	defer stop()

	s.Notify(filepath.Join(root, "src", "styles", "main.scss"))
	s.Notify(filepath.Join(root, "src", "pages", "index.njk"))
	s.Notify(filepath.Join(root, "README.md"))

	got := waitPlan(t, log.started)
	want := Plan{Styles: true, Pages: true, Reload: ReloadFull}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, log.snapshot(), 1)
}

func TestSession_CoalescesIntoOneFollowUp(t *testing.T) {
	root := t.TempDir()
	c := NewClassifier(testConfig(root))
	log := newRebuildLog()
	log.release = make(chan struct{})
	s, stop := startSession(t, c, log)
	defer stop()

	s.Notify(filepath.Join(root, "src", "styles", "main.scss"))
	first := waitPlan(t, log.started)
	assert.True(t, first.Styles)

	// Two separate debounce windows while the first rebuild is running.
	s.Notify(filepath.Join(root, "src", "pages", "index.njk"))
	time.Sleep(60 * time.Millisecond)
	s.Notify(filepath.Join(root, "src", "html", "layout.njk"))
	time.Sleep(60 * time.Millisecond)
	s.Notify(filepath.Join(root, "src", "scripts", "main.js"))
	time.Sleep(60 * time.Millisecond)

	log.mu.Lock()
	close(log.release)
	log.release = nil
	log.mu.Unlock()

	second := waitPlan(t, log.started)
	want := Plan{ResetPages: true, Pages: true, Scripts: true, Reload: ReloadFull}
	if diff := cmp.Diff(want, second); diff != "" {
		t.Errorf("follow-up mismatch (-want +got):\n%s", diff)
	}
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, log.snapshot(), 2)
}

func TestSession_WatchesFilesystem(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(root)
	require.NoError(t, os.MkdirAll(cfg.Paths.Styles, 0o755))
	require.NoError(t, os.MkdirAll(cfg.Paths.Pages, 0o755))
	log := newRebuildLog()
	_, stop := startSession(t, NewClassifier(cfg), log)
	defer stop()

	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.Styles, "main.scss"), []byte("a{}"), 0o644))
	got := waitPlan(t, log.started)
	assert.True(t, got.Styles)

	// New subdirectories are picked up.
	sub := filepath.Join(cfg.Paths.Pages, "blog")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	waitPlan(t, log.started)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "post.njk"), []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		for _, p := range log.snapshot() {
			if p.Pages && !p.ResetPages {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSession_RequestAndResync(t *testing.T) {
	root := t.TempDir()
	log := newRebuildLog()
	s, stop := startSession(t, NewClassifier(testConfig(root)), log)
	defer stop()

	r, err := StartResync(s, 50*time.Millisecond)
	require.NoError(t, err)
	got := waitPlan(t, log.started)
	require.NoError(t, r.Stop())
	if diff := cmp.Diff(Everything(), got); diff != "" {
		t.Errorf("resync plan mismatch (-want +got):\n%s", diff)
	}

	s.Request(Plan{})
	assert.Equal(t, Plan{}, s.take())
}
