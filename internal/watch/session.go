package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// RebuildFunc executes one merged plan.
type RebuildFunc func(ctx context.Context, plan Plan) error

// Session turns filesystem events into rebuilds. Changes arriving within one
// debounce window are merged into a single plan. Only one rebuild runs at a
// time; everything requested meanwhile is merged into exactly one follow-up.
type Session struct {
	classifier *Classifier
	debounce   time.Duration
	rebuild    RebuildFunc

	mu     sync.Mutex
	window Plan
	timer  *time.Timer
	queued Plan
	wake   chan struct{}
}

// NewSession creates a session; Run starts it.
func NewSession(c *Classifier, debounce time.Duration, rebuild RebuildFunc) *Session {
	return &Session{
		classifier: c,
		debounce:   debounce,
		rebuild:    rebuild,
		wake:       make(chan struct{}, 1),
	}
}

// Notify classifies path and schedules its plan.
func (s *Session) Notify(path string) Change {
	ch := s.classifier.Classify(path)
	if ch.Ignored() {
		return ch
	}
	slog.Debug("watch: change", logfields.Path(ch.Path), slog.String("area", string(ch.Area)), slog.String("plan", ch.Plan.String()))
	s.schedule(ch.Plan)
	return ch
}

// Request schedules plan as if a change had produced it.
func (s *Session) Request(plan Plan) {
	if !plan.Empty() {
		s.schedule(plan)
	}
}

func (s *Session) schedule(plan Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = s.window.Merge(plan)
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

// flush moves the debounce window into the rebuild queue.
func (s *Session) flush() {
	s.mu.Lock()
	s.queued = s.queued.Merge(s.window)
	s.window = Plan{}
	s.timer = nil
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) take() Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.queued
	s.queued = Plan{}
	return p
}

func (s *Session) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			plan := s.take()
			if plan.Empty() {
				continue
			}
			slog.Info("Change detected; rebuilding", slog.String("plan", plan.String()))
			if err := s.rebuild(ctx, plan); err != nil && ctx.Err() == nil {
				slog.Warn("Rebuild failed; keeping last good output", logfields.Error(err))
			}
		}
	}
}

// Run watches the source directories until ctx is done. It returns nil on
// cancellation.
func (s *Session) Run(ctx context.Context) error {
	w, err := newWatcher(s.classifier.Dirs())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryWatch, "failed to start file watcher").Build()
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.worker(ctx)
	}()
	defer func() {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()
		_ = w.Close()
		wg.Wait()
	}()

	slog.Info("Watching for changes", slog.Int("dirs", len(w.WatchList())))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			followNewDirs(w, ev)
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			s.Notify(ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", logfields.Error(err))
		}
	}
}
