package build

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Func is the body of a leaf task.
type Func func(ctx context.Context, st *State) error

// Task is a node of a build graph.
type Task interface {
	Name() TaskName
	Run(ctx context.Context, st *State) error
}

// Composite is implemented by Series and Parallel nodes.
type Composite interface {
	Task
	Children() []Task
}

type leaf struct {
	name TaskName
	fn   Func
}

// Leaf wraps fn as a named task. A nil fn fails when run.
func Leaf(name TaskName, fn Func) Task { return &leaf{name: name, fn: fn} }

func (l *leaf) Name() TaskName { return l.name }

func (l *leaf) Run(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		l.complete(st, 0, ResultCanceled, err)
		return &TaskError{Task: l.name, Err: err}
	}
	st.observer.OnTaskStart(st.Report, l.name)
	slog.Debug("Task starting", logfields.Task(string(l.name)), logfields.BuildID(st.Report.BuildID))

	fn := l.fn
	if fn == nil {
		fn = func(context.Context, *State) error {
			return ferrors.InternalError("task has no implementation").WithContext("task", string(l.name)).Build()
		}
	}
	t0 := time.Now()
	err := fn(ctx, st)
	dur := time.Since(t0)

	result := classifyResult(ctx, err)
	l.complete(st, dur, result, err)
	if err != nil {
		return wrapTaskError(l.name, err)
	}
	return nil
}

func (l *leaf) complete(st *State, dur time.Duration, result TaskResult, err error) {
	rec := TaskRecord{Task: l.name, Result: result, Duration: dur}
	if err != nil {
		rec.Error = err.Error()
		if result == ResultFailed {
			st.Report.addIssue(l.name, err)
		}
	}
	rec = st.Report.record(rec)

	attrs := []any{
		logfields.Task(string(l.name)),
		logfields.Result(string(result)),
		logfields.Duration(dur),
	}
	switch result {
	case ResultSuccess:
		slog.Info("Task finished", append(attrs, logfields.Files(rec.Files))...)
	case ResultFailed:
		slog.Error("Task failed", append(attrs, logfields.Error(err))...)
	default:
		slog.Debug("Task not completed", attrs...)
	}
	st.observer.OnTaskComplete(st.Report, rec)
}

func classifyResult(ctx context.Context, err error) TaskResult {
	switch {
	case err == nil:
		return ResultSuccess
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return ResultCanceled
	default:
		return ResultFailed
	}
}

type series struct{ children []Task }

// Series runs tasks one after another and stops at the first error. Tasks
// that never started are recorded as skipped.
func Series(tasks ...Task) Task { return &series{children: tasks} }

func (s *series) Name() TaskName   { return nameSeries }
func (s *series) Children() []Task { return s.children }

func (s *series) Run(ctx context.Context, st *State) error {
	for i, t := range s.children {
		if err := t.Run(ctx, st); err != nil {
			for _, rest := range s.children[i+1:] {
				skip(st, rest)
			}
			return err
		}
	}
	return nil
}

type parallel struct{ children []Task }

// Parallel starts every task concurrently and returns once all of them have
// finished. The first error cancels the siblings and is returned.
func Parallel(tasks ...Task) Task { return &parallel{children: tasks} }

func (p *parallel) Name() TaskName   { return nameParallel }
func (p *parallel) Children() []Task { return p.children }

func (p *parallel) Run(ctx context.Context, st *State) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range p.children {
		g.Go(func() error { return t.Run(gctx, st) })
	}
	return g.Wait()
}

// skip records every leaf under t as skipped.
func skip(st *State, t Task) {
	if c, ok := t.(Composite); ok {
		for _, child := range c.Children() {
			skip(st, child)
		}
		return
	}
	rec := st.Report.record(TaskRecord{Task: t.Name(), Result: ResultSkipped})
	st.observer.OnTaskComplete(st.Report, rec)
}

// Leaves returns the leaf task names under t in declaration order.
func Leaves(t Task) []TaskName {
	c, ok := t.(Composite)
	if !ok {
		return []TaskName{t.Name()}
	}
	var out []TaskName
	for _, child := range c.Children() {
		out = append(out, Leaves(child)...)
	}
	return out
}
