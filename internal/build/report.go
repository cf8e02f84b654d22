package build

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Outcome is the final state of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// TaskResult classifies how a single leaf task ended.
type TaskResult string

const (
	ResultSuccess  TaskResult = "success"
	ResultFailed   TaskResult = "failed"
	ResultCanceled TaskResult = "canceled"
	ResultSkipped  TaskResult = "skipped"
)

// TaskRecord is the per-task line of a Report.
type TaskRecord struct {
	Task     TaskName      `json:"task"`
	Result   TaskResult    `json:"result"`
	Duration time.Duration `json:"duration"`
	Files    int           `json:"files"`
	Error    string        `json:"error,omitempty"`
}

// Issue is a structured problem recorded during a build.
type Issue struct {
	Task     TaskName              `json:"task"`
	Category ferrors.ErrorCategory `json:"category"`
	Severity ferrors.ErrorSeverity `json:"severity"`
	Message  string                `json:"message"`
	Context  ferrors.ErrorContext  `json:"context,omitempty"`
}

// Report captures timing and results of one graph execution. It is safe for
// concurrent use by parallel tasks.
type Report struct {
	BuildID string      `json:"build_id"`
	Graph   string      `json:"graph"`
	Mode    config.Mode `json:"mode"`
	Start   time.Time   `json:"start"`
	End     time.Time   `json:"end"`
	Outcome Outcome     `json:"outcome"`

	mu     sync.Mutex
	tasks  []TaskRecord
	files  map[TaskName]int
	issues []Issue
}

// NewReport starts a report with a fresh build ID.
func NewReport(graph string, mode config.Mode) *Report {
	return &Report{
		BuildID: uuid.NewString(),
		Graph:   graph,
		Mode:    mode,
		Start:   time.Now(),
		files:   make(map[TaskName]int),
	}
}

// AddFiles adds n to the number of files written by task.
func (r *Report) AddFiles(task TaskName, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[task] += n
}

func (r *Report) record(rec TaskRecord) TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Files = r.files[rec.Task]
	r.tasks = append(r.tasks, rec)
	return rec
}

func (r *Report) addIssue(task TaskName, err error) {
	issue := Issue{Task: task, Category: task.Category(), Severity: ferrors.SeverityError, Message: err.Error()}
	if ce, ok := ferrors.AsClassified(err); ok {
		issue.Category = ce.Category()
		issue.Severity = ce.Severity()
		issue.Message = ce.Error()
		if len(ce.Context()) > 0 {
			issue.Context = ce.Context()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issues = append(r.issues, issue)
}

// Tasks returns task records in completion order.
func (r *Report) Tasks() []TaskRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TaskRecord(nil), r.tasks...)
}

// Task returns the record for name, if the task has completed.
func (r *Report) Task(name TaskName) (TaskRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.Task == name {
			return t, true
		}
	}
	return TaskRecord{}, false
}

// Issues returns the recorded issues.
func (r *Report) Issues() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Issue(nil), r.issues...)
}

// Files returns the total number of files written across tasks.
func (r *Report) Files() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.files {
		n += c
	}
	return n
}

// Duration is End-Start, or the elapsed time for a running build.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// finish stamps the end time and derives the outcome from the graph error.
func (r *Report) finish(err error) {
	r.End = time.Now()
	var te *TaskError
	switch {
	case err == nil:
		r.Outcome = OutcomeSuccess
	case errors.As(err, &te) && te.Canceled():
		r.Outcome = OutcomeCanceled
	default:
		r.Outcome = OutcomeFailed
	}
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	tasks := r.Tasks()
	counts := map[TaskResult]int{}
	for _, t := range tasks {
		counts[t.Result]++
	}
	keys := make([]string, 0, len(counts))
	for k, v := range counts {
		keys = append(keys, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(keys)
	return fmt.Sprintf("graph=%s mode=%s files=%d duration=%s tasks=%d [%s] issues=%d outcome=%s",
		r.Graph, r.Mode, r.Files(), r.Duration().Truncate(time.Millisecond), len(tasks),
		strings.Join(keys, " "), len(r.Issues()), r.Outcome)
}
