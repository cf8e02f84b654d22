package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// Recorder defines observability hooks for build and task metrics.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObserveBuildDuration(mode string, d time.Duration)
	IncBuildOutcome(mode, outcome string)
	AddFilesWritten(task string, n int)
	IncReload(kind string)
}

// NoopRecorder is the default Recorder when metrics are not configured.
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration)  {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)          {}
func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, string)             {}
func (NoopRecorder) AddFilesWritten(string, int)                {}
func (NoopRecorder) IncReload(string)                           {}
