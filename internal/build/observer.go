package build

import (
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Observer receives callbacks around task execution and the build lifecycle.
// Implementations must be safe for concurrent use: parallel tasks report
// from their own goroutines.
type Observer interface {
	OnBuildStart(report *Report)
	OnTaskStart(report *Report, task TaskName)
	OnTaskComplete(report *Report, rec TaskRecord)
	OnBuildComplete(report *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnBuildStart(*Report)               {}
func (NoopObserver) OnTaskStart(*Report, TaskName)      {}
func (NoopObserver) OnTaskComplete(*Report, TaskRecord) {}
func (NoopObserver) OnBuildComplete(*Report)            {}

// MultiObserver fans callbacks out in order.
type MultiObserver []Observer

func (m MultiObserver) OnBuildStart(r *Report) {
	for _, o := range m {
		o.OnBuildStart(r)
	}
}

func (m MultiObserver) OnTaskStart(r *Report, task TaskName) {
	for _, o := range m {
		o.OnTaskStart(r, task)
	}
}

func (m MultiObserver) OnTaskComplete(r *Report, rec TaskRecord) {
	for _, o := range m {
		o.OnTaskComplete(r, rec)
	}
}

func (m MultiObserver) OnBuildComplete(r *Report) {
	for _, o := range m {
		o.OnBuildComplete(r)
	}
}

// RecorderObserver adapts a metrics.Recorder into an Observer.
type RecorderObserver struct{ Rec metrics.Recorder }

func (RecorderObserver) OnBuildStart(*Report)          {}
func (RecorderObserver) OnTaskStart(*Report, TaskName) {}

func (o RecorderObserver) OnTaskComplete(_ *Report, rec TaskRecord) {
	if o.Rec == nil {
		return
	}
	o.Rec.ObserveTaskDuration(string(rec.Task), rec.Duration)
	o.Rec.IncTaskResult(string(rec.Task), metrics.ResultLabel(rec.Result))
	if rec.Files > 0 {
		o.Rec.AddFilesWritten(string(rec.Task), rec.Files)
	}
}

func (o RecorderObserver) OnBuildComplete(r *Report) {
	if o.Rec == nil {
		return
	}
	o.Rec.ObserveBuildDuration(string(r.Mode), r.Duration())
	o.Rec.IncBuildOutcome(string(r.Mode), string(r.Outcome))
}
