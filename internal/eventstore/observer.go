package eventstore

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

const appendTimeout = 5 * time.Second

// Recorder is a build.Observer that appends lifecycle events to a Store and
// keeps an optional projection current. Store failures are logged; they
// never fail the build being observed.
type Recorder struct {
	store      Store
	projection *BuildHistoryProjection
}

var _ build.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder. projection may be nil.
func NewRecorder(store Store, projection *BuildHistoryProjection) *Recorder {
	return &Recorder{store: store, projection: projection}
}

// Emit persists event and applies it to the projection.
func (r *Recorder) Emit(ctx context.Context, event Event) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.Append(ctx, event.BuildID(), event.Type(), event.Timestamp(), event.Payload(), event.Metadata()); err != nil {
		return err
	}
	if r.projection != nil {
		r.projection.Apply(event)
	}
	return nil
}

func (r *Recorder) OnBuildStart(report *build.Report) {
	event, err := NewBuildStarted(report.BuildID, report.Start, BuildStartedData{
		Graph: report.Graph,
		Mode:  string(report.Mode),
	})
	r.emit(report, event, err)
}

func (r *Recorder) OnTaskStart(*build.Report, build.TaskName) {}

func (r *Recorder) OnTaskComplete(report *build.Report, rec build.TaskRecord) {
	event, err := NewTaskCompleted(report.BuildID, time.Now(), TaskCompletedData{
		Task:       string(rec.Task),
		Result:     string(rec.Result),
		DurationMS: rec.Duration.Milliseconds(),
		Files:      rec.Files,
		Error:      rec.Error,
	})
	r.emit(report, event, err)
}

func (r *Recorder) OnBuildComplete(report *build.Report) {
	data := BuildCompletedData{
		Outcome:    string(report.Outcome),
		DurationMS: report.Duration().Milliseconds(),
		Files:      report.Files(),
	}
	for _, t := range report.Tasks() {
		if t.Result == build.ResultFailed {
			data.ErrorTask = string(t.Task)
			data.ErrorMessage = t.Error
			break
		}
	}
	event, err := NewBuildCompleted(report.BuildID, report.End, data)
	r.emit(report, event, err)
}

func (r *Recorder) emit(report *build.Report, event Event, err error) {
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		defer cancel()
		err = r.Emit(ctx, event)
	}
	if err != nil {
		slog.Warn("Failed to record build event",
			logfields.BuildID(report.BuildID),
			logfields.Error(err))
	}
}
