package build

import (
	"context"
	"errors"
	"fmt"
)

// TaskError records which leaf task failed. The cause is kept intact so
// errors.Is and errors.As reach collaborator and classified errors.
type TaskError struct {
	Task TaskName
	Err  error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %s: %v", e.Task, e.Err) }
func (e *TaskError) Unwrap() error { return e.Err }

// Canceled reports whether the task stopped because its context was done.
func (e *TaskError) Canceled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

func wrapTaskError(name TaskName, err error) error {
	var te *TaskError
	if errors.As(err, &te) {
		return err
	}
	return &TaskError{Task: name, Err: err}
}

// FailedTask returns the name of the leaf task that produced err, if any.
func FailedTask(err error) (TaskName, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Task, true
	}
	return "", false
}
