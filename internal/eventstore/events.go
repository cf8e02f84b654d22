package eventstore

import (
	"encoding/json"
	"time"
)

// BuildStartedData is the payload of a BuildStarted event.
type BuildStartedData struct {
	Graph string `json:"graph"`
	Mode  string `json:"mode"`
}

// TaskCompletedData is the payload of a TaskCompleted event.
type TaskCompletedData struct {
	Task       string `json:"task"`
	Result     string `json:"result"`
	DurationMS int64  `json:"duration_ms"`
	Files      int    `json:"files"`
	Error      string `json:"error,omitempty"`
}

// BuildCompletedData is the payload of a BuildCompleted event.
type BuildCompletedData struct {
	Outcome      string `json:"outcome"`
	DurationMS   int64  `json:"duration_ms"`
	Files        int    `json:"files"`
	ErrorTask    string `json:"error_task,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// BuildStarted is emitted when a graph begins executing.
type BuildStarted struct {
	BaseEvent
	Data BuildStartedData
}

// NewBuildStarted creates a BuildStarted event.
func NewBuildStarted(buildID string, at time.Time, data BuildStartedData) (*BuildStarted, error) {
	base, err := newBase(buildID, TypeBuildStarted, at, data)
	if err != nil {
		return nil, err
	}
	return &BuildStarted{BaseEvent: base, Data: data}, nil
}

// TaskCompleted is emitted once per leaf task, including skipped ones.
type TaskCompleted struct {
	BaseEvent
	Data TaskCompletedData
}

// NewTaskCompleted creates a TaskCompleted event.
func NewTaskCompleted(buildID string, at time.Time, data TaskCompletedData) (*TaskCompleted, error) {
	base, err := newBase(buildID, TypeTaskCompleted, at, data)
	if err != nil {
		return nil, err
	}
	return &TaskCompleted{BaseEvent: base, Data: data}, nil
}

// BuildCompleted is emitted when a graph finishes, whatever the outcome.
type BuildCompleted struct {
	BaseEvent
	Data BuildCompletedData
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(buildID string, at time.Time, data BuildCompletedData) (*BuildCompleted, error) {
	base, err := newBase(buildID, TypeBuildCompleted, at, data)
	if err != nil {
		return nil, err
	}
	return &BuildCompleted{BaseEvent: base, Data: data}, nil
}

func newBase(buildID, eventType string, at time.Time, data any) (BaseEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return BaseEvent{}, wrap(ErrMarshalPayloadFailed, err).
			WithContext("build_id", buildID).
			WithContext("type", eventType)
	}
	return BaseEvent{
		EventBuildID:   buildID,
		EventType:      eventType,
		EventTimestamp: at,
		EventPayload:   payload,
	}, nil
}
