package eventstore

import (
	"context"
	"time"
)

// Store persists and retrieves build events.
type Store interface {
	// Append adds an event. at is the time the event occurred.
	Append(ctx context.Context, buildID, eventType string, at time.Time, payload []byte, metadata map[string]string) error

	// GetByBuildID returns all events of one build in append order.
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// GetRange returns events with start <= timestamp <= end in append order.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	Close() error
}
