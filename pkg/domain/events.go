package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventJobStart  EventType = "job_start"
	EventJobFinish EventType = "job_finish"
)

// JobEvent reports a job entering or leaving the engine.
type JobEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	Kind      JobKind   `json:"kind"`
	Status    JobStatus `json:"status,omitempty"`
	Err       error     `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnJobStart  func(context.Context, *JobEvent)
	OnJobFinish func(context.Context, *JobEvent)
}
