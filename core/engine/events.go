package engine

import (
	"time"

	"github.com/kilianp07/hres/core/model"
)

// TickEvent is published after every committed tick.
type TickEvent struct {
	RunID    string
	State    model.State
	Sample   model.Sample
	Duration time.Duration
}

// LifecycleEvent reports start, pause and reset transitions.
type LifecycleEvent struct {
	RunID string
	Kind  LifecycleKind
	Time  time.Time
}

// LifecycleKind enumerates lifecycle transitions.
type LifecycleKind string

const (
	LifecycleStarted LifecycleKind = "started"
	LifecyclePaused  LifecycleKind = "paused"
	LifecycleReset   LifecycleKind = "reset"
)
