package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInvalidPeriod is returned for non-positive periods.
var ErrInvalidPeriod = errors.New("scheduler period must be positive")

// Task is executed once per period with the tick time.
type Task func(now time.Time)

// Ticker is a cancellable repeating task.
type Ticker struct {
	mu     sync.Mutex
	period time.Duration
	task   Task
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped Ticker.
func New(period time.Duration, task Task) (*Ticker, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if task == nil {
		return nil, errors.New("scheduler task is nil")
	}
	return &Ticker{period: period, task: task}, nil
}

// Start launches the loop. It returns false when already running. The loop
// also ends when ctx is cancelled.
func (t *Ticker) Start(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.runningLocked() {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.loop(ctx, t.period, done)
	return true
}

// Stop cancels future executions and waits for the loop to exit, including
// an execution already in progress. It returns false when not running.
func (t *Ticker) Stop() bool {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

// Running reports whether the loop is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runningLocked()
}

// Period returns the configured cadence.
func (t *Ticker) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// SetPeriod changes the cadence. A running loop picks it up after the next
// Stop/Start cycle.
func (t *Ticker) SetPeriod(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidPeriod
	}
	t.mu.Lock()
	t.period = d
	t.mu.Unlock()
	return nil
}

func (t *Ticker) runningLocked() bool {
	if t.done == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Ticker) loop(ctx context.Context, period time.Duration, done chan struct{}) {
	defer close(done)
	tk := time.NewTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tk.C:
			// both cases may be ready; cancellation wins
			if ctx.Err() != nil {
				return
			}
			t.task(now)
		}
	}
}
