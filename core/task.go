package core

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrSimulatedTimeout is returned by a Latency whose failure branch fired.
var ErrSimulatedTimeout = errors.New("simulated request timeout")

// Latency stands in for the round-trip of a remote call.
type Latency struct {
	Delay time.Duration
	Fail  func() bool // optional; reports whether the call should time out
}

// NewLatency builds a Latency failing at random with the given rate (0 never fails).
func NewLatency(delay time.Duration, failureRate float64) Latency {
	l := Latency{Delay: delay}
	if failureRate > 0 {
		var mu sync.Mutex
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		l.Fail = func() bool {
			mu.Lock()
			defer mu.Unlock()
			return rnd.Float64() < failureRate
		}
	}
	return l
}

// Wait blocks for the configured delay or until ctx is done.
func (l Latency) Wait(ctx context.Context) error {
	if l.Delay > 0 {
		timer := time.NewTimer(l.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}

	if l.Fail != nil && l.Fail() {
		return ErrSimulatedTimeout
	}
	return nil
}

// Task is a cancellable unit of delayed background work.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Go runs fn after delay in its own goroutine. Cancelling the Task (or ctx) before the
// delay elapses prevents fn from running; fn receives the Task's context otherwise.
func Go(ctx context.Context, delay time.Duration, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		if err := (Latency{Delay: delay}).Wait(ctx); err != nil {
			t.err = err
			return
		}
		t.err = fn(ctx)
	}()
	return t
}

// Cancel aborts the task. It is safe to call more than once.
func (t *Task) Cancel() { t.cancel() }

func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finished and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}
