package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestLatency_Wait(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		latency Latency
		ctx     context.Context
		wantErr error
	}{
		{name: "no delay", latency: Latency{}, ctx: context.Background()},
		{name: "delay", latency: Latency{Delay: time.Millisecond}, ctx: context.Background()},
		{name: "failure", latency: Latency{Fail: func() bool { return true }}, ctx: context.Background(), wantErr: ErrSimulatedTimeout},
		{name: "cancelled", latency: Latency{Delay: time.Hour}, ctx: cancelled, wantErr: context.Canceled},
		{name: "cancelled without delay", latency: Latency{}, ctx: cancelled, wantErr: context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.latency.Wait(tt.ctx)
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestNewLatency(t *testing.T) {
	assert.Nil(t, NewLatency(0, 0).Fail)

	always := NewLatency(0, 1)
	for i := 0; i < 10; i++ {
		assert.Equal(t, ErrSimulatedTimeout, always.Wait(context.Background()))
	}
}

func TestGo(t *testing.T) {
	var calls int32
	task := Go(context.Background(), time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	assert.EqualError(t, task.Wait(), "boom")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTask_Cancel(t *testing.T) {
	var calls int32
	task := Go(context.Background(), time.Hour, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	task.Cancel()
	task.Cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not stop after Cancel()")
	}
	assert.Equal(t, context.Canceled, task.Wait())
	assert.Zero(t, atomic.LoadInt32(&calls))
}
