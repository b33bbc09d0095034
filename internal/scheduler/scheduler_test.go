package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	s := New(logr.Discard(), time.Minute)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Add(Job{Name: "a", Spec: "@every 1m", Run: noop}))
	require.NoError(t, s.Add(Job{Name: "b", Spec: "0 8 * * *", Run: noop}))
	require.NoError(t, s.Add(Job{Name: "disabled", Spec: "", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "bad", Spec: "every tuesday", Run: noop}))

	assert.Equal(t, 2, s.Jobs())
}

func TestWrap_PassesLoggerAndDeadline(t *testing.T) {
	s := New(logr.Discard(), time.Minute)

	var sawDeadline, sawLogger bool
	s.wrap(Job{Name: "probe", Run: func(ctx context.Context) error {
		_, sawDeadline = ctx.Deadline()
		_, err := logr.FromContext(ctx)
		sawLogger = err == nil
		return errors.New("failures are logged, not raised")
	}})()

	assert.True(t, sawDeadline)
	assert.True(t, sawLogger)
}

func TestRun_FiresJobsUntilCancelled(t *testing.T) {
	s := New(logr.Discard(), time.Minute)

	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	require.NoError(t, s.Add(Job{Name: "tick", Spec: "@every 1s", Run: func(context.Context) error {
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job never ran")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}
