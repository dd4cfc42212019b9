package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestJobManager_RunsQueuedJobsInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewJobManager()
	m.Start(context.Background())
	defer m.Stop()

	var order []int
	done := make(chan struct{})
	for i := 1; i <= 3; i++ {
		m.Request(NewJob("step", func(context.Context) error {
			order = append(order, i)
			if i == 3 {
				close(done)
			}
			return nil
		}))
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not run")
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestJobManager_WaitUntilReady(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewJobManager()
	release := make(chan struct{})
	var background atomic.Bool
	m.Request(NewJob("slow", func(context.Context) error {
		<-release
		background.Store(true)
		return nil
	}))
	m.Start(context.Background())
	defer m.Stop()

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	var sawBackground bool
	err := m.PerformConcurrentJob(context.Background(), NewJob("search", func(context.Context) error {
		sawBackground = background.Load()
		return nil
	}), WaitUntilReady)
	require.NoError(t, err)
	assert.True(t, sawBackground, "search must run after the queued job")
	assert.Equal(t, 0, m.AwaitingJobs())
}

func TestJobManager_CancelIfNotReady(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewJobManager()
	m.Request(NewJob("pending", func(context.Context) error { return nil }))
	require.Equal(t, 1, m.AwaitingJobs())

	ran := false
	job := NewJob("search", func(context.Context) error {
		ran = true
		return nil
	})
	err := m.PerformConcurrentJob(context.Background(), job, CancelIfNotReady)
	assert.ErrorIs(t, err, ErrNotReady)
	assert.False(t, ran)

	require.NoError(t, m.PerformConcurrentJob(context.Background(), job, ForceImmediate))
	assert.True(t, ran)
}

func TestJobManager_WaitCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewJobManager()
	m.Request(NewJob("never started", func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := m.PerformConcurrentJob(ctx, NewJob("search", func(context.Context) error { return nil }), WaitUntilReady)
	assert.ErrorIs(t, err, ErrOperationCanceled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJobManager_StopDiscardsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewJobManager()
	m.Start(context.Background())

	started := make(chan struct{})
	m.Request(NewJob("blocking", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	m.Request(NewJob("queued", func(context.Context) error {
		return errors.New("must not run")
	}))
	<-started

	m.Stop()
	assert.Equal(t, 0, m.AwaitingJobs())
	// a stopped manager is idle again
	require.NoError(t, m.PerformConcurrentJob(context.Background(), NewJob("search", func(context.Context) error { return nil }), WaitUntilReady))
}

func TestWaitPolicy_RoundTrip(t *testing.T) {
	for _, p := range []WaitPolicy{ForceImmediate, CancelIfNotReady, WaitUntilReady} {
		got, ok := ParseWaitPolicy(p.String())
		require.True(t, ok)
		assert.Equal(t, p, got)
	}
	_, ok := ParseWaitPolicy("sometimes")
	assert.False(t, ok)
}
