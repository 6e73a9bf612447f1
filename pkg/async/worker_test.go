package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/pkg/logger"
)

func newTestWorker(t *testing.T, queueSize int) (*Worker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	w := NewWorker(queueSize, rdb, logger.NewNop())
	w.SetBackoff(time.Millisecond)
	return w, mr
}

func TestWorkerRunsTasks(t *testing.T) {
	w, _ := newTestWorker(t, 10)
	w.Start(2)

	var count int32
	var ids []string
	for i := 0; i < 5; i++ {
		id, err := w.AddTask("count", func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	w.Stop()

	assert.Equal(t, int32(5), atomic.LoadInt32(&count))
	for _, id := range ids {
		res, ok, err := w.GetResult(context.Background(), id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, res.Completed)
		assert.Equal(t, 1, res.Attempts)
	}
}

func TestWorkerRetriesFailingTask(t *testing.T) {
	w, _ := newTestWorker(t, 1)
	w.Start(1)

	var calls int32
	id, err := w.AddTask("flaky", func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 2 {
			return errors.New("temporary")
		}
		return nil
	})
	require.NoError(t, err)
	w.Stop()

	res, ok, err := w.GetResult(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, res.Completed)
	assert.Equal(t, 2, res.Attempts)
}

func TestWorkerRecordsFinalFailure(t *testing.T) {
	w, _ := newTestWorker(t, 1)
	w.Start(1)

	id, err := w.AddTask("broken", func(ctx context.Context) error {
		return errors.New("permanent")
	})
	require.NoError(t, err)
	w.Stop()

	res, ok, err := w.GetResult(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, res.Completed)
	assert.Equal(t, "permanent", res.Error)
	assert.Equal(t, 3, res.Attempts)
}

func TestWorkerResultsExpire(t *testing.T) {
	w, mr := newTestWorker(t, 1)
	w.SetResultTTL(time.Minute)
	w.Start(1)

	id, err := w.AddTask("mail", func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	w.Stop()

	assert.Equal(t, time.Minute, mr.TTL(resultKeyPrefix+id))
	mr.FastForward(2 * time.Minute)

	_, ok, err := w.GetResult(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorkerFullQueueDoesNotBlock(t *testing.T) {
	w, _ := newTestWorker(t, 1)
	w.Start(1)

	started := make(chan struct{})
	release := make(chan struct{})
	_, err := w.AddTask("slow", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	require.NoError(t, err)
	<-started

	_, err = w.AddTask("queued", func(ctx context.Context) error { return nil })
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := w.AddTask("overflow", func(ctx context.Context) error { return nil })
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(2 * time.Second):
		t.Fatal("AddTask blocked on a full queue")
	}

	close(release)
	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the queue drained")
	}
}

func TestWorkerRejectsAfterStop(t *testing.T) {
	w, _ := newTestWorker(t, 1)
	w.Start(1)
	w.Stop()
	w.Stop()

	_, err := w.AddTask("late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrWorkerStopped)
}
