package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stopScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestSchedulerCyclesNeverOverlap(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		maxSeen int
		runs    int
		starts  []time.Time
		ends    []time.Time
	)
	interval := 15 * time.Millisecond

	s := NewScheduler(zap.NewNop())
	s.RegisterJob("sync", interval, func(ctx context.Context) error {
		mu.Lock()
		running++
		runs++
		if running > maxSeen {
			maxSeen = running
		}
		starts = append(starts, time.Now())
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)

		mu.Lock()
		running--
		ends = append(ends, time.Now())
		mu.Unlock()
		return nil
	})
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs >= 3
	}, 2*time.Second, 5*time.Millisecond)
	stopScheduler(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxSeen)
	for i := 1; i < len(starts) && i-1 < len(ends); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(ends[i-1]), interval, "cycle %d started before idle delay elapsed", i)
	}
}

func TestSchedulerKeepsLoopingAfterFailure(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(zap.NewNop())
	s.RegisterJob("failing", time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("all endpoints failed")
	})
	s.Start(context.Background())

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	stopScheduler(t, s)
}

func TestSchedulerStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool

	s := NewScheduler(zap.NewNop())
	s.RegisterJob("blocking", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	s.Start(context.Background())
	<-started

	stopScheduler(t, s)
	assert.True(t, cancelled.Load())
}

func TestSchedulerWithTimeout(t *testing.T) {
	var hasDeadline, noDeadline atomic.Bool
	s := NewScheduler(zap.NewNop())
	s.RegisterJob("bounded", time.Hour, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hasDeadline.Store(ok)
		return nil
	}, WithTimeout(time.Second))
	s.RegisterJob("unbounded", time.Hour, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		noDeadline.Store(!ok)
		return nil
	})
	s.Start(context.Background())

	require.Eventually(t, func() bool { return hasDeadline.Load() && noDeadline.Load() }, time.Second, time.Millisecond)
	stopScheduler(t, s)
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(zap.NewNop())
	s.RegisterJob("hourly", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Start(context.Background())
	s.Start(context.Background())

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)
	stopScheduler(t, s)
	stopScheduler(t, s)
	assert.Equal(t, int32(1), runs.Load())
}
