package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProcess_Success(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	items := []WorkItem[string]{
		{ID: "task1", Execute: func(ctx context.Context) (string, error) { return "result1", nil }},
		{ID: "task2", Execute: func(ctx context.Context) (string, error) { return "result2", nil }},
		{ID: "task3", Execute: func(ctx context.Context) (string, error) { return "result3", nil }},
	}

	var progress []int
	results := Process(context.Background(), pool, items, func(completed, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, completed)
	})

	require.Len(t, results, 3)
	byID := make(map[string]string)
	for _, r := range results {
		require.NoError(t, r.Err)
		byID[r.ID] = r.Result
	}
	assert.Equal(t, map[string]string{"task1": "result1", "task2": "result2", "task3": "result3"}, byID)
	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestProcess_ContinuesPastErrors(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())
	boom := errors.New("task failed")

	items := []WorkItem[int]{
		{ID: "ok", Execute: func(ctx context.Context) (int, error) { return 1, nil }},
		{ID: "bad", Execute: func(ctx context.Context) (int, error) { return 0, boom }},
	}

	results := Process(context.Background(), pool, items, nil)
	require.Len(t, results, 2)
	for _, r := range results {
		if r.ID == "bad" {
			assert.ErrorIs(t, r.Err, boom)
		} else {
			assert.NoError(t, r.Err)
		}
	}
}

func TestProcess_Empty(t *testing.T) {
	pool := NewWorkerPool(DefaultWorkerPoolConfig(), zap.NewNop())
	assert.Nil(t, Process[int](context.Background(), pool, nil, nil))
}

func TestDo_BoundsConcurrencyAcrossCallers(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 2}, zap.NewNop())

	var inFlight, peak int32
	work := func(ctx context.Context) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Do(context.Background(), pool, work)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Equal(t, 2, pool.Capacity())
}

func TestDo_CancelledWhileWaiting(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: 1}, zap.NewNop())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = Do(context.Background(), pool, func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 0, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Do(ctx, pool, func(ctx context.Context) (int, error) {
		called = true
		return 0, nil
	})
	close(release)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_CircuitBreakerOpensOnProviderFailures(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{
		MaxConcurrent:  1,
		CircuitBreaker: CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour},
	}, zap.NewNop())

	calls := 0
	failing := func(ctx context.Context) (string, error) {
		calls++
		return "", NewError(ErrorTypeEndpoint, "server error", true, fmt.Errorf("status code: 503"))
	}

	for i := 0; i < 2; i++ {
		_, err := Do(context.Background(), pool, failing)
		require.Error(t, err)
	}
	require.Equal(t, 2, calls)

	_, err := Do(context.Background(), pool, failing)
	require.Error(t, err)
	assert.Equal(t, 2, calls, "open circuit must not call the provider")
	assert.Equal(t, ErrorTypeEndpoint, GetErrorType(err))
	assert.Contains(t, err.Error(), "circuit breaker open")
}

func TestDo_NonRetryableErrorsDoNotTrip(t *testing.T) {
	pool := NewWorkerPool(WorkerPoolConfig{
		MaxConcurrent:  1,
		CircuitBreaker: CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Hour},
	}, zap.NewNop())

	authErr := NewError(ErrorTypeAuth, "authentication failed", false, nil)
	for i := 0; i < 3; i++ {
		_, err := Do(context.Background(), pool, func(ctx context.Context) (int, error) { return 0, authErr })
		assert.ErrorIs(t, err, authErr)
	}
	assert.Equal(t, CircuitClosed, pool.breaker.State())
}
