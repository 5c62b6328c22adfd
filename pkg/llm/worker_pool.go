package llm

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// WorkerPoolConfig configures the model worker pool.
type WorkerPoolConfig struct {
	MaxConcurrent  int // Maximum in-flight model calls across all callers (default: 8)
	CircuitBreaker CircuitBreakerConfig
}

// DefaultWorkerPoolConfig returns sensible defaults.
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MaxConcurrent:  8,
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// WorkerPool bounds the number of concurrent model calls for the whole
// process. Every embedding, scoring and generation call acquires a slot from
// one shared semaphore, so concurrent requests queue instead of overrunning
// the provider.
type WorkerPool struct {
	sem     chan struct{}
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewWorkerPool creates a new model worker pool.
func NewWorkerPool(config WorkerPoolConfig, logger *zap.Logger) *WorkerPool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 8
	}
	pool := &WorkerPool{
		sem:    make(chan struct{}, config.MaxConcurrent),
		logger: logger.Named("llm-worker-pool"),
	}
	if config.CircuitBreaker.Threshold > 0 {
		pool.breaker = NewCircuitBreaker(config.CircuitBreaker)
	}
	return pool
}

// Capacity returns the maximum number of concurrent calls.
func (p *WorkerPool) Capacity() int {
	return cap(p.sem)
}

// Do runs fn once a slot is free. Provider-side failures feed the circuit
// breaker; while it is open, Do fails without calling fn.
func Do[T any](ctx context.Context, pool *WorkerPool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	select {
	case pool.sem <- struct{}{}:
		defer func() { <-pool.sem }()
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if pool.breaker != nil {
		if err := pool.breaker.Allow(); err != nil {
			return zero, NewError(ErrorTypeEndpoint, "model provider unavailable", false, err)
		}
	}

	result, err := fn(ctx)

	if pool.breaker != nil {
		if err != nil && IsRetryable(err) {
			pool.breaker.RecordFailure()
			if pool.breaker.State() == CircuitOpen {
				pool.logger.Warn("Model circuit breaker open",
					zap.Int("consecutive_failures", pool.breaker.ConsecutiveFailures()),
					zap.Error(err))
			}
		} else {
			// Any answer from the provider, even a rejection, shows it is reachable.
			pool.breaker.RecordSuccess()
		}
	}

	return result, err
}

// WorkItem represents a unit of work to be processed.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult represents the result of a work item.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items through the pool. Results come back in
// completion order. Every item runs even if some fail.
func Process[T any](
	ctx context.Context,
	pool *WorkerPool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], 0, len(items))
	resultsChan := make(chan WorkResult[T], len(items))

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item WorkItem[T]) {
			defer wg.Done()
			result, err := Do(ctx, pool, item.Execute)
			resultsChan <- WorkResult[T]{ID: item.ID, Result: result, Err: err}
		}(item)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	completed := 0
	for result := range resultsChan {
		results = append(results, result)
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}

	return results
}
