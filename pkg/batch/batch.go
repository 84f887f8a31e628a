// Package batch provides a generic bounded-concurrency, batched, retrying
// task runner for expensive remote fetches.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ballotline/scraper-core/pkg/logging"
)

// ErrRunAborted wraps the context error recorded for items that were never
// started because the caller's context ended mid-run.
var ErrRunAborted = errors.New("run aborted")

// Worker is the caller-supplied unit of work for one item.
type Worker[I, R any] func(ctx context.Context, item I) (R, error)

// Options holds executor configuration for one run.
type Options[I, R any] struct {
	// MaxConcurrency is the sliding-window width inside a batch: as soon as
	// one in-flight call settles, the next queued item starts.
	MaxConcurrency int

	// BatchSize is the number of items per sequential batch.
	BatchSize int

	// DelayBetweenBatches is the back-pressure pause before the next batch.
	DelayBetweenBatches time.Duration

	// RetryAttempts is the number of additional attempts after an initial
	// failure.
	RetryAttempts int

	// RetryDelay is the base pre-retry delay; the wait before retry n is
	// RetryDelay * n.
	RetryDelay time.Duration

	// OnProgress fires once per item reaching a terminal state (success or
	// exhausted retries) with a monotonically increasing 1-based count.
	// Result is nil for failed items. Optional.
	OnProgress func(done, total int, result *R)

	// OnError fires once per item that exhausted its retries. Optional.
	OnError func(err error, item I, index int)
}

// DefaultOptions returns safe defaults for a moderately rate-limited target.
func DefaultOptions[I, R any]() Options[I, R] {
	return Options[I, R]{
		MaxConcurrency:      5,
		BatchSize:           10,
		DelayBetweenBatches: 1 * time.Second,
		RetryAttempts:       2,
		RetryDelay:          500 * time.Millisecond,
	}
}

// ItemError records one item that exhausted its retries.
type ItemError[I any] struct {
	Item  I
	Index int
	Err   error
}

// Error implements the error interface.
func (e *ItemError[I]) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ItemError[I]) Unwrap() error {
	return e.Err
}

// Result holds the outcome of one executor run. Results is index-aligned to
// the input order regardless of completion order; Results[i] is nil exactly
// when item i failed and appears in Errors.
type Result[I, R any] struct {
	Results []*R
	Errors  []ItemError[I]
}

// Failed reports whether item i reached a terminal failure.
func (r Result[I, R]) Failed(i int) bool {
	return r.Results[i] == nil
}

// Run partitions items into sequential batches of BatchSize and executes up
// to MaxConcurrency worker invocations concurrently within each batch. Items
// that fail are retried per the options; items that exhaust their retries
// are recorded in Errors without aborting the run. Between batches the run
// pauses for DelayBetweenBatches.
//
// When ctx ends, no further items are started: items already in flight run
// to their own completion, and unstarted items are recorded in Errors with
// an ErrRunAborted-wrapped cause.
func Run[I, R any](ctx context.Context, items []I, worker Worker[I, R], opts Options[I, R]) Result[I, R] {
	opts = opts.withDefaults()
	logger := logging.NewLogger("batch")

	total := len(items)
	result := Result[I, R]{Results: make([]*R, total)}
	if total == 0 {
		return result
	}

	batchRunsTotal.Inc()
	start := time.Now()
	defer func() {
		batchRunDuration.Observe(time.Since(start).Seconds())
	}()

	// Guards result.Errors and the progress counter.
	var mu sync.Mutex
	done := 0

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))

	for batchStart := 0; batchStart < total; batchStart += opts.BatchSize {
		batchEnd := batchStart + opts.BatchSize
		if batchEnd > total {
			batchEnd = total
		}

		logger.Debug().
			Int("batch_start", batchStart).
			Int("batch_end", batchEnd).
			Int("total", total).
			Msg("Starting batch")

		var wg sync.WaitGroup
		aborted := false
		for i := batchStart; i < batchEnd; i++ {
			// The acquire blocks until a window slot frees, giving the
			// sliding window. It fails only when ctx has ended.
			if err := sem.Acquire(ctx, 1); err != nil {
				abortRemaining(&result, items, i, err, &mu)
				aborted = true
				break
			}

			wg.Add(1)
			go func(index int, item I) {
				defer wg.Done()
				defer sem.Release(1)

				value, err := runItem(ctx, item, index, worker, opts, logger)

				mu.Lock()
				defer mu.Unlock()

				if err != nil {
					batchItemsTotal.WithLabelValues("failed").Inc()
					result.Errors = append(result.Errors, ItemError[I]{Item: item, Index: index, Err: err})
					if opts.OnError != nil {
						opts.OnError(err, item, index)
					}
				} else {
					batchItemsTotal.WithLabelValues("ok").Inc()
					result.Results[index] = value
				}

				done++
				if opts.OnProgress != nil {
					opts.OnProgress(done, total, result.Results[index])
				}
			}(i, items[i])
		}

		wg.Wait()

		if aborted {
			// Everything from the first unstarted item on was already
			// recorded; in-flight work has settled.
			logger.Warn().Err(ctx.Err()).Int("done", done).Int("total", total).
				Msg("Run aborted by context")
			return result
		}

		if batchEnd < total {
			select {
			case <-ctx.Done():
				abortRemaining(&result, items, batchEnd, ctx.Err(), &mu)
				logger.Warn().Err(ctx.Err()).Int("done", done).Int("total", total).
					Msg("Run aborted by context between batches")
				return result
			case <-time.After(opts.DelayBetweenBatches):
			}
		}
	}

	logger.Info().
		Int("total", total).
		Int("failed", len(result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Run complete")

	return result
}

// runItem executes the worker for one item with linear-backoff retries.
func runItem[I, R any](
	ctx context.Context,
	item I,
	index int,
	worker Worker[I, R],
	opts Options[I, R],
	logger zerolog.Logger,
) (*R, error) {
	var lastErr error

	for attempt := 0; attempt <= opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			batchRetriesTotal.Inc()
			delay := opts.RetryDelay * time.Duration(attempt)

			logger.Debug().
				Int("index", index).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying item after backoff")

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrRunAborted, ctx.Err())
			case <-time.After(delay):
			}
		}

		value, err := worker(ctx, item)
		if err == nil {
			return &value, nil
		}
		lastErr = err

		logger.Warn().
			Err(err).
			Int("index", index).
			Int("attempt", attempt).
			Msg("Item attempt failed")
	}

	return nil, lastErr
}

// abortRemaining records a terminal abort error for every item from index on.
func abortRemaining[I, R any](result *Result[I, R], items []I, from int, cause error, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()

	for i := from; i < len(items); i++ {
		batchItemsTotal.WithLabelValues("aborted").Inc()
		result.Errors = append(result.Errors, ItemError[I]{
			Item:  items[i],
			Index: i,
			Err:   fmt.Errorf("%w: %v", ErrRunAborted, cause),
		})
	}
}

func (o Options[I, R]) withDefaults() Options[I, R] {
	defaults := DefaultOptions[I, R]()
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = defaults.MaxConcurrency
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaults.BatchSize
	}
	if o.DelayBetweenBatches < 0 {
		o.DelayBetweenBatches = defaults.DelayBetweenBatches
	}
	if o.RetryAttempts < 0 {
		o.RetryAttempts = defaults.RetryAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaults.RetryDelay
	}
	return o
}
