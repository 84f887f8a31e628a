package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fastOptions keeps unit tests quick.
func fastOptions[I, R any]() Options[I, R] {
	return Options[I, R]{
		MaxConcurrency:      2,
		BatchSize:           2,
		DelayBetweenBatches: time.Millisecond,
		RetryAttempts:       2,
		RetryDelay:          time.Millisecond,
	}
}

func TestRun_AllSuccess_IndexAligned(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}
	worker := func(ctx context.Context, item int) (int, error) {
		time.Sleep(5 * time.Millisecond)
		return item * 2, nil
	}

	result := Run(context.Background(), items, worker, fastOptions[int, int]())

	if len(result.Results) != len(items) {
		t.Fatalf("len(Results) = %d, want %d", len(result.Results), len(items))
	}
	if len(result.Errors) != 0 {
		t.Fatalf("Errors = %v, want none", result.Errors)
	}
	for i, item := range items {
		if result.Results[i] == nil {
			t.Fatalf("Results[%d] unset for an all-success run", i)
		}
		if *result.Results[i] != item*2 {
			t.Errorf("Results[%d] = %d, want %d", i, *result.Results[i], item*2)
		}
	}
}

func TestRun_SingleAlwaysFailingItem(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	failing := errors.New("record page broken")
	worker := func(ctx context.Context, item int) (int, error) {
		if item == 3 {
			return 0, failing
		}
		return item, nil
	}

	result := Run(context.Background(), items, worker, fastOptions[int, int]())

	if len(result.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want exactly 1", len(result.Errors))
	}
	itemErr := result.Errors[0]
	if itemErr.Index != 2 || itemErr.Item != 3 {
		t.Errorf("ItemError = {Item:%d Index:%d}, want {Item:3 Index:2}", itemErr.Item, itemErr.Index)
	}
	if !errors.Is(itemErr.Err, failing) {
		t.Errorf("ItemError.Err = %v, want the worker error", itemErr.Err)
	}

	if !result.Failed(2) {
		t.Error("Results slot for the failing item should be unset")
	}
	for i, item := range items {
		if item == 3 {
			continue
		}
		if result.Results[i] == nil || *result.Results[i] != item {
			t.Errorf("Results[%d] = %v, want %d", i, result.Results[i], item)
		}
	}
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	var attempts atomic.Int32
	worker := func(ctx context.Context, item string) (string, error) {
		if attempts.Add(1) < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}

	result := Run(context.Background(), []string{"only"}, worker, fastOptions[string, string]())

	if len(result.Errors) != 0 {
		t.Fatalf("Errors = %v, want success after retries", result.Errors)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (initial + 2 retries)", got)
	}
}

func TestRun_RetryAttemptsExhausted(t *testing.T) {
	var attempts atomic.Int32
	worker := func(ctx context.Context, item string) (string, error) {
		attempts.Add(1)
		return "", errors.New("permanent")
	}

	opts := fastOptions[string, string]()
	opts.RetryAttempts = 2

	result := Run(context.Background(), []string{"only"}, worker, opts)

	if len(result.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(result.Errors))
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (initial + RetryAttempts)", got)
	}
}

func TestRun_OnProgress_MonotonicallyIncreasing(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	var mu sync.Mutex
	var counts []int

	opts := fastOptions[int, int]()
	opts.OnProgress = func(done, total int, result *int) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, done)
		if total != len(items) {
			t.Errorf("OnProgress total = %d, want %d", total, len(items))
		}
		if result == nil {
			t.Error("OnProgress result = nil for a successful item")
		}
	}

	worker := func(ctx context.Context, item int) (int, error) {
		return item, nil
	}
	Run(context.Background(), items, worker, opts)

	if len(counts) != len(items) {
		t.Fatalf("OnProgress fired %d times, want %d", len(counts), len(items))
	}
	for i, count := range counts {
		if count != i+1 {
			t.Fatalf("OnProgress counts = %v, want strictly increasing 1..%d", counts, len(items))
		}
	}
}

func TestRun_OnError_FiresPerFailedItem(t *testing.T) {
	var mu sync.Mutex
	var failedIndexes []int

	opts := fastOptions[int, int]()
	opts.RetryAttempts = 0
	opts.OnError = func(err error, item int, index int) {
		mu.Lock()
		defer mu.Unlock()
		failedIndexes = append(failedIndexes, index)
	}

	worker := func(ctx context.Context, item int) (int, error) {
		if item%2 == 0 {
			return 0, errors.New("even items fail")
		}
		return item, nil
	}
	result := Run(context.Background(), []int{1, 2, 3, 4}, worker, opts)

	if len(failedIndexes) != 2 {
		t.Fatalf("OnError fired for indexes %v, want 2 failures", failedIndexes)
	}
	if len(result.Errors) != 2 {
		t.Errorf("len(Errors) = %d, want 2", len(result.Errors))
	}
}

func TestRun_BatchBoundariesAndDelay(t *testing.T) {
	// Five items with BatchSize 2 form batches [1,2],[3,4],[5]; the two
	// inter-batch pauses dominate wall-clock time.
	const delay = 100 * time.Millisecond

	opts := Options[int, int]{
		MaxConcurrency:      2,
		BatchSize:           2,
		DelayBetweenBatches: delay,
		RetryAttempts:       0,
		RetryDelay:          time.Millisecond,
	}

	worker := func(ctx context.Context, item int) (int, error) {
		time.Sleep(10 * time.Millisecond)
		return item * 100, nil
	}

	start := time.Now()
	result := Run(context.Background(), []int{1, 2, 3, 4, 5}, worker, opts)
	elapsed := time.Since(start)

	if elapsed < 2*delay {
		t.Errorf("elapsed = %v, want >= %v (two inter-batch delays)", elapsed, 2*delay)
	}
	for i, item := range []int{1, 2, 3, 4, 5} {
		if result.Results[i] == nil || *result.Results[i] != item*100 {
			t.Errorf("Results[%d] = %v, want %d", i, result.Results[i], item*100)
		}
	}
}

func TestRun_ConcurrencyBounded(t *testing.T) {
	var inFlight, peak atomic.Int32

	opts := Options[int, int]{
		MaxConcurrency:      3,
		BatchSize:           20,
		DelayBetweenBatches: time.Millisecond,
	}

	worker := func(ctx context.Context, item int) (int, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			observed := peak.Load()
			if current <= observed || peak.CompareAndSwap(observed, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return item, nil
	}

	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}
	Run(context.Background(), items, worker, opts)

	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want <= MaxConcurrency 3", got)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int32
	worker := func(ctx context.Context, item int) (int, error) {
		if started.Add(1) == 1 {
			cancel()
		}
		time.Sleep(10 * time.Millisecond)
		return item, nil
	}

	opts := Options[int, int]{
		MaxConcurrency:      1,
		BatchSize:           2,
		DelayBetweenBatches: time.Millisecond,
	}
	result := Run(ctx, []int{1, 2, 3, 4, 5, 6}, worker, opts)

	if len(result.Errors) == 0 {
		t.Fatal("expected abort errors for unstarted items")
	}
	for _, itemErr := range result.Errors {
		if !errors.Is(itemErr.Err, ErrRunAborted) {
			t.Errorf("Errors[%d].Err = %v, want ErrRunAborted", itemErr.Index, itemErr.Err)
		}
	}
	// Every item is accounted for exactly once.
	accounted := int(0)
	for i := range result.Results {
		if result.Results[i] != nil {
			accounted++
		}
	}
	if accounted+len(result.Errors) != 6 {
		t.Errorf("accounted %d results + %d errors, want all 6 items", accounted, len(result.Errors))
	}
}

func TestRun_EmptyItems(t *testing.T) {
	worker := func(ctx context.Context, item int) (int, error) {
		t.Error("worker called for empty input")
		return 0, nil
	}

	result := Run(context.Background(), nil, worker, fastOptions[int, int]())
	if len(result.Results) != 0 || len(result.Errors) != 0 {
		t.Errorf("Run(nil) = %+v, want empty result", result)
	}
}

func TestItemError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	itemErr := &ItemError[string]{Item: "x", Index: 4, Err: cause}

	if !errors.Is(itemErr, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	want := fmt.Sprintf("item %d: %v", 4, cause)
	if itemErr.Error() != want {
		t.Errorf("Error() = %q, want %q", itemErr.Error(), want)
	}
}

func TestProcessProfiles_UsesPresetDefaults(t *testing.T) {
	opts := ProfileOptions[string, string]()
	if opts.MaxConcurrency >= DefaultOptions[string, string]().MaxConcurrency {
		t.Error("profile preset should be narrower than the generic default")
	}
	if opts.DelayBetweenBatches <= DefaultOptions[string, string]().DelayBetweenBatches {
		t.Error("profile preset should pause longer between batches")
	}

	worker := func(ctx context.Context, item string) (string, error) {
		return "fetched:" + item, nil
	}
	result := ProcessProfiles(context.Background(), []string{"a", "b"}, worker)
	if len(result.Errors) != 0 || *result.Results[0] != "fetched:a" {
		t.Errorf("ProcessProfiles result = %+v", result)
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	opts := Options[int, int]{}.withDefaults()
	defaults := DefaultOptions[int, int]()

	if opts.MaxConcurrency != defaults.MaxConcurrency {
		t.Errorf("MaxConcurrency = %d, want default %d", opts.MaxConcurrency, defaults.MaxConcurrency)
	}
	if opts.BatchSize != defaults.BatchSize {
		t.Errorf("BatchSize = %d, want default %d", opts.BatchSize, defaults.BatchSize)
	}
	if opts.RetryDelay != defaults.RetryDelay {
		t.Errorf("RetryDelay = %v, want default %v", opts.RetryDelay, defaults.RetryDelay)
	}
}
