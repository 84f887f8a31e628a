package batch

import (
	"context"
	"time"
)

// ProfileOptions returns the executor configuration tuned for profile
// fetches: a narrower window and a longer inter-batch pause than the
// generic defaults, since profile pages are the heaviest render.
func ProfileOptions[I, R any]() Options[I, R] {
	return Options[I, R]{
		MaxConcurrency:      2,
		BatchSize:           5,
		DelayBetweenBatches: 2 * time.Second,
		RetryAttempts:       2,
		RetryDelay:          1 * time.Second,
	}
}

// RaceOptions returns the executor configuration tuned for race fetches.
func RaceOptions[I, R any]() Options[I, R] {
	return Options[I, R]{
		MaxConcurrency:      2,
		BatchSize:           3,
		DelayBetweenBatches: 3 * time.Second,
		RetryAttempts:       2,
		RetryDelay:          1 * time.Second,
	}
}

// ProcessProfiles runs worker over items with ProfileOptions.
func ProcessProfiles[I, R any](ctx context.Context, items []I, worker Worker[I, R]) Result[I, R] {
	return Run(ctx, items, worker, ProfileOptions[I, R]())
}

// ProcessRaces runs worker over items with RaceOptions.
func ProcessRaces[I, R any](ctx context.Context, items []I, worker Worker[I, R]) Result[I, R] {
	return Run(ctx, items, worker, RaceOptions[I, R]())
}
