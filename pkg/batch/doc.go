// Package batch provides parallel batched execution of expensive per-item
// fetches against a rate-limited remote target.
//
// A run partitions its items into sequential batches. Within a batch a
// sliding window of at most MaxConcurrency worker calls is kept in flight;
// as soon as one settles the next queued item starts. Failed items are
// retried with a linearly growing delay, and items that exhaust their
// retries are collected without aborting the rest of the run. Between
// batches the executor pauses deliberately, as back-pressure toward the
// remote target.
//
//	result := batch.Run(ctx, ids, fetchProfile, batch.Options[string, Profile]{
//		MaxConcurrency:      2,
//		BatchSize:           5,
//		DelayBetweenBatches: 2 * time.Second,
//		RetryAttempts:       2,
//		RetryDelay:          time.Second,
//	})
//	for _, itemErr := range result.Errors {
//		// partial failure is the normal outcome
//	}
//
// Results are index-aligned to the input regardless of completion order.
// ProcessProfiles and ProcessRaces are the same algorithm preconfigured for
// the two record workloads.
package batch
