// Package session maintains reusable authenticated browsing sessions, one
// per logical category, so that expensive login flows run once instead of
// per request.
//
// The pool guarantees at most one live session per category and at most one
// login flow in flight per category: concurrent Authenticate calls for a
// category that needs (re)authentication all share a single singleflight
// operation. Each session is a resty client with its own cookie jar, the
// authenticated context that Navigate reuses.
//
//	pool, err := session.NewPool(session.DefaultConfig(session.Credentials{
//		Username: "bot",
//		Password: "secret",
//	}))
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	sess, err := pool.Authenticate(ctx, "profiles", "https://records.example.com/members")
//	if err != nil {
//		// ErrAuthFailed: nothing to fetch for this category
//	}
//
//	page, err := pool.Navigate(ctx, sess, profileURL, "#member-record")
//	if err != nil {
//		// *NavigationError: retryable, hand it to the batch executor's policy
//	}
//
// Authentication failures are surfaced once and not retried here.
// Navigation failures (timeout, bad status, redirect back to login, wait
// condition absent) are ordinary retryable errors for whatever worker
// function wraps Navigate.
package session
