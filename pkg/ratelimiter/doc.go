// Package ratelimiter throttles requests with a token bucket per key.
//
// The gateway puts it in front of the identity service's sign-in and
// registration endpoints, keyed by client address, so password guessing
// through the gateway is slowed down before it reaches the service.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//	bucket, err := ratelimiter.NewBucket(store, cfg)
//	if err != nil {
//		return err
//	}
//	r.With(ratelimiter.Middleware(bucket, ratelimiter.ByClientIP, log)).Post("/oauth/email/login", proxy)
package ratelimiter
