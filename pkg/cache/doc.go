// Package cache provides an in-memory LRU cache with per-entry expiry.
//
// The SSR bridge keeps resolved users here for a few seconds so a burst of
// requests from one browser costs a single identity lookup:
//
//	users := cache.NewLRU[string, *identity.User](1024, 10*time.Second)
//	users.Put(key, user)
//	if u, ok := users.Get(key); ok {
//		// fresh hit
//	}
//
// Capacity bounds memory; ttl bounds staleness. Both Get and Put promote the
// entry to most recently used.
package cache
