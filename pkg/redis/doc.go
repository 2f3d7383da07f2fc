// Package redis wires go-redis into sessionkit.
//
// Connect parses REDIS_URL and retries the initial ping so a gateway can boot
// before Redis is ready. Healthcheck turns a client into a readiness probe.
// Store is a small typed key-value layer that JSON-encodes values under a key
// prefix with a TTL; the SSR bridge keeps resolved users in it when several
// gateway replicas share one cache.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	users := redis.NewStore[identity.User](client, cfg.KeyPrefix+":user")
//	err = users.Set(ctx, key, user, 10*time.Second)
package redis
