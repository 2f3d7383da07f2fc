// Package clientip resolves the address of the browser behind the gateway.
//
// The gateway usually runs behind a load balancer, so RemoteAddr is the
// balancer. FromHeaders consults forwarding headers in a fixed order and
// falls back to RemoteAddr. Middleware stores the result in the request
// context, where the rate limiter keys on it and LoggerExtractor adds it to
// log records.
package clientip
