// Package csrf implements the double-submit token that every state-changing
// request to the identity service must carry.
//
// A token is a random UUIDv4 kept in the "csrf_token" cookie. The cookie is
// readable by scripts (HttpOnly=false), SameSite=Strict, lives for seven days
// and is Secure outside development. Clients echo it in the "X-CSRF-Token"
// header on every method except GET and HEAD; the server accepts the request
// only when both values are present and equal. Plain HTML forms that cannot
// set headers may post the token in a "csrf_token" field instead (see
// WithFormField).
//
// Server side:
//
//	guard := csrf.New(csrf.WithEnvironment(env))
//	r.Use(guard.Middleware) // issue once per browser
//	r.With(guard.Verify).Post("/settings", ...)
//
// Client side, JarSource and ContextSource satisfy the transport's token
// source so outbound calls pick the token up without the caller handling it.
package csrf
