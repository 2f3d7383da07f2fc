// Package bridge connects server-rendered pages to the identity service
// session of the browser they are rendered for.
//
// The identity service keeps its session in HttpOnly cookies, so a server
// rendering for a browser has to act as that browser: it forwards the
// browser's Cookie header, echoes the CSRF token on state-changing calls and
// hands any cookies the service sets back to the browser.
//
// Middleware does this once per request. It issues the CSRF token cookie when
// missing and, when an access token cookie is present, resolves the signed-in
// user through the identity client's EnsureSession. The result is kept in a
// short-lived UserCache keyed by a hash of the access token.
//
//	b := bridge.NewFromConfig(cfg, transport.NewFromConfig(identityCfg))
//	r.Use(b.Middleware)
//	r.With(b.RequireAuth).Get("/dashboard", dashboard)
//	r.With(b.RedirectAuthenticated).Get("/login", loginPage)
//	r.Post("/logout", b.LogoutHandler().ServeHTTP)
//
// Handlers read the user with UserFromContext. Outbound calls made while
// rendering go through Client(r) or ForwardingTransport so they carry the
// browser's credentials to the site's own origin and the identity service,
// and nowhere else.
//
// MemoryUserCache keeps users in process; RedisUserCache shares them across
// replicas.
package bridge
