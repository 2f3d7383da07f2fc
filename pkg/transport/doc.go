// Package transport sends requests to the identity service with the caller's
// credentials attached and turns responses into one of two outcomes: a
// *Response carrying the raw JSON body, or a *RequestError carrying a
// human-readable message and the HTTP status.
//
// Credentials travel one of two ways. A process-local client owns a cookie
// jar (WithCookieJar) and the http.Client replays it. A server acting for a
// browser forwards that browser's Cookie header (WithCookieHeader); cookies
// the identity service sets in reply are merged back into the header so a
// follow-up call, such as the retry after a token refresh, sees them, and are
// handed to a CookieSink so they can be relayed to the browser.
//
// Every method other than GET and HEAD carries the CSRF token in the
// X-CSRF-Token header unless the caller already set one. The token comes from
// the configured TokenSource, else from the forwarded cookies, else from the
// jar.
//
// Failure messages prefer the server's "error" field, then "message". With
// neither, 409 reads "An account with this email already exists. Please sign
// in instead.", 401 reads "Unauthorized" and anything else reads
// "HTTP <status>: <status text>". Network failures carry status 0.
package transport
