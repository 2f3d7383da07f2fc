// Package cookie handles the cookie plumbing shared by the CSRF guard, the
// credential transport and the SSR bridge.
//
// Manager issues and reads cookies on the server side with shared default
// attributes. The package-level helpers work on Cookie header values, which is
// how credentials travel when a server forwards a browser's cookies to the
// identity service:
//
//   - Header builds the Cookie header from an inbound request.
//   - Value looks up one cookie inside a header value.
//   - Merge applies Set-Cookie updates (for example a refreshed access token)
//     to a header value, so the next outbound call carries the new cookie.
//
// Browsers own the cookie jar. Nothing here persists cookies beyond the value
// handed in by the caller.
package cookie
