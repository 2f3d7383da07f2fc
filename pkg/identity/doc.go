// Package identity is the client for the remote identity service: email
// login and signup, logout, current user, token refresh and the OAuth code
// exchange.
//
// The client holds no session state. Credentials ride on the transport it
// sends through, either a cookie jar or a forwarded Cookie header.
// EnsureSession is the single probe for "is there a valid session": it asks
// for the current user and, when that fails, refreshes the access token once
// and asks again. Login and HandleCallback finish with it instead of trusting
// their own response bodies.
//
// Failures follow three rules. Transport failures surface as
// *transport.RequestError. A 2xx response with "success": false surfaces as
// *AuthError carrying the server's message. An absent session is not an
// error: CurrentUser and EnsureSession return nil.
package identity
