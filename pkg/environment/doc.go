// Package environment carries the application environment (development,
// staging, production) through context.Context and decides environment
// dependent defaults such as the Secure cookie flag.
//
//	env := environment.Parse(cfg.Env)
//	handler = environment.Middleware(env)(handler)
//	guard := csrf.New(csrf.WithSecure(env.SecureCookies()))
package environment
