// Package httpserver runs the gateway's HTTP server with graceful shutdown
// and health probes.
//
// Run binds the listener first, so a bad address fails immediately, then
// serves until the context ends or the process receives SIGINT or SIGTERM.
// In-flight requests get the shutdown timeout to finish.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	r.Get("/livez", httpserver.LivenessHandler())
//	r.Get("/healthz", httpserver.ReadinessHandler(log, 2*time.Second,
//		httpserver.Check{Name: "redis", Func: redis.Healthcheck(client)},
//	))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Errors are wrapped with ErrStart and ErrShutdown for errors.Is.
package httpserver
