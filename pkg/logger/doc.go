// Package logger builds the slog.Logger used across sessionkit.
//
// New assembles a text or JSON handler from functional options and wraps it
// with LogHandlerDecorator, which runs registered ContextExtractor callbacks on
// every record. That is how request-scoped values such as the request ID
// (see requestid.LoggerExtractor) end up in log lines without being passed
// around explicitly.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "gateway"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// Helper constructors in attr.go (Error, UserID, Endpoint, Status, Phase,
// Generation, ...) keep attribute keys consistent between packages. Error and
// Status return an empty attribute for zero input, so they can be passed
// unconditionally.
//
// Library packages never log to the default logger on their own; they accept
// a *slog.Logger through a WithLogger option and fall back to Discard.
package logger
