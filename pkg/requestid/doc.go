// Package requestid attaches a correlation ID to every inbound request and
// carries it onto outbound calls to the identity service.
//
// Middleware reuses a client-supplied "X-Request-ID" header when it is short
// and made of [A-Za-z0-9_-]; otherwise it generates a UUIDv4. The ID is
// stored in the request context and echoed in the response header.
//
// Propagate copies the ID from a context onto outbound request headers, and
// LoggerExtractor plugs it into the logger's context extractors:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	handler := requestid.Middleware(mux)
package requestid
