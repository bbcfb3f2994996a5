// Package httpmiddleware provides composable net/http middleware for the
// checkout API: panic recovery, request IDs, CORS, rate limiting, logging,
// and OpenTelemetry instrumentation.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Wrap applies the middlewares to h in order: the first middleware is the
// outermost one, seeing the request first.
func Wrap(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
