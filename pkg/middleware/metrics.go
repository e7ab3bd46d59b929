package middleware

import (
	"net/http"
	"regexp"
	"time"

	"hotelbook/pkg/metrics"
)

var objectIDSegment = regexp.MustCompile(`/[0-9a-fA-F]{24}(/|$)`)

// Metrics records request counts and latency per route. Object ids in the
// path collapse to ":id" to keep label cardinality bounded.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapWriter(w)

			next.ServeHTTP(wrapped, r)

			metrics.ObserveHTTP(RouteLabel(r.URL.Path), r.Method, wrapped.statusCode, time.Since(start))
		})
	}
}

func RouteLabel(path string) string {
	for {
		next := objectIDSegment.ReplaceAllString(path, "/:id$1")
		if next == path {
			return path
		}
		path = next
	}
}

// Chain applies middlewares so the first one listed is outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
