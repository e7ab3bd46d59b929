package middleware

import (
	"net/http"

	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
)

// writeError answers with err and logs a response that could not be written.
func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, middleware string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response",
			"middleware", middleware,
			"request_id", logger.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", writeErr,
		)
	}
}
