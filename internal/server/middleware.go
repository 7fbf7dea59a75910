package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/go-chi/chi/v5/middleware"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// requireJSON rejects request bodies that are not application/json.
func requireJSON(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctype, err := contenttype.GetMediaType(r)
			if err != nil || !ctype.Matches(jsonMediaType) {
				logger.WarnContext(r.Context(), "unsupported content type",
					"request_id", RequestID(r.Context()),
					"content_type", r.Header.Get("Content-Type"),
				)
				writeError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.InfoContext(r.Context(), "request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
