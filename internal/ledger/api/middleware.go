package api

import (
	"context"
	"net/http"
	"time"

	"github.com/cicconee/cbledger/internal/platform/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type traceIDKey struct{}

// traceID reads X-Trace-Id, minting one when absent, and echoes it on the response.
func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderTraceID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderTraceID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), traceIDKey{}, id)))
	})
}

func traceIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(traceIDKey{}).(string)
	return id
}

func requestLogger(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"trace_id", traceIDFrom(r),
			)
		})
	}
}
