package api

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kelsos/roomfinder/internal/logger"
)

func NewRouter(handler *TaskHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/scrape", handler.Submit)
	mux.HandleFunc("GET /api/scrape/{task_id}", handler.Status)
	mux.HandleFunc("DELETE /api/scrape/{task_id}", handler.Cancel)
	mux.HandleFunc("GET /api/filters", handler.Filters)
	mux.HandleFunc("GET /healthz", handler.Health)

	return otelhttp.NewHandler(accessLog(mux), "roomfinder.http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		logger.Debug("%s %s -> %d in %v", r.Method, r.URL.Path, recorder.status, time.Since(start).Round(time.Microsecond))
	})
}
