// internal/httpapi/server.go
package httpapi

import (
	"context"
	"net/http"
	"time"

	"credit-lifecycle/internal/common/config"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/common/metrics"
	"credit-lifecycle/internal/common/observability"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the REST surface of the lifecycle engine.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

// NewServer builds the route table and the underlying http.Server.
func NewServer(cfg config.HTTPConfig, handlers *Handlers, obs *observability.Observability, log logger.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/applications", handlers.CreateApplication)
	mux.HandleFunc("GET /api/v1/applications", handlers.ListApplications)
	mux.HandleFunc("GET /api/v1/applications/{id}", handlers.GetApplication)
	mux.HandleFunc("PATCH /api/v1/applications/{id}", handlers.UpdateApplication)
	mux.HandleFunc("DELETE /api/v1/applications/{id}", handlers.RemoveApplication)
	mux.HandleFunc("POST /api/v1/applications/{id}/submit", handlers.SubmitApplication)
	mux.HandleFunc("POST /api/v1/applications/{id}/status", handlers.UpdateApplicationStatus)
	mux.HandleFunc("POST /api/v1/applications/{id}/approve", handlers.ApproveApplication)
	mux.HandleFunc("GET /api/v1/applications/{id}/history", handlers.GetHistory)
	mux.HandleFunc("GET /api/v1/applications/{id}/analytics", handlers.GetAnalytics)
	mux.HandleFunc("GET /api/v1/dashboard", handlers.GetDashboard)

	mux.HandleFunc("GET /healthz", handlers.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Address,
			Handler:      instrument(mux, obs),
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Millisecond,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Millisecond,
		},
		logger: log.WithFields(map[string]interface{}{"component": "http-server"}),
	}
}

// instrument records per-route durations into both the Prometheus histogram
// and the OTel meter. The route pattern, not the raw path, is the label so
// that per-id paths do not explode cardinality.
func instrument(next http.Handler, obs *observability.Observability) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		elapsed := time.Since(start)
		metrics.OperationDuration.WithLabelValues(pattern).Observe(elapsed.Seconds())
		if obs != nil {
			obs.RecordOperation(r.Context(), pattern, "handled")
			obs.RecordDuration(r.Context(), pattern, elapsed)
		}
	})
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.httpServer.Addr,
	})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
