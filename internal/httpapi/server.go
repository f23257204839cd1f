// Package httpapi serves the operational endpoints next to the bot: probes and metrics.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Proton-105/cuteforcute-bot/internal/lifecycle"
	"github.com/Proton-105/cuteforcute-bot/internal/middleware"
	"github.com/Proton-105/cuteforcute-bot/pkg/logger"
)

const (
	PathHealth  = "/health"
	PathReady   = "/ready"
	PathMetrics = "/metrics"
)

// Options configures the operational router.
type Options struct {
	Probes         lifecycle.HealthChecker
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Log            *slog.Logger
}

// NewHandler builds the router with CORS, correlation ids and request logging applied.
func NewHandler(opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := mux.NewRouter()
	r.HandleFunc(PathHealth, healthHandler(opts.Probes)).Methods(http.MethodGet)
	r.HandleFunc(PathReady, readyHandler(opts.Probes)).Methods(http.MethodGet)
	r.Handle(PathMetrics, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", logger.CorrelationIDHeader},
	}).Handler(r)

	return middleware.RequestLog(log, PathHealth, PathReady, PathMetrics)(corsHandler)
}

func healthHandler(probes lifecycle.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probes == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
		writeJSON(w, http.StatusOK, probes.Liveness(r.Context()))
	}
}

func readyHandler(probes lifecycle.HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probes == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}

		report := probes.Readiness(r.Context())
		status := http.StatusOK
		if !report.Ready() {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
