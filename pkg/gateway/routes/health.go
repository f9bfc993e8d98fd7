package routes

import (
	"net/http"

	"github.com/careconnect-ai/insights/pkg/observability/metrics"
	"github.com/gorilla/mux"
)

// RegisterOpsRoutes mounts the health check and the Prometheus scrape
// endpoint on the root router.
func RegisterOpsRoutes(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)
}
