package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/careconnect-ai/insights/pkg/analytics"
	"github.com/careconnect-ai/insights/pkg/analytics/chart"
	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/remote"
	"github.com/gorilla/mux"
)

// Dashboard is the refresh controller as seen by HTTP callers.
type Dashboard interface {
	View() analytics.View
	Refresh(ctx context.Context) error
	Redraw()
}

type Charts interface {
	Surface(id string) (*chart.Surface, bool)
}

type AnalyticsHandler struct {
	dashboard Dashboard
	charts    Charts
}

func RegisterAnalyticsRoutes(router *mux.Router, dashboard Dashboard, charts Charts) {
	h := &AnalyticsHandler{dashboard: dashboard, charts: charts}
	router.HandleFunc("/analytics", h.handleView).Methods(http.MethodGet)
	router.HandleFunc("/analytics/refresh", h.handleRefresh).Methods(http.MethodPost)
	router.HandleFunc("/charts/{id:[A-Za-z0-9_-]+}.png", h.handleChart).Methods(http.MethodGet)
}

func (h *AnalyticsHandler) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.dashboard.View())
}

// handleRefresh runs a refresh inline and answers with the resulting view.
func (h *AnalyticsHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := h.dashboard.Refresh(r.Context())
	switch {
	case errors.Is(err, analytics.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "dashboard is shutting down")
		return
	case err != nil:
		logger.Log.WithError(err).Warn("manual analytics refresh failed")
		writeError(w, http.StatusBadGateway, remote.Message(err))
		return
	}
	writeJSON(w, h.dashboard.View())
}

func (h *AnalyticsHandler) handleChart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	surface, ok := h.charts.Surface(id)
	if !ok {
		writeError(w, http.StatusNotFound, "chart not mounted: "+id)
		return
	}

	// Surfaces mounted since the last refresh catch up here.
	h.dashboard.Redraw()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := surface.WritePNG(w); err != nil {
		logger.Log.WithError(err).WithField("surface", id).Error("failed to encode chart")
	}
}
