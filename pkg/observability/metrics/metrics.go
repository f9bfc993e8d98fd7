package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

var (
	refreshTotal        atomic.Int64
	refreshFailed       atomic.Int64
	refreshInFlight     atomic.Int64
	refreshLastMillis   atomic.Int64
	pushEventsReceived  atomic.Int64
	animationsStarted   atomic.Int64
	animationsCancelled atomic.Int64
	chartsDrawn         atomic.Int64
	chartsSkipped       atomic.Int64
	notificationsSent   atomic.Int64
	viewersConnected    atomic.Int64
)

func RefreshStarted() {
	refreshInFlight.Add(1)
}

// RefreshFinished records one completed refresh attempt.
func RefreshFinished(duration time.Duration, err error) {
	refreshInFlight.Add(-1)
	refreshTotal.Add(1)
	if err != nil {
		refreshFailed.Add(1)
	}
	refreshLastMillis.Store(duration.Milliseconds())
}

func ObservePushEvent()          { pushEventsReceived.Add(1) }
func ObserveAnimationStarted()   { animationsStarted.Add(1) }
func ObserveAnimationCancelled() { animationsCancelled.Add(1) }
func ObserveChartDrawn()         { chartsDrawn.Add(1) }
func ObserveChartSkipped()       { chartsSkipped.Add(1) }
func ObserveNotification()       { notificationsSent.Add(1) }
func ObserveViewers(n int)       { viewersConnected.Store(int64(n)) }

type gauge struct {
	name string
	kind string
	help string
	v    *atomic.Int64
}

var series = []gauge{
	{"careconnect_analytics_refresh_total", "counter", "Refresh attempts completed.", &refreshTotal},
	{"careconnect_analytics_refresh_failed_total", "counter", "Refresh attempts that failed.", &refreshFailed},
	{"careconnect_analytics_refresh_in_flight", "gauge", "Refreshes currently waiting on the remote endpoint.", &refreshInFlight},
	{"careconnect_analytics_refresh_last_duration_ms", "gauge", "Duration of the latest refresh in milliseconds.", &refreshLastMillis},
	{"careconnect_push_events_received_total", "counter", "Push channel events received.", &pushEventsReceived},
	{"careconnect_animations_started_total", "counter", "Metric animations started.", &animationsStarted},
	{"careconnect_animations_cancelled_total", "counter", "Metric animations replaced before completion.", &animationsCancelled},
	{"careconnect_charts_drawn_total", "counter", "Chart surfaces redrawn.", &chartsDrawn},
	{"careconnect_charts_skipped_total", "counter", "Chart redraws skipped because the surface was clean or unmounted.", &chartsSkipped},
	{"careconnect_notifications_sent_total", "counter", "Viewer notifications dispatched.", &notificationsSent},
	{"careconnect_viewers_connected", "gauge", "Connected WebSocket viewers.", &viewersConnected},
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, g := range series {
		fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", g.name, g.kind)
		fmt.Fprintf(w, "%s %d\n", g.name, g.v.Load())
	}
}
