package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWritePrometheus(t *testing.T) {
	RefreshStarted()
	RefreshFinished(120*time.Millisecond, errors.New("timeout"))
	ObserveViewers(3)

	rec := httptest.NewRecorder()
	WritePrometheus(rec)
	body := rec.Body.String()

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	for _, want := range []string{
		"# TYPE careconnect_analytics_refresh_total counter",
		"careconnect_analytics_refresh_last_duration_ms 120",
		"careconnect_viewers_connected 3",
		"careconnect_analytics_refresh_in_flight 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in output:\n%s", want, body)
		}
	}
	if strings.Contains(body, "careconnect_analytics_refresh_failed_total 0\n") {
		t.Fatalf("failed refresh was not counted:\n%s", body)
	}
}
