package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server, cancel
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &env))
	return env.Type, env.Payload
}

func TestNotifyReachesEveryViewer(t *testing.T) {
	hub, server, _ := startHub(t)
	first, second := dial(t, server), dial(t, server)
	require.Eventually(t, func() bool { return hub.Viewers() == 2 }, 2*time.Second, 5*time.Millisecond)

	hub.Notify(context.Background(), models.NewNotification("Analytics Error", "timeout", models.SeverityError))

	for _, conn := range []*websocket.Conn{first, second} {
		kind, payload := readEnvelope(t, conn)
		assert.Equal(t, KindToast, kind)

		var n models.Notification
		require.NoError(t, json.Unmarshal(payload, &n))
		assert.Equal(t, "Analytics Error", n.Title)
		assert.Equal(t, "timeout", n.Message)
		assert.Equal(t, models.SeverityError, n.Severity)
	}
}

func TestPublishPreservesOrder(t *testing.T) {
	hub, server, _ := startHub(t)
	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Viewers() == 1 }, 2*time.Second, 5*time.Millisecond)

	for i := 1; i <= 3; i++ {
		hub.Publish(KindMetrics, map[string]int{"totalPatients": i * 40})
	}
	for i := 1; i <= 3; i++ {
		kind, payload := readEnvelope(t, conn)
		assert.Equal(t, KindMetrics, kind)
		assert.JSONEq(t, fmt.Sprintf(`{"totalPatients":%d}`, i*40), string(payload))
	}
}

func TestViewerDisconnectUnregisters(t *testing.T) {
	hub, server, _ := startHub(t)
	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Viewers() == 1 }, 2*time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Viewers() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestStoppedHubDropsPublishes(t *testing.T) {
	hub, server, cancel := startHub(t)
	conn := dial(t, server)
	require.Eventually(t, func() bool { return hub.Viewers() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-hub.done
	assert.NotPanics(t, func() {
		for i := 0; i < broadcastQueue*2; i++ {
			hub.Publish(KindRefresh, nil)
		}
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "viewer is disconnected when the hub stops")
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithOutput(&buf, "info")
	defer logger.Init()

	LogNotifier{}.Notify(context.Background(), models.NewNotification("Reminder Sent", "Reminder queued", models.SeveritySuccess))

	var entry map[string]interface{}
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "Reminder Sent", entry["title"])
	assert.Equal(t, "Reminder queued", entry["msg"])
	assert.Equal(t, "info", entry["level"])
}
