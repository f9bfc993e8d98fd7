// Package notify fans dashboard messages out to connected viewers.
package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/careconnect-ai/insights/pkg/common/logger"
	"github.com/careconnect-ai/insights/pkg/common/models"
	"github.com/careconnect-ai/insights/pkg/observability/metrics"
	"github.com/gorilla/websocket"
)

// Message kinds sent to viewers.
const (
	KindToast   = "toast"
	KindMetrics = "metrics"
	KindRefresh = "refresh"
)

const (
	sendBuffer     = 256
	broadcastQueue = 64
	writeWait      = 10 * time.Second
)

// Envelope is the frame written to every viewer.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps track of viewers and broadcasts to all of them. A viewer that
// cannot keep up is dropped rather than slowing the others down.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64
	upgrader   websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastQueue),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run serves the hub until ctx ends, then disconnects every viewer.
func (h *Hub) Run(ctx context.Context) {
	log := logger.Component("notify-hub")
	defer close(h.done)
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
	}()

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.setCount()
			log.WithField("viewers", len(h.clients)).Debug("viewer connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.WithField("viewers", len(h.clients)).Debug("viewer disconnected")
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.drop(client)
					log.Warn("dropped slow viewer")
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.ObserveViewers(len(h.clients))
}

// Viewers reports how many viewers are connected.
func (h *Hub) Viewers() int {
	return int(h.count.Load())
}

// Publish queues an envelope for every viewer. It never blocks: when the
// queue is full or the hub has stopped the message is dropped.
func (h *Hub) Publish(kind string, payload interface{}) {
	message, err := json.Marshal(Envelope{Type: kind, Payload: payload})
	if err != nil {
		logger.Component("notify-hub").WithError(err).WithField("type", kind).Error("failed to encode message")
		return
	}
	select {
	case h.broadcast <- message:
	case <-h.done:
	default:
		logger.Component("notify-hub").WithField("type", kind).Warn("broadcast queue full, message dropped")
	}
}

// Notify shows a toast to every viewer.
func (h *Hub) Notify(_ context.Context, n models.Notification) {
	metrics.ObserveNotification()
	logger.Component("notify-hub").WithFields(map[string]interface{}{
		"title":    n.Title,
		"severity": n.Severity,
	}).Info(n.Message)
	h.Publish(KindToast, n)
}

// ServeWS upgrades the request and attaches the connection as a viewer.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Component("notify-hub").WithError(err).Warn("websocket upgrade failed")
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	for {
		// Viewers only listen; anything they send is discarded.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
