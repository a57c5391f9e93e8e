// Package stream serves the scene over HTTP and pushes batches and frames to
// websocket clients.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/WessleyAI/termscape/engine/domain"
	"github.com/WessleyAI/termscape/engine/scene"
	"github.com/WessleyAI/termscape/pkg/metrics"
)

// Envelope types sent to clients.
const (
	TypeBatch = "batch"
	TypeFrame = "frame"
	TypeUI    = "ui"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	sendBuffer     = 64
	broadcastQueue = 256
)

// ErrHubClosed is returned by Broadcast after Run has returned.
var ErrHubClosed = errors.New("stream: hub closed")

// Envelope wraps every message pushed to a client.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to connected websocket clients. The client set is
// owned by the Run goroutine.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	clients    atomic.Int64
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewHub creates a Hub. m may be nil.
func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastQueue),
		done:       make(chan struct{}),
		log:        log,
		metrics:    m,
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int { return int(h.clients.Load()) }

// Run serves registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	clients := make(map[*client]struct{})
	defer func() {
		close(h.done)
		for c := range clients {
			h.drop(clients, c)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-h.register:
			clients[c] = struct{}{}
			h.clients.Add(1)
			h.metrics.ClientConnected()
			h.log.Debug("stream: client connected", "remote", c.conn.RemoteAddr().String())
		case c := <-h.unregister:
			h.drop(clients, c)
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("stream: dropping slow client", "remote", c.conn.RemoteAddr().String())
					h.drop(clients, c)
				}
			}
		}
	}
}

func (h *Hub) drop(clients map[*client]struct{}, c *client) {
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	h.clients.Add(-1)
	h.metrics.ClientDisconnected()
}

// Broadcast sends v to every client inside an envelope of type typ.
func (h *Hub) Broadcast(typ string, v any) error {
	data, err := json.Marshal(Envelope{Type: typ, Data: v})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Render broadcasts a placement batch, so a Hub can sit behind scene.Tee.
func (h *Hub) Render(ctx context.Context, b domain.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.Broadcast(TypeBatch, b)
}

// EmitFrame broadcasts f when at least one client is listening.
func (h *Hub) EmitFrame(f scene.Frame) {
	if h.Clients() == 0 {
		return
	}
	if err := h.Broadcast(TypeFrame, f); err != nil && !errors.Is(err, ErrHubClosed) {
		h.log.Warn("stream: frame broadcast failed", "error", err)
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("stream: upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// readPump discards client messages and keeps the read deadline alive.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
