// Package ws implements the WebSocket hub that pushes feed events
// (refreshed signal batches) to connected clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed is public and read-only; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// session is one connected client. out is written by the hub loop and
// drained by the session's writePump.
type session struct {
	hub *Hub
	ws  *websocket.Conn
	out chan []byte
}

// Hub fans feed events out to every connected client. The sessions map is
// owned exclusively by the Run loop; HandleWS and the pumps communicate
// with it over the register/unregister channels, so no lock guards it.
type Hub struct {
	sessions   map[*session]struct{}
	broadcast  chan []byte
	register   chan *session
	unregister chan *session
	done       chan struct{}
	count      atomic.Int64
	logger     *slog.Logger
	startedAt  time.Time
}

// NewHub creates a hub. Call Run before accepting connections.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		sessions:   make(map[*session]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *session),
		unregister: make(chan *session),
		done:       make(chan struct{}),
		logger:     logger,
		startedAt:  time.Now().UTC(),
	}
}

// Broadcast queues data for delivery to every connected client. It never
// blocks the caller: if the hub's queue is full the event is dropped and
// clients catch up on the next refresh.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("ws: broadcast queue full, dropping event")
	}
}

// Run drives registration and fan-out until ctx is cancelled, then closes
// every session. The done channel unblocks pumps still trying to register
// or unregister after the loop has exited.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				close(s.out)
				delete(h.sessions, s)
			}
			h.count.Store(0)
			return ctx.Err()

		case s := <-h.register:
			h.sessions[s] = struct{}{}
			h.logger.Info("ws: client connected",
				slog.Int64("total_clients", h.count.Add(1)),
			)

		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				close(s.out)
				h.logger.Info("ws: client disconnected",
					slog.Int64("total_clients", h.count.Add(-1)),
				)
			}

		case data := <-h.broadcast:
			for s := range h.sessions {
				select {
				case s.out <- data:
				default:
					h.logger.Warn("ws: dropping message for slow client")
				}
			}
		}
	}
}

// HandleWS upgrades the request and registers the new session.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{hub: h, ws: conn, out: make(chan []byte, sendBufferSize)}
	select {
	case h.register <- s:
	case <-h.done:
		conn.Close()
		return
	}
	s.queueStatus()

	go s.writePump()
	go s.readPump()
}

// queueStatus enqueues a greeting so clients can mark the connection
// healthy before the first refresh event arrives.
func (s *session) queueStatus() {
	uptime := max(int64(time.Since(s.hub.startedAt).Seconds()), 0)
	msg, err := json.Marshal(map[string]any{
		"type": "feed_status",
		"payload": map[string]any{
			"ws_connected":   true,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}
	select {
	case s.out <- msg:
	default:
	}
}

// readPump discards incoming frames. The feed is one-way, but the pump
// must run to process control frames and notice disconnects.
func (s *session) readPump() {
	defer func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
		s.ws.Close()
	}()

	s.ws.SetReadLimit(maxMessageSize)
	s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// writePump drains the out channel into text frames and keeps the
// connection alive with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-s.out:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
