package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one live session of a user.
type Client struct {
	ID     string
	UserID string
	Send   chan []byte
}

// Hub is the push strategy. Sessions are keyed by user id and a user may
// hold several at once.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}

	upgrader websocket.Upgrader
	log      *zap.Logger
	onDrop   func()
}

// NewHub creates a hub accepting browser upgrades from allowedOrigin, or
// from any origin when it is empty.
func NewHub(allowedOrigin string, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// OnDrop registers a callback invoked whenever a full session buffer forces
// an event to be discarded.
func (h *Hub) OnDrop(fn func()) {
	h.onDrop = fn
}

// Register adds a session for userID.
func (h *Hub) Register(userID string) *Client {
	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Client]struct{})
	}
	h.sessions[userID][client] = struct{}{}
	return client
}

// Unregister removes the session and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.sessions, client.UserID)
	}
	close(client.Send)
}

// Publish delivers the event to every session of every affected user.
// Slow sessions lose the event rather than block the publisher.
func (h *Hub) Publish(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range event.AffectedUserIDs {
		for client := range h.sessions[userID] {
			select {
			case client.Send <- data:
			default:
				h.log.Warn("relay session buffer full, dropping event",
					zap.String("user_id", userID),
					zap.String("session_id", client.ID),
					zap.String("event", string(event.Type)))
				if h.onDrop != nil {
					h.onDrop()
				}
			}
		}
	}
	return nil
}

// SessionCount returns the number of live sessions of userID.
func (h *Hub) SessionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// ClientCount returns the total number of live sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.sessions {
		n += len(set)
	}
	return n
}

// Serve upgrades the request and pumps events to it until the peer goes away.
// The caller must already have authenticated userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := h.Register(userID)
	h.log.Debug("relay session opened", zap.String("user_id", userID), zap.String("session_id", client.ID))

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

// readPump only drains control frames; clients have nothing to say.
func (h *Hub) readPump(client *Client, ws *websocket.Conn) {
	defer func() {
		h.Unregister(client)
		ws.Close()
		h.log.Debug("relay session closed", zap.String("user_id", client.UserID), zap.String("session_id", client.ID))
	}()

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(client *Client, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
