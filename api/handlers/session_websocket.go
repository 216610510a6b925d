package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/mediafetch-go/internal/domain"
)

const (
	EventConnected        = "connected"
	EventDownloadProgress = "download_progress"
	EventPing             = "ping"
	EventPong             = "pong"

	pingInterval  = 30 * time.Second
	pongWait      = 2 * pingInterval
	writeWait     = 10 * time.Second
	clientBacklog = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope of every websocket frame
type Message struct {
	Event     string                `json:"event"`
	Data      *domain.ProgressEvent `json:"data,omitempty"`
	Timestamp int64                 `json:"timestamp,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// SessionHub groups websocket connections into per-session rooms and pushes
// progress events to them. HandleProgress is registered as a synchronous
// progress subscriber, so it only enqueues and never blocks.
type SessionHub struct {
	store  domain.SessionStore
	logger *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[*wsClient]struct{}
}

// NewSessionHub creates a hub replaying snapshots from store
func NewSessionHub(store domain.SessionStore, logger *zap.Logger) *SessionHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHub{
		store:  store,
		logger: logger,
		rooms:  make(map[string]map[*wsClient]struct{}),
	}
}

// HandleProgress fans an event out to the session's room
func (h *SessionHub) HandleProgress(sessionID string, event domain.ProgressEvent) {
	msg, err := json.Marshal(Message{Event: EventDownloadProgress, Data: &event})
	if err != nil {
		h.logger.Error("Failed to encode progress event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[sessionID] {
		select {
		case client.send <- msg:
		default:
			h.logger.Warn("Dropping progress event for slow client",
				zap.String("session_id", sessionID),
				zap.String("status", string(event.Status)))
		}
	}
}

// RoomSize returns the number of clients watching a session
func (h *SessionHub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// CloseAll disconnects every client
func (h *SessionHub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, room := range h.rooms {
		for client := range room {
			client.conn.Close()
		}
	}
}

// ServeWS handles GET /api/v1/sessions/:session_id/ws
func (h *SessionHub) ServeWS(c *gin.Context) {
	sessionID := c.Param("session_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, clientBacklog)}
	client.send <- mustEncode(Message{Event: EventConnected})
	h.join(sessionID, client)

	h.logger.Info("WebSocket client joined", zap.String("session_id", sessionID))

	go h.writeLoop(client)
	h.readLoop(sessionID, client)
}

// join registers the client and queues the replay under the same lock, so
// no live event can be queued ahead of the snapshot.
func (h *SessionHub) join(sessionID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*wsClient]struct{})
		h.rooms[sessionID] = room
	}
	room[client] = struct{}{}

	if ev, ok := h.store.Get(sessionID); ok {
		client.send <- mustEncode(Message{Event: EventDownloadProgress, Data: &ev})
	}
}

func (h *SessionHub) leave(sessionID string, client *wsClient) {
	h.mu.Lock()
	room := h.rooms[sessionID]
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
	h.mu.Unlock()

	close(client.send)
	h.logger.Info("WebSocket client left", zap.String("session_id", sessionID))
}

func (h *SessionHub) readLoop(sessionID string, client *wsClient) {
	defer h.leave(sessionID, client)

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Event == EventPing {
			select {
			case client.send <- mustEncode(Message{Event: EventPong, Timestamp: time.Now().Unix()}):
			default:
			}
		}
	}
}

func (h *SessionHub) writeLoop(client *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func mustEncode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return data
}
