// Package wsapi is an optional live-state push channel: clients open a
// WebSocket scoped to a session and receive a state_update message
// for that session after every game tick, instead of polling
// /api/v1/game/state. It is additive to internal/httpapi, not
// a replacement, and is structurally adapted from the teacher's
// transport/websocket.Hub (same register/unregister/broadcast channel
// loop, read/write pumps), rekeyed from the teacher's string session
// ids to the simulation's uint64 session ids and broadcasting
// app.GameStateView instead of a grid GameState.
package wsapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tarakan-labs/doggame/internal/app"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Message is the envelope pushed to every client subscribed to a session.
type Message struct {
	SessionID uint64             `json:"sessionId"`
	State     *app.GameStateView `json:"state,omitempty"`
	Event     string             `json:"event,omitempty"`
}

// Client is one open WebSocket connection scoped to a session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID uint64
}

// Hub fans out state_update broadcasts to every client subscribed to
// the session the update belongs to.
type Hub struct {
	sessions   map[uint64]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	log        *zap.Logger
}

// NewHub constructs an idle Hub; call Run to start its event loop.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		sessions:   make(map[uint64]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run drains the hub's channels until the process exits; call it in
// its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades r to a WebSocket and subscribes it to sessionID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID uint64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), sessionID: sessionID}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastState pushes state to every client subscribed to sessionID.
func (h *Hub) BroadcastState(sessionID uint64, state app.GameStateView) {
	h.broadcast <- &Message{SessionID: sessionID, State: &state, Event: "state_update"}
}

func (h *Hub) registerClient(c *Client) {
	if h.sessions[c.sessionID] == nil {
		h.sessions[c.sessionID] = make(map[*Client]bool)
	}
	h.sessions[c.sessionID][c] = true
}

func (h *Hub) unregisterClient(c *Client) {
	clients, ok := h.sessions[c.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
	}
}

func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Warn("failed to marshal broadcast message", zap.Error(err))
		return
	}

	for client := range h.sessions[message.SessionID] {
		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
