// Package wshub broadcasts playback position and state to websocket viewers
// and derives visibility from what the viewers report.
package wshub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/user/tapeplay/pkg/ports"
)

// Message types.
const (
	TypeSliderUpdate  = "SLIDER_UPDATE"
	TypePlaybackState = "PLAYBACK_STATE"
	TypeVisibility    = "VISIBILITY"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Message is the envelope of every websocket message.
type Message struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Session string          `json:"session,omitempty"`
}

// SliderData is the payload of SLIDER_UPDATE.
type SliderData struct {
	Value int `json:"value"`
}

// VisibilityData is the payload of VISIBILITY.
type VisibilityData struct {
	Hidden bool `json:"hidden"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	hidden bool
}

// Hub implements ports.PositionSink, ports.StateSink and ports.VisibilitySource.
// Updates sent by one viewer are relayed to the others unchanged.
//
// With no viewers connected the hub reports its idle mode. Otherwise it is
// Foreground while at least one viewer is visible and Background when all
// are hidden.
type Hub struct {
	session  string
	idle     ports.VisibilityMode
	upgrader websocket.Upgrader
	logger   ports.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	mode    ports.VisibilityMode
	subs    map[int]func(ports.VisibilityMode)
	nextSub int
	last    map[string][]byte // Latest message per type, replayed to new viewers
	closed  bool
}

// New creates a Hub with a fresh session ID.
func New(logger ports.Logger, idle ports.VisibilityMode) *Hub {
	return &Hub{
		session: uuid.NewString(),
		idle:    idle,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger.WithComponent("wshub"),
		clients: make(map[*client]struct{}),
		mode:    idle,
		subs:    make(map[int]func(ports.VisibilityMode)),
		last:    make(map[string][]byte),
	}
}

// SessionID returns the ID stamped on every outgoing message.
func (h *Hub) SessionID() string {
	return h.session
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements ports.PositionSink.
func (h *Hub) Publish(row int) {
	h.broadcast(TypeSliderUpdate, SliderData{Value: row})
}

// PublishState implements ports.StateSink.
func (h *Hub) PublishState(update ports.StateUpdate) {
	h.broadcast(TypePlaybackState, update)
}

// Current implements ports.VisibilitySource.
func (h *Hub) Current() ports.VisibilityMode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode
}

// Subscribe implements ports.VisibilitySource. fn runs on a connection goroutine.
func (h *Hub) Subscribe(fn func(mode ports.VisibilityMode)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// ServeHTTP upgrades the request and serves one viewer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every viewer and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
	}
	h.updateMode()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	for _, typ := range []string{TypePlaybackState, TypeSliderUpdate} {
		if msg, ok := h.last[typ]; ok {
			c.send <- msg
		}
	}
	h.mu.Unlock()

	h.logger.Debug("Viewer connected (total: %d)", n)
	h.updateMode()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("Viewer disconnected (total: %d)", n)
		h.updateMode()
	}
}

func (h *Hub) setHidden(c *client, hidden bool) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		c.hidden = hidden
	}
	h.mu.Unlock()
	h.updateMode()
}

// updateMode recomputes the visibility mode and notifies subscribers on change.
func (h *Hub) updateMode() {
	h.mu.Lock()
	mode := h.idle
	if len(h.clients) > 0 {
		mode = ports.Background
		for c := range h.clients {
			if !c.hidden {
				mode = ports.Foreground
				break
			}
		}
	}
	if mode == h.mode {
		h.mu.Unlock()
		return
	}
	h.mode = mode
	subs := make([]func(ports.VisibilityMode), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	h.logger.Debug("Visibility changed to %s", mode)
	for _, fn := range subs {
		fn(mode)
	}
}

func (h *Hub) broadcast(typ string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Failed to encode %s message: %v", typ, err)
		return
	}
	msg, err := json.Marshal(Message{Type: typ, Data: data, Session: h.session})
	if err != nil {
		h.logger.Error("Failed to encode %s message: %v", typ, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[typ] = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow viewer; it catches up with the next update.
			h.logger.Debug("Dropping %s for a slow viewer", typ)
		}
	}
}

// relay forwards a viewer's own update to every other viewer.
func (h *Hub) relay(from *client, typ string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[typ] = msg
	for c := range h.clients {
		if c == from {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Debug("Dropping %s for a slow viewer", typ)
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Viewer read error: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("Ignoring malformed viewer message: %v", err)
			continue
		}
		switch msg.Type {
		case TypeVisibility:
			var v VisibilityData
			if err := json.Unmarshal(msg.Data, &v); err != nil {
				h.logger.Debug("Ignoring malformed visibility message: %v", err)
				continue
			}
			h.setHidden(c, v.Hidden)
		case TypeSliderUpdate, TypePlaybackState:
			h.relay(c, msg.Type, data)
		default:
			h.logger.Debug("Ignoring viewer message of type %q", msg.Type)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

var (
	_ ports.PositionSink     = (*Hub)(nil)
	_ ports.StateSink        = (*Hub)(nil)
	_ ports.VisibilitySource = (*Hub)(nil)
	_ http.Handler           = (*Hub)(nil)
)
