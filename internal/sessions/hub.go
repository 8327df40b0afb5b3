package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"civicfix-backend/internal/shared/telemetry"
	"civicfix-backend/internal/wizard"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxReadBytes   = 512
	clientBuffer   = 16
	publishBacklog = 256
)

// Envelope is one frame on the notification stream.
type Envelope struct {
	Type    string        `json:"type"`
	Event   *wizard.Event `json:"event,omitempty"`
	Session *View         `json:"session,omitempty"`
}

// Hub fans wizard events out to websocket subscribers of each session.
type Hub struct {
	upgrader websocket.Upgrader

	register     chan *client
	unregister   chan *client
	publish      chan wizard.Event
	closeSession chan string
	stopped      chan struct{}
	stopOnce     sync.Once

	mu     sync.RWMutex
	topics map[string]map[*client]struct{}
}

type client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	send      chan frame
	// afterSeq is the Seq of the snapshot sent on connect; older events are skipped.
	afterSeq uint64
}

type frame struct {
	seq     uint64
	payload []byte
}

// NewHub constructs a hub that accepts handshakes from allowedOrigins ("*" allows any).
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		register:     make(chan *client),
		unregister:   make(chan *client),
		publish:      make(chan wizard.Event, publishBacklog),
		closeSession: make(chan string, publishBacklog),
		stopped:      make(chan struct{}),
		topics:       make(map[string]map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Run dispatches registrations and events until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.stopped) })
	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return
		case c := <-h.register:
			h.mu.Lock()
			subs, ok := h.topics[c.sessionID]
			if !ok {
				subs = make(map[*client]struct{})
				h.topics[c.sessionID] = subs
			}
			subs[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.remove(c)
		case id := <-h.closeSession:
			h.mu.Lock()
			for c := range h.topics[id] {
				close(c.send)
			}
			delete(h.topics, id)
			h.mu.Unlock()
		case e := <-h.publish:
			h.broadcast(e)
		}
	}
}

// Notify implements wizard.Notifier. It never blocks; events are dropped when the backlog is full.
func (h *Hub) Notify(e wizard.Event) {
	select {
	case h.publish <- e:
	default:
		telemetry.Warn("sessions.event_dropped", map[string]any{
			"session_id": e.SessionID,
			"type":       string(e.Type),
		})
	}
}

// CloseSession disconnects every subscriber of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	select {
	case h.closeSession <- sessionID:
	default:
	}
}

// Subscribers returns how many connections listen to sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[sessionID])
}

// Serve upgrades the request and streams events for sessionID. The client is
// subscribed before snapshot is taken, so the first frame is the snapshot and no
// later event is missed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, sessionID string, snapshot func() (View, error)) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan frame, clientBuffer),
	}

	select {
	case h.register <- c:
	case <-h.stopped:
		_ = conn.Close()
		return ErrServiceShutdown
	}

	view, err := snapshot()
	if err == nil {
		var payload []byte
		if payload, err = json.Marshal(Envelope{Type: "snapshot", Session: &view}); err == nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = conn.WriteMessage(websocket.TextMessage, payload)
		}
	}
	if err != nil {
		select {
		case h.unregister <- c:
		case <-h.stopped:
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"), time.Now().Add(writeWait))
		_ = conn.Close()
		return err
	}
	c.afterSeq = view.Seq

	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) broadcast(e wizard.Event) {
	payload, err := json.Marshal(Envelope{Type: "event", Event: &e})
	if err != nil {
		telemetry.Error("sessions.event_encode_failed", map[string]any{"error": err.Error()})
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.topics[e.SessionID] {
		select {
		case c.send <- frame{seq: e.Seq, payload: payload}:
		default:
			// Slow consumer.
			close(c.send)
			delete(h.topics[e.SessionID], c)
		}
	}
	if len(h.topics[e.SessionID]) == 0 {
		delete(h.topics, e.SessionID)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[c.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[c]; ok {
		delete(subs, c)
		close(c.send)
	}
	if len(subs) == 0 {
		delete(h.topics, c.sessionID)
	}
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, subs := range h.topics {
		for c := range subs {
			close(c.send)
		}
		delete(h.topics, id)
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stopped:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxReadBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				telemetry.Warn("sessions.ws_read_failed", map[string]any{
					"session_id": c.sessionID,
					"error":      err.Error(),
				})
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if f.seq != 0 && f.seq <= c.afterSeq {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, f.payload); err != nil {
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

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			wildcard = true
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
