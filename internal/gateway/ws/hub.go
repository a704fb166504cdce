package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/syncboard/syncboard/internal/events"
	"github.com/syncboard/syncboard/internal/identity"
)

const pingInterval = 30 * time.Second

// Client represents a connected WebSocket viewer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu   sync.Mutex
	user *identity.User // nil until user_join succeeds
}

func (c *Client) userID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return ""
	}
	return c.user.ID
}

// Hub is the broadcast fan-out layer. It bridges confirmed events from the
// bus to every subscribed connection and supports per-user addressed
// delivery for clients that have announced a session.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	verifier identity.Verifier

	bus         *events.Bus
	unsubscribe func()
}

// NewHub creates a hub bridging the event bus to WebSocket clients.
func NewHub(bus *events.Bus, verifier identity.Verifier) *Hub {
	h := &Hub{
		clients:  make(map[*Client]struct{}),
		verifier: verifier,
		bus:      bus,
	}

	h.unsubscribe = bus.Subscribe(func(e events.Event) {
		frame, err := NewEventFrame(string(e.Type), e.Payload)
		if err != nil {
			slog.Error("marshal event frame", "error", err)
			return
		}
		data, err := MarshalFrame(frame)
		if err != nil {
			slog.Error("marshal frame", "error", err)
			return
		}
		if e.TargetUserID != "" {
			h.sendToUser(e.TargetUserID, data)
		} else {
			h.broadcast(data)
		}
	})

	return h
}

// broadcast sends data to all connected clients. Delivery is fire-and-forget:
// a client whose send buffer is full is skipped, never waited on.
func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("ws client too slow, dropping event", "user", c.userID())
		}
	}
}

// sendToUser delivers data to every connection announced by userID.
func (h *Hub) sendToUser(userID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.userID() != userID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slog.Warn("ws client too slow, dropping event", "user", userID)
		}
	}
}

// ConnectedUsers returns the distinct user ids with at least one announced
// connection.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for c := range h.clients {
		id := c.userID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "clients", len(h.clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	leaving := (*identity.User)(nil)
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.mu.Lock()
		leaving = c.user
		c.user = nil
		c.mu.Unlock()
		slog.Info("ws client disconnected", "clients", len(h.clients))
	}
	h.mu.Unlock()

	if leaving != nil {
		h.bus.Publish(events.NewTypedEvent(events.SourceHub, events.UserLeftPayload{User: leaving}))
	}
}

// ServeWS handles a WebSocket upgrade and manages the client lifecycle.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for dev
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.register(client)

	ctx := r.Context()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump reads frames from the WS connection and dispatches them.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Error("ws unmarshal frame", "error", err)
			continue
		}

		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame Frame) {
	switch frame.Type {
	case FrameTypeRequest:
		c.handleRequest(frame)
	default:
		slog.Debug("ws unknown frame type", "type", frame.Type)
	}
}

// handleRequest processes a request frame (method dispatch).
func (c *Client) handleRequest(frame Frame) {
	switch frame.Method {
	case MethodUserJoin:
		var params JoinParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			c.sendError(frame.ID, "invalid params")
			return
		}
		c.join(frame.ID, params.SessionToken)

	case MethodUserLeave:
		c.leave(frame.ID)

	default:
		c.sendError(frame.ID, "unknown method: "+frame.Method)
	}
}

// join resolves the session token to a user, records membership for
// addressed delivery, and announces user_joined. Re-announcing after a
// reconnect follows the same path.
func (c *Client) join(reqID, token string) {
	user, ok := c.hub.verifier.VerifySession(token)
	if !ok {
		c.sendError(reqID, "invalid session")
		return
	}

	c.mu.Lock()
	already := c.user != nil && c.user.ID == user.ID
	c.user = user
	c.mu.Unlock()

	c.sendOK(reqID, map[string]any{"user": user})

	if !already {
		c.hub.bus.Publish(events.NewTypedEvent(events.SourceHub, events.UserJoinedPayload{User: user}))
	}
}

// leave drops membership without closing the connection.
func (c *Client) leave(reqID string) {
	c.mu.Lock()
	leaving := c.user
	c.user = nil
	c.mu.Unlock()

	c.sendOK(reqID, map[string]string{"status": "left"})

	if leaving != nil {
		c.hub.bus.Publish(events.NewTypedEvent(events.SourceHub, events.UserLeftPayload{User: leaving}))
	}
}

// writePump writes queued messages to the WS connection.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) sendOK(id string, payload any) {
	f, err := NewResponseFrame(id, true, payload, "")
	if err != nil {
		return
	}
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(id string, errMsg string) {
	f, err := NewResponseFrame(id, false, nil, errMsg)
	if err != nil {
		return
	}
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// Close shuts down the hub and all client connections.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
	}
}
