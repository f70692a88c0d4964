package sessionws

import (
	"sync"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tavaresmirako/petservice/internal/realtime"
)

// Hub tracks every live websocket connection by user. All registry
// mutation happens on the Run goroutine; callers talk to it through
// channels only.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	removals   chan removal
	log        zerolog.Logger
}

type removal struct {
	userID    uuid.UUID
	requestID uuid.UUID
}

// Client binds one websocket connection to the realtime session opened
// for it. The session is closed when the connection unregisters, which
// releases every subscription the connection opened.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  uuid.UUID
	session *realtime.Session

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		removals:   make(chan removal, 64),
		log:        log.With().Str("component", "ws_hub").Logger(),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

// Bind attaches the realtime session that owns this connection's
// subscriptions. Must be called before Register.
func (c *Client) Bind(session *realtime.Session) {
	c.session = session
}

// Send queues an encoded frame for delivery. Reports false when the
// connection can no longer accept frames. Safe to call after the client
// has unregistered: broker dispatch may still be flushing handlers for a
// session whose connection is already gone.
func (c *Client) Send(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound queue exactly once. Holding the mutex
// here and in Send keeps the close and any in-flight queue attempt from
// racing.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				client.closeSend()
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case r := <-h.removals:
			for client := range h.clients[r.userID] {
				if client.session != nil {
					client.session.RemoveNotification(r.requestID)
				}
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// RemoveNotification drops a pending-request notification from every
// open session of the given provider. Fired the moment a decision is
// made over HTTP, so connected tabs clear the entry without waiting
// for the database write to land.
func (h *Hub) RemoveNotification(userID uuid.UUID, requestID uuid.UUID) {
	select {
	case h.removals <- removal{userID: userID, requestID: requestID}:
	default:
		h.log.Warn().Stringer("user_id", userID).Msg("removal queue full, dropping")
	}
}

// ReadPump consumes inbound frames until the connection drops, then
// tears the whole connection scope down.
func (c *Client) ReadPump() {
	defer func() {
		// Close the session before unregistering: once the session is
		// closed its subscriptions stop pushing, so nothing races the
		// teardown of the outbound queue.
		if c.session != nil {
			c.session.Close()
		}
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.session != nil {
			c.session.HandleInbound(payload)
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
