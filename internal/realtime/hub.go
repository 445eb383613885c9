package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	seenEventLimit = 64
)

// EventNotificationCreated is pushed when a new notification row is stored.
const EventNotificationCreated = "notification_created"

// Event is the envelope sent to connected clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ConnectionObserver is notified when connections come and go. The metrics
// layer implements it to keep a live connection gauge.
type ConnectionObserver interface {
	RealtimeConnectionOpened()
	RealtimeConnectionClosed()
}

// Hub fans notification events out to the WebSocket connections of each
// user. A user may hold several connections at once, one per device.
type Hub struct {
	logger   *zap.Logger
	observer ConnectionObserver

	mu     sync.RWMutex
	byUser map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	sendBufferSize int
}

// SetObserver attaches a connection observer. Call it before Run.
func (h *Hub) SetObserver(observer ConnectionObserver) {
	h.observer = observer
}

// NewHub constructs a hub. sendBufferSize caps the per-client outbound
// queue; a client that falls behind that many events is dropped.
func NewHub(logger *zap.Logger, sendBufferSize int) *Hub {
	if sendBufferSize <= 0 {
		sendBufferSize = 64
	}
	return &Hub{
		logger:         logger,
		byUser:         make(map[string]map[*Client]struct{}),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		sendBufferSize: sendBufferSize,
	}
}

// Run processes client registration until the context is cancelled. It is
// meant to be started once, alongside the HTTP server.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.byUser[client.userID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.byUser[client.userID] = clients
	}
	clients[client] = struct{}{}
	if h.observer != nil {
		h.observer.RealtimeConnectionOpened()
	}
	h.logger.Debug("realtime client connected",
		zap.String("user_id", client.userID),
		zap.Int("connections", len(clients)))
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.byUser[client.userID]
	if !ok {
		return
	}
	if _, registered := clients[client]; !registered {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.byUser, client.userID)
	}
	if h.observer != nil {
		h.observer.RealtimeConnectionClosed()
	}
	close(client.send)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, clients := range h.byUser {
		for client := range clients {
			if h.observer != nil {
				h.observer.RealtimeConnectionClosed()
			}
			close(client.send)
		}
		delete(h.byUser, userID)
	}
}

// Publish queues an event for every connection of the given user. Clients
// whose send buffer is full are dropped rather than allowed to stall the
// publisher. Events whose data carries an EventID are delivered at most
// once per connection.
func (h *Hub) Publish(userID string, eventType string, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("marshal realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}
	eventID := ""
	if identified, ok := data.(interface{ EventID() string }); ok {
		eventID = identified.EventID()
	}

	// Sends happen under the read lock: remove closes a client's send
	// channel under the write lock, so a channel can never be closed while
	// a publisher is sending on it. The sends are non-blocking, a full
	// buffer drops the client instead of stalling the publisher.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.byUser[userID] {
		if eventID != "" && client.alreadyDelivered(eventID) {
			continue
		}
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("dropping slow realtime client", zap.String("user_id", userID))
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// ConnectionCount reports how many connections a user currently holds.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// Client pairs one WebSocket connection with its owning user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	seenMu  sync.Mutex
	seen    map[string]struct{}
	seenIDs []string
}

// alreadyDelivered records the event id and reports whether this connection
// has seen it before. The window is bounded, oldest ids fall out first.
func (c *Client) alreadyDelivered(id string) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	if _, ok := c.seen[id]; ok {
		return true
	}
	c.seen[id] = struct{}{}
	c.seenIDs = append(c.seenIDs, id)
	if len(c.seenIDs) > seenEventLimit {
		delete(c.seen, c.seenIDs[0])
		c.seenIDs = c.seenIDs[1:]
	}
	return false
}

// Serve registers a freshly upgraded connection and starts its read and
// write pumps. It returns immediately; the pumps run until the peer
// disconnects.
func (h *Hub) Serve(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, h.sendBufferSize),
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
	return client
}

// readPump discards inbound frames. The channel is push-only, but reading
// is required to process control frames and detect disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("realtime client read error",
					zap.String("user_id", c.userID), zap.Error(err))
			}
			return
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
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
