package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"

	"docroute/internal/authz"
	"docroute/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 8
	// Max total connections
	maxTotalConns = 10000
)

var (
	// ErrHubClosed is returned by Register after Shutdown.
	ErrHubClosed = errors.New("routing hub is shut down")
	// ErrServerLimit is returned when the hub is full.
	ErrServerLimit = errors.New("server connection limit reached")
	// ErrUserLimit is returned when one user holds too many connections.
	ErrUserLimit = errors.New("user connection limit reached")
)

// Hub fans routing events out to websocket clients by channel.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*Client]struct{}
	perUser    map[string]int
	totalConns int
	closed     bool
	log        *observability.WSLogger
}

// NewHub creates an empty routing hub.
func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		perUser: make(map[string]int),
		log:     observability.NewWSLogger("routing"),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "routing" }

// Logger returns the hub's websocket logger.
func (h *Hub) Logger() *observability.WSLogger { return h.log }

// Register adds a connection for actor, subscribed to every channel the
// actor receives.
func (h *Hub) Register(actor authz.Actor, conn *websocket.Conn) (*Client, error) {
	if actor.ID == "" {
		return nil, errors.New("actor id is required")
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, ErrServerLimit
	}
	if h.perUser[actor.ID] >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, ErrUserLimit
	}

	client := NewClient(h, conn, actor.ID, actor.UnitUIC, SubscriptionsFor(actor))
	for _, topic := range client.Topics {
		m, ok := h.topics[topic]
		if !ok {
			m = make(map[*Client]struct{})
			h.topics[topic] = m
		}
		m[client] = struct{}{}
	}
	h.perUser[actor.ID]++
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), actor.ID, actor.UnitUIC)
	return client, nil
}

// UnregisterClient removes client from every channel. Calling it twice is safe.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	for _, topic := range client.Topics {
		m, ok := h.topics[topic]
		if !ok {
			continue
		}
		if _, exists := m[client]; exists {
			delete(m, client)
			removed = true
		}
		if len(m) == 0 {
			delete(h.topics, topic)
		}
	}
	if removed {
		h.totalConns--
		if h.perUser[client.UserID]--; h.perUser[client.UserID] <= 0 {
			delete(h.perUser, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
		h.log.LogDisconnect(context.Background(), client.UserID, "unregistered")
	}
}

// Deliver sends payload to every client subscribed to channel and reports
// how many clients accepted it.
func (h *Hub) Deliver(channel, payload string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(payload)
	n := 0
	for c := range h.topics[channel] {
		if c.TrySend(data) {
			n++
		}
	}
	return n
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring connects the Notifier to this hub so every routing message
// published in Redis reaches local subscribers.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if !strings.HasPrefix(channel, channelPrefix) {
			return
		}
		h.Deliver(channel, payload)
	})
}

// Shutdown closes every connection and refuses new ones.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	clients := make(map[*Client]struct{})
	for _, m := range h.topics {
		for c := range m {
			clients[c] = struct{}{}
		}
	}
	for client := range clients {
		if client.Conn == nil {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			h.log.LogError(context.Background(), client.UserID, err, "close")
		}
		_ = client.Conn.Close()
	}
	observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
	h.topics = make(map[string]map[*Client]struct{})
	h.perUser = make(map[string]int)
	h.totalConns = 0
	return nil
}
