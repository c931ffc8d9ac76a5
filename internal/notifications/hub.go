package notifications

import (
	"context"
	"errors"
	"sync"

	"pressroom/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per post
	defaultMaxConnsPerPost = 500
	// Max total connections
	defaultMaxTotalConns = 10000
)

var (
	ErrHubFull     = errors.New("server connection limit reached")
	ErrPostFull    = errors.New("thread connection limit reached")
	ErrHubShutdown = errors.New("hub is shutting down")
)

// HubConfig bounds the number of live thread connections.
type HubConfig struct {
	MaxConnsPerPost int
	MaxTotalConns   int
}

// Hub tracks the websocket clients watching each post's thread.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool

	maxPerPost int
	maxTotal   int
	viewers    *ViewerCounter
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "thread hub" }

// NewHub creates a Hub. viewers may be nil.
func NewHub(cfg HubConfig, viewers *ViewerCounter) *Hub {
	if cfg.MaxConnsPerPost <= 0 {
		cfg.MaxConnsPerPost = defaultMaxConnsPerPost
	}
	if cfg.MaxTotalConns <= 0 {
		cfg.MaxTotalConns = defaultMaxTotalConns
	}
	return &Hub{
		conns:      make(map[uint]map[*Client]struct{}),
		maxPerPost: cfg.MaxConnsPerPost,
		maxTotal:   cfg.MaxTotalConns,
		viewers:    viewers,
	}
}

// Register a connection watching postID. Returns the Client or an error if
// limits are exceeded.
func (h *Hub) Register(postID uint, callerID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubShutdown
	}
	if h.totalConns >= h.maxTotal {
		h.mu.Unlock()
		return nil, ErrHubFull
	}

	m, ok := h.conns[postID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[postID] = m
	}
	if len(m) >= h.maxPerPost {
		h.mu.Unlock()
		return nil, ErrPostFull
	}

	client := NewClient(h, conn, postID, callerID)
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	if h.viewers != nil {
		h.viewers.Join(context.Background(), postID)
	}
	return client, nil
}

// UnregisterClient removes client and closes its send buffer.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if m, ok := h.conns[client.PostID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
			removed = true
		}
		if len(m) == 0 {
			delete(h.conns, client.PostID)
		}
	}
	h.mu.Unlock()

	if !removed {
		return
	}
	client.closeSend()
	observability.WebSocketConnectionsTotal.Dec()
	if h.viewers != nil {
		h.viewers.Leave(context.Background(), client.PostID)
	}
}

// Connections returns the number of local connections watching postID.
func (h *Hub) Connections(postID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[postID])
}

// Viewers returns the number of viewers of postID across instances.
func (h *Hub) Viewers(ctx context.Context, postID uint) int64 {
	if h.viewers == nil {
		return int64(h.Connections(postID))
	}
	return h.viewers.Count(ctx, postID)
}

// Shutdown rejects new connections and has every client's WritePump send
// a going-away close frame.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	conns := h.conns
	h.conns = make(map[uint]map[*Client]struct{})
	total := h.totalConns
	h.totalConns = 0
	h.mu.Unlock()

	frame := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
	for _, clients := range conns {
		for client := range clients {
			client.closeSendWith(frame)
		}
	}
	observability.WebSocketConnectionsTotal.Sub(float64(total))

	if h.viewers != nil {
		h.viewers.Reset(ctx)
	}
	return nil
}
