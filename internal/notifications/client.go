package notifications

import (
	"log/slog"
	"sync"
	"time"

	"pressroom/internal/middleware"
	"pressroom/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 32
)

// WSHub is the part of a hub a client reports back to.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is a middleman between a thread websocket connection and the hub.
type Client struct {
	Hub WSHub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound messages. Closed on unregister.
	Send chan []byte

	// PostID is the thread being watched.
	PostID uint

	// CallerID is empty for anonymous viewers.
	CallerID string

	sendMu sync.Mutex
	closed bool
	// closeFrame is the payload WritePump sends once Send is closed.
	closeFrame []byte
}

// NewClient creates a new Client instance
func NewClient(hub WSHub, conn *websocket.Conn, postID uint, callerID string) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		PostID:   postID,
		CallerID: callerID,
		Send:     make(chan []byte, sendBuffer),
	}
}

// ReadPump drains the connection until it closes, then unregisters the
// client. Viewers do not send anything meaningful; reading keeps pong
// handling and close detection running.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { _ = c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Debug("thread websocket read failed",
					slog.Uint64("post_id", uint64(c.PostID)),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, c.pendingCloseFrame())
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues message without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) TrySend(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		return false
	}
}

func (c *Client) closeSend() {
	c.closeSendWith(nil)
}

// closeSendWith closes Send so that WritePump, the connection's only
// writer, ends the session with frame as its close payload.
func (c *Client) closeSendWith(frame []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeFrame = frame
		close(c.Send)
	}
}

func (c *Client) pendingCloseFrame() []byte {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closeFrame == nil {
		return []byte{}
	}
	return c.closeFrame
}
