package gateway

import (
	"time"

	"github.com/gorilla/websocket"
)

// Client represents one subscriber session connected to this instance.
// A single user may hold multiple connections, each maintained separately.
type Client struct {
	ConnID string          // Unique connection ID (unique within the local instance)
	UserID string          // User ID supplied by the transport layer
	WS     *websocket.Conn // WebSocket connection object
	Send   chan []byte     // Outbound frame queue (consumed by a single writer goroutine)
}

// NewClient creates a new client connection object.
func NewClient(connID, userID string, ws *websocket.Conn, sendQueueSize int) *Client {
	return &Client{
		ConnID: connID,
		UserID: userID,
		WS:     ws,
		Send:   make(chan []byte, sendQueueSize),
	}
}

// WritePump drains Send onto the wire; the single writer rule keeps
// gorilla/websocket happy. Returns when Send is closed or a write fails.
func (c *Client) WritePump() {
	for payload := range c.Send {
		_ = c.WS.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}
