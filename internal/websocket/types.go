package websocket

import (
	"time"

	"github.com/coder/websocket"
)

// MessageType names a message sent to preview browsers.
type MessageType string

const (
	// MessageConnected greets a newly registered client.
	MessageConnected MessageType = "connected"
	// MessageReload tells the browser to fetch the page again.
	MessageReload MessageType = "reload"
	// MessageError reports a failed recompilation.
	MessageError MessageType = "error"
)

// Message represents a message sent to the browser
type Message struct {
	Type      MessageType `json:"type"`
	PageID    string      `json:"pageId,omitempty"`
	Checksum  string      `json:"checksum,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client represents a WebSocket client connection
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	remoteAddr  string
	connectedAt time.Time
}
