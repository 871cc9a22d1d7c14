// Package websocket pushes live-reload notifications to preview browsers.
//
// Manager follows the hub pattern: one goroutine owns the client set and is
// the only writer to client send channels, so registration, removal and
// broadcasting never race.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/pagecraft/internal/logging"
	"github.com/conneroisu/pagecraft/internal/validation"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Manager handles WebSocket connection management and broadcasting.
type Manager struct {
	clients      map[*Client]struct{}
	clientsMutex sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	allowedOrigins []string
	logger         logging.Logger
	now            func() time.Time

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	shutdownOnce sync.Once
	isShutdown   atomic.Bool
}

// NewManager creates a manager that accepts connections whose Origin is in
// allowedOrigins and starts its hub.
func NewManager(allowedOrigins []string, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		clients:        make(map[*Client]struct{}),
		broadcast:      make(chan []byte, 32),
		register:       make(chan *Client, 32),
		unregister:     make(chan *Client, 32),
		allowedOrigins: allowedOrigins,
		logger:         logger.WithComponent("websocket"),
		now:            time.Now,
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	go m.runHub()
	return m
}

// HandleWebSocket upgrades a preview browser connection.
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if m.isShutdown.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if err := validation.ValidateOrigin(r.Header.Get("Origin"), m.allowedOrigins); err != nil {
		m.logger.Warn(r.Context(), err, "WebSocket connection rejected", "remote_addr", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin was validated above.
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		m.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote_addr", r.RemoteAddr)
		return
	}

	client := &Client{
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		remoteAddr:  r.RemoteAddr,
		connectedAt: m.now(),
	}

	select {
	case m.register <- client:
	case <-m.ctx.Done():
		conn.Close(websocket.StatusServiceRestart, "Server shutting down")
		return
	}

	m.writePump(client)
}

// writePump delivers queued messages until the client goes away or the
// manager shuts down. Incoming frames are discarded.
func (m *Manager) writePump(client *Client) {
	readCtx := client.conn.CloseRead(m.ctx)
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer func() {
		select {
		case m.unregister <- client:
		case <-m.ctx.Done():
		}
		client.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				m.logger.Debug(m.ctx, "WebSocket write failed", "remote_addr", client.remoteAddr, "error", err.Error())
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		case <-readCtx.Done():
			return
		}
	}
}

func (m *Manager) runHub() {
	defer close(m.done)
	for {
		select {
		case client := <-m.register:
			m.clientsMutex.Lock()
			m.clients[client] = struct{}{}
			total := len(m.clients)
			m.clientsMutex.Unlock()

			if greeting, err := json.Marshal(Message{Type: MessageConnected, Timestamp: m.now()}); err == nil {
				client.send <- greeting
			}
			m.logger.Debug(m.ctx, "WebSocket client connected", "clients", total)

		case client := <-m.unregister:
			m.removeClient(client)

		case message := <-m.broadcast:
			m.clientsMutex.RLock()
			clients := make([]*Client, 0, len(m.clients))
			for c := range m.clients {
				clients = append(clients, c)
			}
			m.clientsMutex.RUnlock()

			for _, c := range clients {
				select {
				case c.send <- message:
				default:
					// Slow client: disconnect it.
					m.removeClient(c)
				}
			}

		case <-m.ctx.Done():
			m.clientsMutex.Lock()
			for c := range m.clients {
				close(c.send)
			}
			m.clients = make(map[*Client]struct{})
			m.clientsMutex.Unlock()
			return
		}
	}
}

func (m *Manager) removeClient(client *Client) {
	m.clientsMutex.Lock()
	_, exists := m.clients[client]
	if exists {
		delete(m.clients, client)
		close(client.send)
	}
	total := len(m.clients)
	m.clientsMutex.Unlock()

	if exists {
		m.logger.Debug(m.ctx, "WebSocket client disconnected", "clients", total)
	}
}

// Broadcast queues msg for every connected client. It never blocks; when the
// queue is full the message is dropped.
func (m *Manager) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error(m.ctx, err, "Failed to marshal broadcast message")
		return
	}

	select {
	case m.broadcast <- data:
	case <-m.ctx.Done():
	default:
		m.logger.Warn(m.ctx, nil, "Broadcast queue full, dropping message", "type", msg.Type)
	}
}

// ConnectedClients returns the number of connected clients.
func (m *Manager) ConnectedClients() int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()
	return len(m.clients)
}

// Shutdown stops the hub and disconnects every client.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.isShutdown.Store(true)
		m.cancel()
	})

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown reports whether Shutdown has been called.
func (m *Manager) IsShutdown() bool {
	return m.isShutdown.Load()
}
