// Package hub fans run events out to WebSocket subscribers.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents a single WebSocket subscriber of one run.
type Connection struct {
	ID    string
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte
	mu    sync.Mutex
}

// Hub manages all WebSocket subscriptions.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Runs maps run_id to set of connection IDs
	runs map[string]map[string]bool

	// Channels for registration/unregistration
	register   chan *Connection
	unregister chan *Connection

	// Broadcast channel for sending to the subscribers of a run
	broadcast chan *RunMessage

	done   chan struct{}
	logger *slog.Logger
	mu     sync.RWMutex
}

// RunMessage is used to broadcast a message to a run's subscribers.
type RunMessage struct {
	RunID string
	Data  []byte
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		connections: make(map[string]*Connection),
		runs:        make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *RunMessage, 256),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run starts the hub's main loop and blocks until ctx is done. On exit every
// subscriber's send channel is closed.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for id, conn := range h.connections {
			close(conn.Send)
			delete(h.connections, id)
		}
		h.runs = make(map[string]map[string]bool)
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.runs[conn.RunID] == nil {
				h.runs[conn.RunID] = make(map[string]bool)
			}
			h.runs[conn.RunID][conn.ID] = true
			h.mu.Unlock()
			h.logger.Debug("subscriber registered", "conn_id", conn.ID, "run_id", conn.RunID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if h.runs[conn.RunID] != nil {
					delete(h.runs[conn.RunID], conn.ID)
					if len(h.runs[conn.RunID]) == 0 {
						delete(h.runs, conn.RunID)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			h.logger.Debug("subscriber unregistered", "conn_id", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if connIDs, ok := h.runs[msg.RunID]; ok {
				for connID := range connIDs {
					if conn, exists := h.connections[connID]; exists {
						select {
						case conn.Send <- msg.Data:
						default:
							// Buffer full, drop the subscriber
							h.logger.Warn("subscriber too slow, closing", "conn_id", connID, "run_id", msg.RunID)
							go h.Unregister(conn)
						}
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a subscriber of runID. It is not registered yet.
func (h *Hub) NewConnection(ws *websocket.Conn, runID string) *Connection {
	return &Connection{
		ID:    uuid.New().String(),
		RunID: runID,
		Conn:  ws,
		Send:  make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish sends v as JSON to every subscriber of runID. It never blocks: when
// the broadcast queue is full the message is dropped.
func (h *Hub) Publish(runID string, v interface{}) error {
	if !h.HasSubscribers(runID) {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &RunMessage{RunID: runID, Data: data}:
	default:
		h.logger.Warn("broadcast queue full, dropping message", "run_id", runID)
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasSubscribers checks if a run has any active subscribers.
func (h *Hub) HasSubscribers(runID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	connIDs, ok := h.runs[runID]
	return ok && len(connIDs) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
