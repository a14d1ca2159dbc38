// Package ws provides the websocket chat endpoint and the hub that fans
// conversation events out to connected clients.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"goa.design/clue/log"

	"github.com/emrenamli69/regnum-presentation/internal/domain"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID             string
	ConversationID string
	Conn           *websocket.Conn
	Send           chan []byte
	mu             sync.Mutex
}

// Hub manages all WebSocket connections.
type Hub struct {
	ctx context.Context

	// Connections indexed by connection ID
	connections map[string]*Connection

	// conversations maps conversation_id to set of connection IDs
	conversations map[string]map[string]bool

	unregister chan *Connection
	broadcast  chan *conversationMessage
	// done is closed when Run returns.
	done chan struct{}

	mu sync.RWMutex
}

type conversationMessage struct {
	ConversationID string
	Data           []byte
}

// NewHub creates a new Hub. ctx carries the logger.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		ctx:           ctx,
		connections:   make(map[string]*Connection),
		conversations: make(map[string]map[string]bool),
		unregister:    make(chan *Connection),
		broadcast:     make(chan *conversationMessage, 256),
		done:          make(chan struct{}),
	}
}

// Run starts the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				h.unbindLocked(conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			log.Info(h.ctx, log.KV{K: "msg", V: "connection unregistered"}, log.KV{K: "conn", V: conn.ID})

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.conversations[msg.ConversationID] {
				conn, exists := h.connections[connID]
				if !exists {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					// Buffer full, close the connection
					log.Warn(h.ctx, log.KV{K: "msg", V: "connection buffer full, closing"}, log.KV{K: "conn", V: connID})
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a new connection. It is not registered yet.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register registers a connection with the hub. The connection can receive
// messages as soon as Register returns.
func (h *Hub) Register(conn *Connection) {
	select {
	case <-h.done:
		return
	default:
	}
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	log.Info(h.ctx, log.KV{K: "msg", V: "connection registered"}, log.KV{K: "conn", V: conn.ID})
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BindConversation binds a connection to a conversation, replacing any
// previous binding. Unregistered connections are ignored.
func (h *Hub) BindConversation(conn *Connection, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	h.unbindLocked(conn)
	conn.ConversationID = conversationID
	if h.conversations[conversationID] == nil {
		h.conversations[conversationID] = make(map[string]bool)
	}
	h.conversations[conversationID][conn.ID] = true
}

func (h *Hub) unbindLocked(conn *Connection) {
	if conn.ConversationID == "" || h.conversations[conn.ConversationID] == nil {
		return
	}
	delete(h.conversations[conn.ConversationID], conn.ID)
	if len(h.conversations[conn.ConversationID]) == 0 {
		delete(h.conversations, conn.ConversationID)
	}
}

// Publish sends a stream event to every connection bound to the
// conversation.
func (h *Hub) Publish(conversationID string, event domain.StreamEvent) {
	frame := ChatEventFrame{
		BaseFrame: BaseFrame{Type: TypeChatEvent, Ts: time.Now().UnixMilli(), ConversationID: conversationID},
		Event:     event,
	}
	if err := h.BroadcastJSON(conversationID, frame); err != nil {
		log.Error(h.ctx, err, log.KV{K: "msg", V: "failed to publish event"})
	}
}

// Broadcast sends a message to all connections of a conversation.
func (h *Hub) Broadcast(conversationID string, data []byte) {
	select {
	case h.broadcast <- &conversationMessage{ConversationID: conversationID, Data: data}:
	case <-h.done:
	}
}

// BroadcastJSON sends a JSON message to all connections of a conversation.
func (h *Hub) BroadcastJSON(conversationID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(conversationID, data)
	return nil
}

// SendJSONToConnection sends a JSON message to a specific connection.
// Messages to unregistered connections are dropped.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// Send is closed under mu on unregister.
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return nil
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// HasSubscribers reports whether a conversation has bound connections.
func (h *Hub) HasSubscribers(conversationID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conversations[conversationID]) > 0
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
