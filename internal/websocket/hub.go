package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
)

const (
	EventApprovalStatus      = "approval_status"
	EventRegistrationPending = "registration_pending"
	EventPong                = "pong"

	maxMessagesPerSecond = 10
	sendBufferSize       = 64
)

// Event is the JSON frame pushed to connected clients.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, CreatedAt: time.Now().UTC()}
}

// ClientMessage is what a client may send us. Only "ping" is understood.
type ClientMessage struct {
	Type string `json:"type"`
}

// Client is one websocket session. A user may hold several.
type Client struct {
	Hub           *Hub
	Conn          *Conn
	UserID        uint
	Role          model.Role
	Send          chan []byte
	MessageCount  int
	LastResetTime time.Time
	RateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, userID uint, role model.Role) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Role:   role,
		Send:   make(chan []byte, sendBufferSize),
	}
}

type delivery struct {
	userID  uint
	role    model.Role
	client  *Client
	message []byte
}

// Hub tracks live sessions and fans events out to a user or a role.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *delivery
	done       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *delivery, 1024),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and deliveries until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"role":           client.Role,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.broadcast:
			for _, client := range h.targets(d) {
				select {
				case client.Send <- d.message:
				default:
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": client.UserID,
					})
				}
			}
		}
	}
}

// Stop ends Run and closes every session's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = kept
	}
	close(client.Send)

	logger.Info("WebSocket client unregistered", map[string]interface{}{
		"user_id":            client.UserID,
		"remaining_sessions": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, list := range h.clients {
		for _, c := range list {
			close(c.Send)
		}
		delete(h.clients, userID)
	}
}

func (h *Hub) targets(d *delivery) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if d.client != nil {
		for _, c := range h.clients[d.client.UserID] {
			if c == d.client {
				return []*Client{c}
			}
		}
		return nil
	}
	if d.role == "" {
		return append([]*Client(nil), h.clients[d.userID]...)
	}
	var out []*Client
	for _, list := range h.clients {
		for _, c := range list {
			if c.Role == d.role {
				out = append(out, c)
			}
		}
	}
	return out
}

func (h *Hub) enqueue(d *delivery) {
	select {
	case h.broadcast <- d:
	default:
		// best effort; the email copy still goes out
		logger.Warn("Broadcast channel full, event dropped", map[string]interface{}{
			"user_id": d.userID,
			"role":    d.role,
		})
	}
}

// SendToUser pushes event to every session of userID.
func (h *Hub) SendToUser(userID uint, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal websocket event", err)
		return err
	}
	h.enqueue(&delivery{userID: userID, message: data})
	return nil
}

// SendToRole pushes event to every session whose user has role.
func (h *Hub) SendToRole(role model.Role, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal websocket event", err)
		return err
	}
	h.enqueue(&delivery{role: role, message: data})
	return nil
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// HandleClientMessage answers pings and drops anything else. Clients over
// the per-second budget are ignored.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		data, err := json.Marshal(NewEvent(EventPong, nil))
		if err != nil {
			return
		}
		h.enqueue(&delivery{client: client, message: data})
	}
}
