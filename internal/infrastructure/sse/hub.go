package sse

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

var (
	ErrClientNotFound = errors.New("stream client not found")
	ErrChannelFull    = errors.New("stream message channel full")
)

// Event names carried on the stream.
const (
	EventSnapshot  = "snapshot"
	EventHand      = "hand"
	EventTurn      = "turn"
	EventGameEnded = "game_ended"
	// EventError answers a rejected socket intent; only the sender sees it.
	EventError = "error"
)

const clientBuffer = 64

// Message is one outbound event.
type Message struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage encodes v as the payload of event.
func NewMessage(event string, v any) (*Message, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Client is one open stream or socket of a seated player.
type Client struct {
	ClientID    string
	SessionID   uuid.UUID
	PlayerID    uuid.UUID
	ConnectedAt time.Time
	MessageChan chan *Message
}

func NewClient(sessionID, playerID uuid.UUID) *Client {
	return &Client{
		ClientID:    uuid.New().String(),
		SessionID:   sessionID,
		PlayerID:    playerID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *Message, clientBuffer),
	}
}

// Close closes the client's message channel.
func (c *Client) Close() {
	close(c.MessageChan)
}

// TurnNotice is the payload of EventTurn.
type TurnNotice struct {
	SessionID uuid.UUID `json:"sessionId"`
	PlayerID  uuid.UUID `json:"playerId"`
	Turn      int       `json:"turn"`
}

// Hub fans engine notifications out to connected clients. Sends never block;
// a client whose buffer is full misses the message and catches up on the next
// snapshot.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.With().Str("service", "hub").Logger(),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ClientID] = client
}

// Unregister drops a client and reports how many clients the same player still
// has open in that session.
func (h *Hub) Unregister(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[clientID]
	if !ok {
		return 0
	}
	c.Close()
	delete(h.clients, clientID)
	remaining := 0
	for _, other := range h.clients {
		if other.SessionID == c.SessionID && other.PlayerID == c.PlayerID {
			remaining++
		}
	}
	return remaining
}

func (h *Hub) GetClient(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[clientID]
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) BroadcastToSession(sessionID uuid.UUID, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.SessionID == sessionID {
			h.trySend(c, message)
		}
	}
}

func (h *Hub) SendToPlayer(sessionID, playerID uuid.UUID, message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.SessionID == sessionID && c.PlayerID == playerID {
			h.trySend(c, message)
		}
	}
}

func (h *Hub) SendToClient(clientID string, message *Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c := h.clients[clientID]
	if c == nil {
		return ErrClientNotFound
	}
	if !h.trySend(c, message) {
		return ErrChannelFull
	}
	return nil
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) PublishSnapshot(snap *game.Snapshot) {
	if msg := h.encode(EventSnapshot, snap); msg != nil {
		h.BroadcastToSession(snap.SessionID, msg)
	}
}

func (h *Hub) PublishPrivate(view *game.PrivateView) {
	if msg := h.encode(EventHand, view); msg != nil {
		h.SendToPlayer(view.SessionID, view.PlayerID, msg)
	}
}

func (h *Hub) PublishTurn(sessionID, playerID uuid.UUID, turn int) {
	notice := TurnNotice{SessionID: sessionID, PlayerID: playerID, Turn: turn}
	if msg := h.encode(EventTurn, notice); msg != nil {
		h.SendToPlayer(sessionID, playerID, msg)
	}
}

func (h *Hub) PublishGameEnded(result *game.GameResult) {
	if msg := h.encode(EventGameEnded, result); msg != nil {
		h.BroadcastToSession(result.SessionID, msg)
	}
}

func (h *Hub) encode(event string, v any) *Message {
	msg, err := NewMessage(event, v)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to encode message")
		return nil
	}
	return msg
}

func (h *Hub) trySend(c *Client, msg *Message) bool {
	select {
	case c.MessageChan <- msg:
		return true
	default:
		h.logger.Debug().
			Str("client_id", c.ClientID).
			Str("event", msg.Event).
			Msg("client buffer full, message dropped")
		return false
	}
}
