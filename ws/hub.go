// server/ws/hub.go
package ws

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ViniZap4/noteful-server/domain"
)

const (
	NoteCreated = "note_created"
	NoteUpdated = "note_updated"
	NoteDeleted = "note_deleted"
)

const clientBuffer = 32

type Message struct {
	Type string       `json:"type"`
	Note *domain.Note `json:"note,omitempty"`
}

// Conn is the part of a websocket connection the hub uses.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Client is one subscriber. It only ever receives events about notes
// owned by its user.
type Client struct {
	userID string
	send   chan Message
}

func (c *Client) Messages() <-chan Message {
	return c.send
}

type event struct {
	userID string
	msg    Message
}

// Hub fans note events out to the owner's connected clients. The client
// set is only touched by the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With().Str("component", "ws").Logger(),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}

		case ev := <-h.broadcast:
			for c := range h.clients {
				if c.userID != ev.userID {
					continue
				}
				select {
				case c.send <- ev.msg:
				default:
					h.log.Warn().Str("user_id", c.userID).Msg("dropping slow websocket client")
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues an event for userID's clients. It never blocks a
// request: when the queue is full the event is dropped.
func (h *Hub) Broadcast(userID, msgType string, note *domain.Note) {
	select {
	case h.broadcast <- event{userID: userID, msg: Message{Type: msgType, Note: note}}:
	default:
		h.log.Warn().Str("type", msgType).Msg("event queue full, dropping")
	}
}

// Register adds a client for userID. It returns nil once the hub has
// stopped.
func (h *Hub) Register(userID string) *Client {
	c := &Client{userID: userID, send: make(chan Message, clientBuffer)}
	select {
	case h.register <- c:
		return c
	case <-h.done:
		return nil
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// HandleConnection pumps userID's events into conn until either side
// goes away. It returns only after its reader has stopped touching conn,
// since the caller may recycle the connection once this returns.
func (h *Hub) HandleConnection(conn Conn, userID string) {
	client := h.Register(userID)
	if client == nil {
		conn.Close()
		return
	}
	defer h.Unregister(client)

	closed := make(chan struct{})
	defer func() {
		conn.Close()
		<-closed
	}()

	go func() {
		defer close(closed)
		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msgType, ok := msg["type"].(string); ok && msgType == "subscribe" {
				h.log.Debug().Str("user_id", userID).Msg("client subscribed")
			}
		}
	}()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Str("user_id", userID).Msg("websocket write failed")
				return
			}
		case <-closed:
			return
		}
	}
}
