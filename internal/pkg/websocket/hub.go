package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// presenceTimeout bounds the presence store calls made on disconnect
const presenceTimeout = 2 * time.Second

// Hub owns every live connection on this instance. A single goroutine (Run)
// handles registration, channel joins and deliveries, so deliveries to one
// user are enqueued in the order they were dispatched.
type Hub struct {
	// connections that have not closed yet
	conns map[*Client]struct{}

	// joined connections keyed by user channel
	channels map[int64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan *Client
	deliver    chan delivery
	done       chan struct{}

	// live joined connections per user, readable outside the loop
	mu     sync.RWMutex
	online map[int64]int

	presence Presence
	logger   zerolog.Logger
}

// delivery targets either one connection or every connection of userID
type delivery struct {
	userID int64
	client *Client
	data   []byte
}

// NewHub creates a new Hub. presence may be nil.
func NewHub(presence Presence, logger zerolog.Logger) *Hub {
	return &Hub{
		conns:      make(map[*Client]struct{}),
		channels:   make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan *Client),
		deliver:    make(chan delivery),
		done:       make(chan struct{}),
		online:     make(map[int64]int),
		presence:   presence,
		logger:     logger,
	}
}

// Run processes hub events until ctx is cancelled, then closes every
// connection's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.conns {
				h.remove(c)
			}
			h.logger.Info().Msg("WebSocket hub stopped")
			return

		case c := <-h.register:
			h.conns[c] = struct{}{}
			h.logger.Debug().Str("connID", c.id).Int64("userID", c.userID).Msg("Client registered")

		case c := <-h.unregister:
			h.remove(c)

		case c := <-h.join:
			h.subscribe(c)

		case d := <-h.deliver:
			if d.client != nil {
				if _, ok := h.conns[d.client]; ok {
					h.sendTo(d.client, d.data)
				}
				continue
			}
			h.fanOut(d)
		}
	}
}

func (h *Hub) subscribe(c *Client) {
	if _, ok := h.conns[c]; !ok || c.joined {
		return
	}
	if _, ok := h.channels[c.userID]; !ok {
		h.channels[c.userID] = make(map[*Client]struct{})
	}
	h.channels[c.userID][c] = struct{}{}
	c.joined = true

	h.mu.Lock()
	h.online[c.userID]++
	h.mu.Unlock()

	h.logger.Info().Str("connID", c.id).Int64("userID", c.userID).Msg("Client joined channel")
}

// remove drops c from every index and closes its send channel. It runs on
// the hub goroutine only, so it never waits on another hub event.
func (h *Hub) remove(c *Client) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	close(c.send)

	if !c.joined {
		return
	}
	if subs, ok := h.channels[c.userID]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.channels, c.userID)
		}
	}

	h.mu.Lock()
	h.online[c.userID]--
	last := h.online[c.userID] <= 0
	if last {
		delete(h.online, c.userID)
	}
	h.mu.Unlock()

	if last && h.presence != nil {
		userID := c.userID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
			defer cancel()
			if err := h.presence.Remove(ctx, userID); err != nil {
				h.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to clear presence")
			}
		}()
	}

	h.logger.Info().Str("connID", c.id).Int64("userID", c.userID).Msg("Client left channel")
}

// fanOut hands data to every connection joined to the user's channel without
// blocking. A connection whose buffer is full is dropped.
func (h *Hub) fanOut(d delivery) {
	subs, ok := h.channels[d.userID]
	if !ok {
		h.logger.Debug().Int64("userID", d.userID).Msg("No live connection for delivery")
		return
	}

	for c := range subs {
		h.sendTo(c, d.data)
	}
}

func (h *Hub) sendTo(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn().Str("connID", c.id).Int64("userID", c.userID).Msg("Dropping slow client")
		h.remove(c)
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a connection and closes its send channel
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join subscribes a registered connection to its user's channel
func (h *Hub) Join(c *Client) {
	select {
	case h.join <- c:
	case <-h.done:
	}
}

// Dispatch delivers an event to the receiver's live connections on this
// instance. It is the Bus handler.
func (h *Hub) Dispatch(e Event) {
	data, err := json.Marshal(Envelope{Type: e.Type, Payload: e.Payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", e.Type).Msg("Failed to encode event")
		return
	}

	select {
	case h.deliver <- delivery{userID: e.ReceiverID, data: data}:
	case <-h.done:
	}
}

// Reply delivers a frame to a single connection
func (h *Hub) Reply(c *Client, data []byte) {
	select {
	case h.deliver <- delivery{client: c, data: data}:
	case <-h.done:
	}
}

// IsOnline reports whether the user has a joined connection here or, when a
// presence store is configured, on any instance.
func (h *Hub) IsOnline(ctx context.Context, userID int64) (bool, error) {
	h.mu.RLock()
	n := h.online[userID]
	h.mu.RUnlock()
	if n > 0 {
		return true, nil
	}
	if h.presence == nil {
		return false, nil
	}
	return h.presence.IsOnline(ctx, userID)
}

// ConnectionCount returns the number of joined connections for a user
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID]
}
