package websocket

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size
	maxMessageSize = 16 * 1024

	// Outbound frames buffered per connection before it counts as slow
	sendBufferSize = 64
)

// Client is one websocket connection of an authenticated user
type Client struct {
	id     string
	userID int64
	hub    *Hub

	// nil in tests that drive the hub without a socket
	conn *websocket.Conn

	// Buffered channel of outbound frames; closed by the hub
	send chan []byte

	// set by the hub goroutine once the connection joined its channel
	joined bool

	logger zerolog.Logger
}

// NewClient creates a client for userID. conn may be nil when the caller
// only reads from Send.
func NewClient(hub *Hub, conn *websocket.Conn, userID int64, logger zerolog.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With().Str("connID", id).Int64("userID", userID).Logger(),
	}
}

// ID returns the connection id
func (c *Client) ID() string { return c.id }

// UserID returns the authenticated user of the connection
func (c *Client) UserID() int64 { return c.userID }

// Send exposes the outbound frames
func (c *Client) Send() <-chan []byte { return c.send }

// reply queues a frame for this connection only
func (c *Client) reply(eventType string, payload any) {
	frame, err := encodeFrame(eventType, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("type", eventType).Msg("Failed to encode reply")
		return
	}
	c.hub.Reply(c, frame)
}

// readPump reads client events until the connection fails, then unregisters
func (c *Client) readPump(ctx context.Context, handler *MessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		handler.touchPresence(ctx, c)
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Msg("WebSocket closed normally")
			} else if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().Err(err).Msg("WebSocket read error")
			}
			return
		}

		handler.HandleFrame(ctx, c, message)
	}
}

// writePump writes queued frames and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
