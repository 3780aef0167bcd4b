package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler upgrades authenticated HTTP requests to chat connections
type Handler struct {
	hub      *Hub
	messages *MessageHandler
	upgrader websocket.Upgrader
	// ctx outlives single requests; connections stop with the server
	ctx    context.Context
	logger zerolog.Logger
}

// NewHandler creates a new WebSocket handler. allowedOrigins lists the
// browser origins that may connect; "*" allows any.
func NewHandler(ctx context.Context, hub *Hub, messages *MessageHandler, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		messages: messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		ctx:    ctx,
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleConnection godoc
// @Summary Open the real-time chat connection
// @Description Upgrades to a WebSocket. Send join_room with your own userId to start receiving receive_message events.
// @Tags chat
// @Param token query string false "Access token when the Authorization header cannot be set"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} dto.APIResponse
// @Router /chat/ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID, ok := c.Get("userID")
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	uid, ok := userID.(int64)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn().Err(err).Int64("userID", uid).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := NewClient(h.hub, conn, uid, h.logger)
	h.hub.Register(client)

	go client.writePump()
	go client.readPump(h.ctx, h.messages)

	h.logger.Info().
		Str("connID", client.ID()).
		Int64("userID", uid).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}
