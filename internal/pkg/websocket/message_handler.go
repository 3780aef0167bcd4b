package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
)

// handleTimeout bounds the work done for one inbound frame
const handleTimeout = 5 * time.Second

// MessageSender persists a chat message and publishes it to the receiver
type MessageSender interface {
	SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error)
}

// MessageHandler routes inbound client frames
type MessageHandler struct {
	sender   MessageSender
	hub      *Hub
	presence Presence
	logger   zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler. presence may be nil.
func NewMessageHandler(sender MessageSender, hub *Hub, presence Presence, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		sender:   sender,
		hub:      hub,
		presence: presence,
		logger:   logger,
	}
}

// HandleFrame decodes one frame from c and acts on it. Failures are reported
// to the originating connection as error events.
func (h *MessageHandler) HandleFrame(ctx context.Context, c *Client, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.reply(EventError, ErrorPayload{Code: "bad_frame", Message: "frame is not valid JSON"})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	switch env.Type {
	case EventJoinRoom:
		h.handleJoin(ctx, c, env.Payload)
	case EventSendMessage:
		h.handleSend(ctx, c, env.Payload)
	default:
		c.reply(EventError, ErrorPayload{Event: env.Type, Code: "unknown_event", Message: "unsupported event type"})
	}
}

func (h *MessageHandler) handleJoin(ctx context.Context, c *Client, raw json.RawMessage) {
	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.reply(EventError, ErrorPayload{Event: EventJoinRoom, Code: "bad_payload", Message: "invalid join payload"})
		return
	}
	if p.UserID != c.userID {
		c.reply(EventError, ErrorPayload{Event: EventJoinRoom, Code: "forbidden", Message: "you can only join your own channel"})
		return
	}

	h.hub.Join(c)
	h.touchPresence(ctx, c)
	c.reply(EventJoined, JoinRoomPayload{UserID: c.userID})
}

func (h *MessageHandler) handleSend(ctx context.Context, c *Client, raw json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.reply(EventError, ErrorPayload{Event: EventSendMessage, Code: "bad_payload", Message: "invalid message payload"})
		return
	}
	if p.SenderID != 0 && p.SenderID != c.userID {
		c.reply(EventError, ErrorPayload{Event: EventSendMessage, Code: "forbidden", Message: "senderId does not match the authenticated user"})
		return
	}

	msg, err := h.sender.SendMessage(ctx, c.userID, p.ReceiverID, p.Content)
	if err != nil {
		code := errorCode(err)
		message := err.Error()
		if code == "internal" {
			h.logger.Error().Err(err).Int64("senderID", c.userID).Msg("Failed to send chat message")
			message = "failed to send message"
		}
		c.reply(EventError, ErrorPayload{Event: EventSendMessage, Code: code, Message: message})
		return
	}

	c.reply(EventMessageSent, msg)
}

func (h *MessageHandler) touchPresence(ctx context.Context, c *Client) {
	if h.presence == nil {
		return
	}
	if err := h.presence.Touch(ctx, c.userID); err != nil {
		h.logger.Warn().Err(err).Int64("userID", c.userID).Msg("Failed to refresh presence")
	}
}

func errorCode(err error) string {
	switch apperrors.Kind(err) {
	case apperrors.ErrPermissionDenied:
		return "forbidden"
	case apperrors.ErrResourceNotFound:
		return "not_found"
	case apperrors.ErrInvalidArgument:
		return "invalid_argument"
	case apperrors.ErrConflict, apperrors.ErrInvalidState:
		return "conflict"
	case apperrors.ErrUnavailable:
		return "unavailable"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "internal"
}
