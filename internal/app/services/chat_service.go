package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	appAuth "github.com/yigit/mentorconnect/internal/app/auth"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/repositories"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/websocket"
)

// ChatService defines the interface for direct messaging between a student
// and their mentor
type ChatService interface {
	SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error)
	GetHistory(ctx context.Context, viewerID, otherID int64) ([]*models.Message, error)
	MarkRead(ctx context.Context, readerID, otherID int64) (int64, error)
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

// ChatOptions tunes message validation
type ChatOptions struct {
	RequirePairing   bool
	MaxMessageLength int
}

// chatServiceImpl implements ChatService
type chatServiceImpl struct {
	userRepo    repositories.IUserRepository
	messageRepo repositories.IMessageRepository
	authz       *appAuth.AuthorizationService
	bus         websocket.Bus
	hub         *websocket.Hub
	opts        ChatOptions
	logger      zerolog.Logger
}

var _ websocket.MessageSender = (*chatServiceImpl)(nil)

// NewChatService creates a new ChatService
func NewChatService(
	userRepo repositories.IUserRepository,
	messageRepo repositories.IMessageRepository,
	authz *appAuth.AuthorizationService,
	bus websocket.Bus,
	hub *websocket.Hub,
	opts ChatOptions,
	logger zerolog.Logger,
) ChatService {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = models.MaxMessageLength
	}
	return &chatServiceImpl{
		userRepo:    userRepo,
		messageRepo: messageRepo,
		authz:       authz,
		bus:         bus,
		hub:         hub,
		opts:        opts,
		logger:      logger,
	}
}

// checkCounterpart verifies that a and b may talk to each other
func (s *chatServiceImpl) checkCounterpart(ctx context.Context, a, b int64) error {
	if a == b {
		return apperrors.NewInvalidArgumentError("cannot chat with yourself")
	}
	if s.opts.RequirePairing {
		_, _, err := s.authz.RequirePairing(ctx, a, b)
		return err
	}
	_, err := s.userRepo.GetByID(ctx, b)
	return err
}

// SendMessage stores the message and then publishes it to the receiver's
// channel. A failed publish is logged; the message is already persisted and
// shows up in history.
func (s *chatServiceImpl) SendMessage(ctx context.Context, senderID, receiverID int64, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewInvalidArgumentError("message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > s.opts.MaxMessageLength {
		return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("message cannot exceed %d characters", s.opts.MaxMessageLength))
	}
	if err := s.checkCounterpart(ctx, senderID, receiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	event, err := websocket.NewEvent(websocket.EventReceiveMessage, receiverID, msg)
	if err != nil {
		s.logger.Error().Err(err).Int64("messageID", msg.ID).Msg("Failed to encode chat event")
		return msg, nil
	}
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Int64("messageID", msg.ID).Int64("receiverID", receiverID).Msg("Failed to publish chat message")
	}

	s.logger.Debug().Int64("messageID", msg.ID).Int64("senderID", senderID).Int64("receiverID", receiverID).Msg("Chat message sent")
	return msg, nil
}

func (s *chatServiceImpl) GetHistory(ctx context.Context, viewerID, otherID int64) ([]*models.Message, error) {
	if err := s.checkCounterpart(ctx, viewerID, otherID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListConversation(ctx, viewerID, otherID, 0)
}

// MarkRead flips every unread message from otherID to readerID
func (s *chatServiceImpl) MarkRead(ctx context.Context, readerID, otherID int64) (int64, error) {
	if readerID == otherID {
		return 0, apperrors.NewInvalidArgumentError("cannot chat with yourself")
	}
	updated, err := s.messageRepo.MarkRead(ctx, readerID, otherID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.logger.Debug().Int64("readerID", readerID).Int64("otherID", otherID).Int64("updated", updated).Msg("Messages marked read")
	}
	return updated, nil
}

func (s *chatServiceImpl) IsOnline(ctx context.Context, userID int64) (bool, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return false, err
	}
	if s.hub == nil {
		return false, nil
	}
	online, err := s.hub.IsOnline(ctx, userID)
	if err != nil {
		return false, apperrors.NewUnavailableError(err)
	}
	return online, nil
}
