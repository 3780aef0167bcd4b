package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/app/services"
	"github.com/yigit/mentorconnect/internal/middleware"
)

// ChatController handles chat message operations. Live delivery runs over
// the websocket handler; these endpoints cover history and the fallback
// send path.
type ChatController struct {
	chatService services.ChatService
	logger      zerolog.Logger
}

// NewChatController creates a new ChatController
func NewChatController(chatService services.ChatService, logger zerolog.Logger) *ChatController {
	return &ChatController{
		chatService: chatService,
		logger:      logger,
	}
}

// GetHistory godoc
// @Summary Conversation history
// @Description Messages between the caller and another user, oldest first
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Other user ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Message}
// @Failure 400 {object} dto.ErrorResponse "Cannot chat with yourself"
// @Failure 403 {object} dto.ErrorResponse "Users are not paired"
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Router /chat/{userId} [get]
func (c *ChatController) GetHistory(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	otherID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	messages, err := c.chatService.GetHistory(ctx.Request.Context(), userID, otherID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(messages, ""))
}

// MarkRead godoc
// @Summary Mark a conversation as read
// @Description Marks every unread message sent by the other user to the caller as read
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Other user ID"
// @Success 200 {object} dto.APIResponse{data=dto.MarkReadResponse}
// @Failure 403 {object} dto.ErrorResponse "Users are not paired"
// @Router /chat/{userId}/read [put]
func (c *ChatController) MarkRead(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	otherID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	updated, err := c.chatService.MarkRead(ctx.Request.Context(), userID, otherID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.MarkReadResponse{Updated: updated}, ""))
}

// SendMessage godoc
// @Summary Send a message
// @Description Stores the message and pushes it to the receiver's live connections. Clients without a websocket use this.
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SendMessageRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=models.Message}
// @Failure 400 {object} dto.ErrorResponse "Empty or oversized message"
// @Failure 403 {object} dto.ErrorResponse "Users are not paired"
// @Router /chat/messages [post]
func (c *ChatController) SendMessage(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	msg, err := c.chatService.SendMessage(ctx.Request.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(msg, ""))
}

// GetPresence godoc
// @Summary Is a user online
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param userId path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.PresenceResponse}
// @Failure 404 {object} dto.ErrorResponse "User not found"
// @Failure 503 {object} dto.ErrorResponse "Presence store unavailable"
// @Router /chat/presence/{userId} [get]
func (c *ChatController) GetPresence(ctx *gin.Context) {
	if _, ok := callerID(ctx); !ok {
		return
	}
	userID, ok := pathID(ctx, "userId")
	if !ok {
		return
	}

	online, err := c.chatService.IsOnline(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.PresenceResponse{UserID: userID, Online: online}, ""))
}
