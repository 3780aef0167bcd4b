package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/app/services"
	"github.com/yigit/mentorconnect/internal/middleware"
)

// MentorshipController serves the mentor directory, mentorship requests and
// notification counters
type MentorshipController struct {
	mentorshipService services.MentorshipService
	logger            zerolog.Logger
}

// NewMentorshipController creates a new MentorshipController
func NewMentorshipController(mentorshipService services.MentorshipService, logger zerolog.Logger) *MentorshipController {
	return &MentorshipController{
		mentorshipService: mentorshipService,
		logger:            logger,
	}
}

// GetPairingView godoc
// @Summary Mentor directory or pairing
// @Description Unpaired students get the mentor directory. Paired students get their mentor, mentors get their students.
// @Tags mentors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.PairingView}
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /mentors [get]
func (c *MentorshipController) GetPairingView(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	view, err := c.mentorshipService.GetPairingView(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(view, ""))
}

// UpdateAvailability godoc
// @Summary Update mentor availability
// @Tags mentors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateAvailabilityRequest true "New availability"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid availability"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a mentor"
// @Router /mentors/availability [patch]
func (c *MentorshipController) UpdateAvailability(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.UpdateAvailabilityRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	if err := c.mentorshipService.UpdateAvailability(ctx.Request.Context(), userID, req.Availability); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(req, "Availability updated"))
}

// RateMentor godoc
// @Summary Rate your mentor
// @Description A student rates their assigned mentor from 1 to 5. Rating again replaces the previous review.
// @Tags mentors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Mentor ID"
// @Param request body dto.RateMentorRequest true "Rating"
// @Success 200 {object} dto.APIResponse{data=models.User} "Mentor with the updated average"
// @Failure 400 {object} dto.ErrorResponse "Rating out of range"
// @Failure 403 {object} dto.ErrorResponse "Not paired with this mentor"
// @Failure 404 {object} dto.ErrorResponse "Mentor not found"
// @Router /mentors/{id}/rate [post]
func (c *MentorshipController) RateMentor(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	mentorID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.RateMentorRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	mentor, err := c.mentorshipService.RateMentor(ctx.Request.Context(), userID, mentorID, req.Rating, req.Comment)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(mentor, "Thanks for your feedback"))
}

// SendRequest godoc
// @Summary Request a mentor
// @Description A student with no mentor and no pending request asks a mentor for mentorship
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SendRequestRequest true "Target mentor and message"
// @Success 201 {object} dto.APIResponse{data=models.MentorshipRequest}
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a student"
// @Failure 404 {object} dto.ErrorResponse "Mentor not found"
// @Failure 409 {object} dto.ErrorResponse "Already paired, pending or previously requested"
// @Router /requests/send [post]
func (c *MentorshipController) SendRequest(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.SendRequestRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	request, err := c.mentorshipService.SendRequest(ctx.Request.Context(), userID, req.MentorID, req.Message)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("requestID", request.ID).
		Int64("studentID", userID).
		Int64("mentorID", req.MentorID).
		Msg("Mentorship request sent")

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(request, "Request sent"))
}

// RespondRequest godoc
// @Summary Accept or reject a request
// @Tags requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param request body dto.RespondRequestRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=models.MentorshipRequest}
// @Failure 400 {object} dto.ErrorResponse "Decision is neither accepted nor rejected"
// @Failure 403 {object} dto.ErrorResponse "Request addressed to another mentor"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Request already answered or student already paired"
// @Router /requests/{id}/respond [patch]
func (c *MentorshipController) RespondRequest(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	requestID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.RespondRequestRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	request, err := c.mentorshipService.Respond(ctx.Request.Context(), requestID, userID, req.Status, req.ResponseMessage)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int64("requestID", requestID).
		Str("status", string(request.Status)).
		Msg("Mentorship request answered")

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(request, ""))
}

// ListMyRequests godoc
// @Summary Requests sent by the caller
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.MentorshipRequest}
// @Failure 403 {object} dto.ErrorResponse "Caller is not a student"
// @Router /requests/my-requests [get]
func (c *MentorshipController) ListMyRequests(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	requests, err := c.mentorshipService.ListMyRequests(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(requests, ""))
}

// ListPendingRequests godoc
// @Summary Pending requests addressed to the caller
// @Tags requests
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.MentorshipRequest}
// @Failure 403 {object} dto.ErrorResponse "Caller is not a mentor"
// @Router /requests/pending [get]
func (c *MentorshipController) ListPendingRequests(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	requests, err := c.mentorshipService.ListPendingRequests(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(requests, ""))
}

// UnreadNotifications godoc
// @Summary Unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UnreadNotificationsResponse}
// @Router /notifications/unread [get]
func (c *MentorshipController) UnreadNotifications(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	unread, err := c.mentorshipService.UnreadNotifications(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.UnreadNotificationsResponse{Unread: unread}, ""))
}

// ClearNotifications godoc
// @Summary Reset the unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UnreadNotificationsResponse}
// @Router /notifications/clear [post]
func (c *MentorshipController) ClearNotifications(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	if err := c.mentorshipService.ClearNotifications(ctx.Request.Context(), userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.UnreadNotificationsResponse{Unread: 0}, "Notifications cleared"))
}
