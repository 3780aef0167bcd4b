package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/app/services"
	"github.com/yigit/mentorconnect/internal/middleware"
)

// RoadmapController handles roadmap items, their units and questions
type RoadmapController struct {
	roadmapService services.RoadmapService
	logger         zerolog.Logger
}

// NewRoadmapController creates a new RoadmapController
func NewRoadmapController(roadmapService services.RoadmapService, logger zerolog.Logger) *RoadmapController {
	return &RoadmapController{
		roadmapService: roadmapService,
		logger:         logger,
	}
}

// ListRoadmaps godoc
// @Summary List roadmaps
// @Description Students see roadmaps assigned to them, mentors see the ones they created
// @Tags roadmap
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.RoadmapItem}
// @Router /roadmap [get]
func (c *RoadmapController) ListRoadmaps(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	items, err := c.roadmapService.ListItems(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(items, ""))
}

// CreateRoadmap godoc
// @Summary Create a roadmap
// @Description A mentor creates a roadmap with tasks, videos and assignments for one of their students
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateRoadmapRequest true "Roadmap"
// @Success 201 {object} dto.APIResponse{data=models.RoadmapItem}
// @Failure 400 {object} dto.ErrorResponse "Invalid roadmap"
// @Failure 403 {object} dto.ErrorResponse "Student is not assigned to the caller"
// @Router /roadmap [post]
func (c *RoadmapController) CreateRoadmap(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.CreateRoadmapRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	item, err := c.roadmapService.CreateItem(ctx.Request.Context(), userID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(item, "Roadmap created"))
}

// GetRoadmap godoc
// @Summary Get a roadmap
// @Tags roadmap
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Success 200 {object} dto.APIResponse{data=models.RoadmapItem}
// @Failure 403 {object} dto.ErrorResponse "Caller is not a participant"
// @Failure 404 {object} dto.ErrorResponse "Roadmap not found"
// @Router /roadmap/{id} [get]
func (c *RoadmapController) GetRoadmap(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	item, err := c.roadmapService.GetItem(ctx.Request.Context(), itemID, userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(item, ""))
}

// UpdateRoadmapStatus godoc
// @Summary Change a roadmap's status
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param request body dto.UpdateRoadmapStatusRequest true "Status"
// @Success 200 {object} dto.APIResponse{data=models.RoadmapItem}
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's mentor"
// @Failure 404 {object} dto.ErrorResponse "Roadmap not found"
// @Router /roadmap/{id}/status [patch]
func (c *RoadmapController) UpdateRoadmapStatus(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateRoadmapStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	item, err := c.roadmapService.UpdateItemStatus(ctx.Request.Context(), itemID, userID, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(item, ""))
}

// DeleteRoadmap godoc
// @Summary Delete a roadmap
// @Tags roadmap
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Success 200 {object} dto.APIResponse
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's mentor"
// @Failure 404 {object} dto.ErrorResponse "Roadmap not found"
// @Router /roadmap/{id} [delete]
func (c *RoadmapController) DeleteRoadmap(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.roadmapService.DeleteItem(ctx.Request.Context(), itemID, userID); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("roadmapID", itemID).Int64("mentorID", userID).Msg("Roadmap deleted")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Roadmap deleted"))
}

// SubmitTask godoc
// @Summary Submit a task
// @Description The roadmap's student submits work on a pending or rejected task. Send version to guard against concurrent edits.
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param taskId path int true "Task ID"
// @Param request body dto.SubmitUnitRequest true "Submission"
// @Success 200 {object} dto.APIResponse{data=dto.UnitUpdateResponse}
// @Failure 400 {object} dto.ErrorResponse "Empty submission"
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's student"
// @Failure 404 {object} dto.ErrorResponse "Task not found"
// @Failure 409 {object} dto.ErrorResponse "Task already approved or modified concurrently"
// @Router /roadmap/{id}/tasks/{taskId}/submit [put]
func (c *RoadmapController) SubmitTask(ctx *gin.Context) {
	c.submitUnit(ctx, models.UnitTask, "taskId")
}

// SubmitAssignment godoc
// @Summary Submit an assignment
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param assignmentId path int true "Assignment ID"
// @Param request body dto.SubmitUnitRequest true "Submission"
// @Success 200 {object} dto.APIResponse{data=dto.UnitUpdateResponse}
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's student"
// @Failure 404 {object} dto.ErrorResponse "Assignment not found"
// @Failure 409 {object} dto.ErrorResponse "Assignment already approved or modified concurrently"
// @Router /roadmap/{id}/assignments/{assignmentId}/submit [put]
func (c *RoadmapController) SubmitAssignment(ctx *gin.Context) {
	c.submitUnit(ctx, models.UnitAssignment, "assignmentId")
}

func (c *RoadmapController) submitUnit(ctx *gin.Context, kind models.UnitKind, param string) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	unitID, ok := pathID(ctx, param)
	if !ok {
		return
	}

	var req dto.SubmitUnitRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.roadmapService.SubmitUnit(ctx.Request.Context(), itemID, kind, unitID, userID, services.UnitSubmission{
		Text:            req.SubmissionText,
		Link:            req.SubmissionLink,
		Comment:         req.Comment,
		ExpectedVersion: req.Version,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Submitted for review"))
}

// ReviewTask godoc
// @Summary Review a task
// @Description The roadmap's mentor approves or rejects a submitted task. Progress is recomputed.
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param taskId path int true "Task ID"
// @Param request body dto.ReviewUnitRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.UnitUpdateResponse}
// @Failure 400 {object} dto.ErrorResponse "Decision is neither approved nor rejected"
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's mentor"
// @Failure 409 {object} dto.ErrorResponse "Task not submitted or modified concurrently"
// @Router /roadmap/{id}/tasks/{taskId}/review [put]
func (c *RoadmapController) ReviewTask(ctx *gin.Context) {
	c.reviewUnit(ctx, models.UnitTask, "taskId")
}

// ReviewAssignment godoc
// @Summary Review an assignment
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param assignmentId path int true "Assignment ID"
// @Param request body dto.ReviewUnitRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.UnitUpdateResponse}
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's mentor"
// @Failure 409 {object} dto.ErrorResponse "Assignment not submitted or modified concurrently"
// @Router /roadmap/{id}/assignments/{assignmentId}/review [put]
func (c *RoadmapController) ReviewAssignment(ctx *gin.Context) {
	c.reviewUnit(ctx, models.UnitAssignment, "assignmentId")
}

func (c *RoadmapController) reviewUnit(ctx *gin.Context, kind models.UnitKind, param string) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	unitID, ok := pathID(ctx, param)
	if !ok {
		return
	}

	var req dto.ReviewUnitRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.roadmapService.ReviewUnit(ctx.Request.Context(), itemID, kind, unitID, userID, req.Status, req.Feedback, req.Version)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// WatchVideo godoc
// @Summary Mark a video as watched
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param videoId path int true "Video ID"
// @Param request body dto.WatchVideoRequest false "Optional comment"
// @Success 200 {object} dto.APIResponse{data=dto.UnitUpdateResponse}
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's student"
// @Failure 409 {object} dto.ErrorResponse "Video already verified or modified concurrently"
// @Router /roadmap/{id}/videos/{videoId}/watch [put]
func (c *RoadmapController) WatchVideo(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	videoID, ok := pathID(ctx, "videoId")
	if !ok {
		return
	}

	var req dto.WatchVideoRequest
	if ctx.Request.ContentLength != 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.roadmapService.MarkVideoWatched(ctx.Request.Context(), itemID, videoID, userID, req.Comment, req.Version)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// VerifyVideo godoc
// @Summary Verify a watched video
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param videoId path int true "Video ID"
// @Param request body dto.VerifyVideoRequest false "Optional version"
// @Success 200 {object} dto.APIResponse{data=dto.UnitUpdateResponse}
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's mentor"
// @Failure 409 {object} dto.ErrorResponse "Video not watched yet or modified concurrently"
// @Router /roadmap/{id}/videos/{videoId}/verify [put]
func (c *RoadmapController) VerifyVideo(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	videoID, ok := pathID(ctx, "videoId")
	if !ok {
		return
	}

	var req dto.VerifyVideoRequest
	if ctx.Request.ContentLength != 0 && !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.roadmapService.VerifyVideo(ctx.Request.Context(), itemID, videoID, userID, req.Version)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, ""))
}

// AskQuestion godoc
// @Summary Ask a question on a roadmap
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param request body dto.AskQuestionRequest true "Question"
// @Success 201 {object} dto.APIResponse{data=models.Question}
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's student"
// @Router /roadmap/{id}/question [post]
func (c *RoadmapController) AskQuestion(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req dto.AskQuestionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	question, err := c.roadmapService.AddQuestion(ctx.Request.Context(), itemID, userID, req.Question)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(question, ""))
}

// AnswerQuestion godoc
// @Summary Answer a roadmap question
// @Tags roadmap
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roadmap ID"
// @Param questionId path int true "Question ID"
// @Param request body dto.AnswerQuestionRequest true "Answer"
// @Success 200 {object} dto.APIResponse{data=models.Question}
// @Failure 403 {object} dto.ErrorResponse "Caller is not the roadmap's mentor"
// @Failure 404 {object} dto.ErrorResponse "Question not found"
// @Router /roadmap/{id}/question/{questionId} [put]
func (c *RoadmapController) AnswerQuestion(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}
	itemID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req dto.AnswerQuestionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	question, err := c.roadmapService.AnswerQuestion(ctx.Request.Context(), itemID, questionID, userID, req.Answer)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(question, ""))
}
