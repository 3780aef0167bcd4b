package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/app/services"
	"github.com/yigit/mentorconnect/internal/middleware"
)

// GamificationController exposes XP, badges and stats
type GamificationController struct {
	gamificationService services.GamificationService
	logger              zerolog.Logger
}

// NewGamificationController creates a new GamificationController
func NewGamificationController(gamificationService services.GamificationService, logger zerolog.Logger) *GamificationController {
	return &GamificationController{
		gamificationService: gamificationService,
		logger:              logger,
	}
}

// AwardXP godoc
// @Summary Earn XP
// @Description Adds XP to the calling student and advances their daily streak
// @Tags gamification
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AwardXPRequest true "Amount"
// @Success 200 {object} dto.APIResponse{data=models.XPAward}
// @Failure 400 {object} dto.ErrorResponse "Amount must be positive"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a student"
// @Router /gamification/award-xp [post]
func (c *GamificationController) AwardXP(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.AwardXPRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	award, err := c.gamificationService.AwardXP(ctx.Request.Context(), userID, req.Amount)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	message := "XP awarded!"
	if award.LeveledUp {
		message = "Level up!"
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(award, message))
}

// AwardBadge godoc
// @Summary Award a badge
// @Description A mentor awards a named badge to a student
// @Tags gamification
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.AwardBadgeRequest true "Badge"
// @Success 200 {object} dto.APIResponse{data=models.Badge}
// @Failure 400 {object} dto.ErrorResponse "Blank badge name or target is not a student"
// @Failure 403 {object} dto.ErrorResponse "Caller is not a mentor"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /gamification/award-badge [post]
func (c *GamificationController) AwardBadge(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	var req dto.AwardBadgeRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	badge, err := c.gamificationService.AwardBadge(ctx.Request.Context(), req.StudentID, userID, req.BadgeName, req.Icon)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(badge, "Badge awarded"))
}

// GetStats godoc
// @Summary Gamification stats of the caller
// @Tags gamification
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=models.Gamification}
// @Router /gamification/stats [get]
func (c *GamificationController) GetStats(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	stats, err := c.gamificationService.GetStats(ctx.Request.Context(), userID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(stats, ""))
}
