package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
)

// HealthCheck pings one dependency
type HealthCheck func(ctx context.Context) error

// HealthController reports whether the service and its dependencies respond
type HealthController struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthController creates a new HealthController
func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks, timeout: 2 * time.Second}
}

// HealthResponse lists each dependency as "ok" or "down"
type HealthResponse struct {
	Status       string            `json:"status" example:"ok"`
	Dependencies map[string]string `json:"dependencies"`
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse{data=controllers.HealthResponse}
// @Failure 503 {object} dto.APIResponse{data=controllers.HealthResponse}
// @Router /health [get]
func (h *HealthController) Health(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Dependencies: make(map[string]string, len(h.checks))}
	for name, check := range h.checks {
		if err := check(reqCtx); err != nil {
			resp.Status = "degraded"
			resp.Dependencies[name] = "down"
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	envelope := dto.NewSuccessResponse(resp, "")
	envelope.Success = status == http.StatusOK
	ctx.JSON(status, envelope)
}
