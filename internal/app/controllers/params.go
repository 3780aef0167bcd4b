// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/middleware"
)

// pathID parses a positive integer path parameter. On failure it writes a
// 400 and returns false.
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).WithField(name)
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return 0, false
	}
	return id, true
}

// callerID returns the authenticated user. Routes using it sit behind
// JWTAuth, so a miss means the middleware chain is misconfigured.
func callerID(ctx *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
	}
	return id, ok
}
