package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/logger"
)

// --- Central Error Handling Middleware/Function ---

// HandleAPIError maps a service error to its status code and writes the
// standard error envelope. Domain errors keep their message; anything
// unclassified is logged and reported as a generic 500.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := errorDetail(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Msg("Request failed")
	} else if details := apperrors.DetailsOf(err); details != nil {
		detail = detail.WithDetails(details)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, dto.APIResponse{
		Success:   false,
		Error:     detail,
		Timestamp: time.Now(),
	})
}

func errorDetail(err error) (int, *dto.ErrorDetail) {
	// authentication failures are not part of the domain taxonomy
	switch {
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid email or password")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrTokenNotFound):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "Token not found")
	case errors.Is(err, apperrors.ErrTokenRevoked):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Token revoked")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return http.StatusUnauthorized, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	}

	switch apperrors.Kind(err) {
	case apperrors.ErrPermissionDenied:
		return http.StatusForbidden, dto.NewErrorDetail(dto.ErrorCodeForbidden, err.Error())
	case apperrors.ErrResourceNotFound:
		return http.StatusNotFound, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, err.Error())
	case apperrors.ErrConflict:
		code := dto.ErrorCodeConflict
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) || errors.Is(err, apperrors.ErrRequestExists) {
			code = dto.ErrorCodeResourceAlreadyExists
		}
		return http.StatusConflict, dto.NewErrorDetail(code, err.Error())
	case apperrors.ErrInvalidArgument:
		return http.StatusBadRequest, dto.NewErrorDetail(dto.ErrorCodeInvalidArgument, err.Error())
	case apperrors.ErrInvalidState:
		return http.StatusConflict, dto.NewErrorDetail(dto.ErrorCodeInvalidState, err.Error())
	case apperrors.ErrUnavailable:
		return http.StatusServiceUnavailable, dto.NewErrorDetail(dto.ErrorCodeServiceUnavailable, "Service temporarily unavailable").
			WithSeverity(dto.ErrorSeverityCritical)
	}

	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").
		WithSeverity(dto.ErrorSeverityCritical)
}

// Recovery turns a panic into the standard 500 envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.APIResponse{
			Success:   false,
			Error:     dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical),
			Timestamp: time.Now(),
		})
	})
}
