package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
)

// BindJSON decodes and validates the request body into obj. On failure it
// writes a 400 with the per-field messages and returns false.
func BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		errorDetail := dto.HandleValidationError(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return false
	}
	return true
}
