package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/pkg/auth"
	"github.com/yigit/mentorconnect/internal/pkg/logger"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// lastActiveInterval throttles last-active writes per user
const lastActiveInterval = time.Minute

// ActivityRecorder stores a user's last request time
type ActivityRecorder interface {
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
}

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
	activity   ActivityRecorder

	mu       sync.Mutex
	lastSeen map[int64]time.Time
}

// NewAuthMiddleware creates a new AuthMiddleware. activity may be nil.
func NewAuthMiddleware(jwtService *auth.JWTService, activity ActivityRecorder) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		activity:   activity,
		lastSeen:   make(map[int64]time.Time),
	}
}

func abortUnauthorized(c *gin.Context, code dto.ErrorCode, message, details string) {
	errorDetail := dto.NewErrorDetail(code, message).WithDetails(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
}

// JWTAuth middleware for JWT token validation. The token must come in the
// Authorization header.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		m.authenticate(c, c.GetHeader("Authorization"))
	}
}

// JWTAuthWebSocket also accepts ?token= since browsers cannot set headers on
// a WebSocket handshake.
func (m *AuthMiddleware) JWTAuthWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			header = c.Query("token")
		}
		m.authenticate(c, header)
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context, header string) {
	if strings.TrimSpace(header) == "" {
		abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "Authorization header missing")
		return
	}

	tokenString, err := auth.ExtractBearerToken(header)
	if err != nil {
		abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "Invalid token format")
		return
	}

	claims, err := m.jwtService.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			abortUnauthorized(c, dto.ErrorCodeExpiredToken, "Authentication failed", "Token has expired")
			return
		}
		abortUnauthorized(c, dto.ErrorCodeInvalidToken, "Authentication failed", "Invalid token")
		return
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextEmail, claims.Email)
	c.Set(ContextRole, claims.Role)

	m.touch(c.Request.Context(), claims.UserID)
	c.Next()
}

// touch records activity at most once per lastActiveInterval per user
func (m *AuthMiddleware) touch(ctx context.Context, userID int64) {
	if m.activity == nil {
		return
	}

	now := time.Now()
	m.mu.Lock()
	if last, ok := m.lastSeen[userID]; ok && now.Sub(last) < lastActiveInterval {
		m.mu.Unlock()
		return
	}
	m.lastSeen[userID] = now
	m.mu.Unlock()

	if err := m.activity.TouchLastActive(ctx, userID, now); err != nil {
		logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to record last activity")
	}
}

// RoleRequired rejects callers whose token carries a different role. Services
// still check the stored role; this only fails fast.
func (m *AuthMiddleware) RoleRequired(requiredRole models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			abortUnauthorized(c, dto.ErrorCodeUnauthorized, "Authentication required", "User role not found")
			return
		}

		if r, ok := role.(models.RoleType); !ok || r != requiredRole {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied").
				WithDetails("Only " + string(requiredRole) + "s can perform this operation")
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
			return
		}

		c.Next()
	}
}

// UserID returns the authenticated user's id
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
