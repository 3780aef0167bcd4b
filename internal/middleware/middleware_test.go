package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleAPIError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.NewForbiddenError("not yours"), http.StatusForbidden, dto.ErrorCodeForbidden},
		{apperrors.ErrRoadmapNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{fmt.Errorf("wrapped: %w", apperrors.ErrUserNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrRequestExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{apperrors.ErrStaleUnit, http.StatusConflict, dto.ErrorCodeConflict},
		{apperrors.NewInvalidArgumentError("bad amount"), http.StatusBadRequest, dto.ErrorCodeInvalidArgument},
		{apperrors.NewInvalidStateError("already approved"), http.StatusConflict, dto.ErrorCodeInvalidState},
		{apperrors.NewUnavailableError(errors.New("dial tcp")), http.StatusServiceUnavailable, dto.ErrorCodeServiceUnavailable},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
		{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{errors.New("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body dto.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestHandleAPIError_ReportsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	HandleAPIError(c, apperrors.WithDetails(apperrors.NewInvalidArgumentError("amount too large"),
		map[string]interface{}{"maxAmount": 40}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error struct {
			Message string                 `json:"message"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "amount too large", body.Error.Message)
	assert.Equal(t, float64(40), body.Error.Details["maxAmount"])
}

func TestHandleAPIError_HidesInternalMessages(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleAPIError(c, errors.New("pq: password authentication failed for user app"))

	assert.NotContains(t, w.Body.String(), "password authentication")
}

type recordingActivity struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingActivity) TouchLastActive(context.Context, int64, time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.JWTService, *recordingActivity) {
	t.Helper()
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "test",
	})
	activity := &recordingActivity{}
	m := NewAuthMiddleware(jwtService, activity)

	r := gin.New()
	handler := func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"userId": id})
	}
	r.GET("/me", m.JWTAuth(), handler)
	r.GET("/ws", m.JWTAuthWebSocket(), handler)
	r.POST("/mentor-only", m.JWTAuth(), m.RoleRequired(models.RoleMentor), handler)
	return r, jwtService, activity
}

func token(t *testing.T, s *auth.JWTService, id int64, role models.RoleType) string {
	t.Helper()
	pair, err := s.GenerateTokenPair(&models.User{ID: id, Email: "u@example.com", Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func TestJWTAuth(t *testing.T) {
	r, jwtService, activity := newTestRouter(t)
	access := token(t, jwtService, 42, models.RoleStudent)

	do := func(method, target, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodGet, "/me", "Bearer "+access)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":42}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/me", "Bearer nonsense").Code)

	// query tokens are only honoured on the websocket route
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/me?token="+access, "").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/ws?token="+access, "").Code)

	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/mentor-only", "Bearer "+access).Code)
	mentorToken := token(t, jwtService, 7, models.RoleMentor)
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/mentor-only", "Bearer "+mentorToken).Code)

	// two users, each touched once despite repeated requests
	assert.Equal(t, 2, activity.calls)
}
