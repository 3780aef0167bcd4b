package dto

import "github.com/yigit/mentorconnect/internal/app/models"

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the token pair issued on login
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
}

// RefreshTokenRequest represents a token refresh payload
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RegisterRequest represents the registration payload. Domain, experience
// and bio only apply to mentors.
type RegisterRequest struct {
	Name       string          `json:"name" binding:"required,notblank,max=100"`
	Email      string          `json:"email" binding:"required,email"`
	Password   string          `json:"password" binding:"required,min=8"`
	Role       models.RoleType `json:"role" binding:"required,oneof=student mentor"`
	Domain     string          `json:"domain" binding:"max=100"`
	Experience string          `json:"experience" binding:"max=100"`
	Bio        string          `json:"bio" binding:"max=1000"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  *models.User  `json:"user"`
}
