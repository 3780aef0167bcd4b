package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/app/repositories"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/auth"
	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
)

// AuthService handles registration, login and token rotation
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

type authServiceImpl struct {
	userRepo     repositories.IUserRepository
	tokenRepo    repositories.ITokenRepository
	jwtService   *auth.JWTService
	hashPassword func(string) (string, error)
	clock        timeutil.Clock
	logger       zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	tokenRepo repositories.ITokenRepository,
	jwtService *auth.JWTService,
	clock timeutil.Clock,
	logger zerolog.Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:     userRepo,
		tokenRepo:    tokenRepo,
		jwtService:   jwtService,
		hashPassword: auth.HashPassword,
		clock:        clock,
		logger:       logger,
	}
}

// validatePassword requires at least one letter and one digit; length is
// enforced by request binding.
func validatePassword(password string) error {
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return apperrors.NewInvalidArgumentError("password must contain at least one letter and one digit")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if !req.Role.Valid() {
		return nil, apperrors.NewInvalidArgumentError("role must be student or mentor")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.NewInvalidArgumentError("name is required")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hashed, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:             strings.TrimSpace(req.Name),
		Email:            normalizeEmail(req.Email),
		Password:         hashed,
		Role:             req.Role,
		MentorshipStatus: models.MentorshipNone,
		Gamification:     models.NewGamification(),
	}
	if user.Role == models.RoleMentor {
		user.Domain = req.Domain
		user.Experience = req.Experience
		user.Bio = req.Bio
		user.Availability = models.AvailabilityAvailable
	}

	if _, err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("userID", user.ID).Str("role", string(user.Role)).Msg("User registered")

	return s.issue(ctx, user)
}

func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	userID, err := s.tokenRepo.Consume(ctx, refreshToken, s.clock())
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	return &resp.Token, nil
}

func (s *authServiceImpl) Me(ctx context.Context, userID int64) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// issue creates a token pair and stores the refresh half
func (s *authServiceImpl) issue(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	if err := s.tokenRepo.Create(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken:           pair.AccessToken,
			TokenType:             "Bearer",
			ExpiresIn:             pair.ExpiresIn,
			RefreshToken:          pair.RefreshToken,
			RefreshTokenExpiresIn: pair.RefreshExpiresIn,
		},
		User: user,
	}, nil
}
