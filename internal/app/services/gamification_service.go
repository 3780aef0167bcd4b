package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	appAuth "github.com/yigit/mentorconnect/internal/app/auth"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/repositories"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
)

// GamificationService owns XP, levels, streaks and badges
type GamificationService interface {
	AwardXP(ctx context.Context, studentID int64, amount int) (*models.XPAward, error)
	AwardBadge(ctx context.Context, studentID, awarderID int64, name, icon string) (*models.Badge, error)
	GetStats(ctx context.Context, userID int64) (*models.Gamification, error)
}

type gamificationServiceImpl struct {
	userRepo repositories.IUserRepository
	authz    *appAuth.AuthorizationService
	clock    timeutil.Clock
	loc      *time.Location
	logger   zerolog.Logger
}

// NewGamificationService creates a new GamificationService. Streak days are
// counted in loc.
func NewGamificationService(
	userRepo repositories.IUserRepository,
	authz *appAuth.AuthorizationService,
	clock timeutil.Clock,
	loc *time.Location,
	logger zerolog.Logger,
) GamificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &gamificationServiceImpl{
		userRepo: userRepo,
		authz:    authz,
		clock:    clock,
		loc:      loc,
		logger:   logger,
	}
}

func (s *gamificationServiceImpl) AwardXP(ctx context.Context, studentID int64, amount int) (*models.XPAward, error) {
	if amount <= 0 {
		return nil, apperrors.NewInvalidArgumentError("amount must be a positive number")
	}
	if amount > models.MaxXPAward {
		return nil, apperrors.WithDetails(
			apperrors.NewInvalidArgumentError(fmt.Sprintf("amount cannot exceed %d", models.MaxXPAward)),
			map[string]interface{}{"maxAmount": models.MaxXPAward},
		)
	}

	var award models.XPAward
	_, err := s.userRepo.UpdateGamification(ctx, studentID, func(user *models.User) error {
		if !user.IsStudent() {
			return apperrors.NewForbiddenError("only students earn XP")
		}
		// checked under the row lock so concurrent awards cannot pass MaxXP together
		if headroom := user.Gamification.XPHeadroom(); amount > headroom {
			return apperrors.WithDetails(
				apperrors.NewInvalidArgumentError("amount would exceed the maximum XP total"),
				map[string]interface{}{"maxAmount": headroom},
			)
		}
		award = user.Gamification.ApplyXP(amount, s.clock(), s.loc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := s.logger.Info()
	if award.LeveledUp {
		event = event.Bool("leveledUp", true)
	}
	event.Int64("studentID", studentID).Int("amount", amount).Int("xp", award.XP).Int("streak", award.Streak).Msg("XP awarded")
	return &award, nil
}

func (s *gamificationServiceImpl) AwardBadge(ctx context.Context, studentID, awarderID int64, name, icon string) (*models.Badge, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewInvalidArgumentError("badge name is required")
	}

	// any mentor may award, not only the student's own
	if _, err := s.authz.RequireRole(ctx, awarderID, models.RoleMentor); err != nil {
		return nil, err
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsStudent() {
		return nil, apperrors.NewInvalidArgumentError("badges can only be awarded to students")
	}

	badge := &models.Badge{
		Name:      name,
		Icon:      strings.TrimSpace(icon),
		AwardedBy: awarderID,
		AwardedAt: s.clock(),
	}
	if err := s.userRepo.AddBadge(ctx, studentID, badge); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("studentID", studentID).Int64("mentorID", awarderID).Str("badge", badge.Name).Msg("Badge awarded")
	return badge, nil
}

func (s *gamificationServiceImpl) GetStats(ctx context.Context, userID int64) (*models.Gamification, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := user.Gamification
	if stats.Badges == nil {
		stats.Badges = []models.Badge{}
	}
	return &stats, nil
}
