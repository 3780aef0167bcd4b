package auth

import (
	"context"
	"fmt"

	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/repositories"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/logger"
)

// AuthorizationService answers "may this user do that" questions that need
// the store: role checks on the current row and student/mentor pairings.
type AuthorizationService struct {
	userRepo repositories.IUserRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(userRepo repositories.IUserRepository) *AuthorizationService {
	return &AuthorizationService{userRepo: userRepo}
}

// RequireRole loads the user and fails with permission denied unless they
// currently hold role. The token's role claim is not trusted for this.
func (s *AuthorizationService) RequireRole(ctx context.Context, userID int64, role models.RoleType) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, apperrors.NewForbiddenError(fmt.Sprintf("only %ss can perform this action", role))
	}
	return user, nil
}

// RequirePairing loads both users and fails with permission denied unless one
// is a student assigned to the other. The users are returned in the order given.
func (s *AuthorizationService) RequirePairing(ctx context.Context, aID, bID int64) (*models.User, *models.User, error) {
	a, err := s.userRepo.GetByID(ctx, aID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.userRepo.GetByID(ctx, bID)
	if err != nil {
		return nil, nil, err
	}

	if !models.Paired(a, b) {
		logger.Debug().Int64("userA", aID).Int64("userB", bID).Msg("Rejected action between unpaired users")
		return nil, nil, apperrors.NewForbiddenError("users are not a student and their assigned mentor")
	}
	return a, b, nil
}

// RequireRoadmapStudent fails unless userID is the item's student
func (s *AuthorizationService) RequireRoadmapStudent(item *models.RoadmapItem, userID int64) error {
	if item.StudentID != userID {
		return apperrors.NewForbiddenError("only the roadmap's student can perform this action")
	}
	return nil
}

// RequireRoadmapMentor fails unless userID is the item's mentor
func (s *AuthorizationService) RequireRoadmapMentor(item *models.RoadmapItem, userID int64) error {
	if item.MentorID != userID {
		return apperrors.NewForbiddenError("only the roadmap's mentor can perform this action")
	}
	return nil
}

// RequireRoadmapParticipant fails unless userID is the item's student or mentor
func (s *AuthorizationService) RequireRoadmapParticipant(item *models.RoadmapItem, userID int64) error {
	if item.StudentID != userID && item.MentorID != userID {
		return apperrors.NewForbiddenError("you are not part of this roadmap")
	}
	return nil
}
