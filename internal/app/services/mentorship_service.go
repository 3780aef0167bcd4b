package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"
	appAuth "github.com/yigit/mentorconnect/internal/app/auth"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/repositories"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
)

// MentorshipService runs the request/accept workflow that pairs a student
// with exactly one mentor.
type MentorshipService interface {
	SendRequest(ctx context.Context, studentID, mentorID int64, message string) (*models.MentorshipRequest, error)
	Respond(ctx context.Context, requestID, responderID int64, decision models.RequestStatus, responseMessage string) (*models.MentorshipRequest, error)
	GetPairingView(ctx context.Context, viewerID int64) (*models.PairingView, error)
	ListMyRequests(ctx context.Context, studentID int64) ([]*models.MentorshipRequest, error)
	ListPendingRequests(ctx context.Context, mentorID int64) ([]*models.MentorshipRequest, error)
	RateMentor(ctx context.Context, studentID, mentorID int64, rating int, comment string) (*models.User, error)
	UpdateAvailability(ctx context.Context, mentorID int64, availability models.Availability) error
	UnreadNotifications(ctx context.Context, userID int64) (int, error)
	ClearNotifications(ctx context.Context, userID int64) error
}

type mentorshipServiceImpl struct {
	userRepo    repositories.IUserRepository
	requestRepo repositories.IMentorshipRepository
	authz       *appAuth.AuthorizationService
	clock       timeutil.Clock
	logger      zerolog.Logger
}

// NewMentorshipService creates a new MentorshipService
func NewMentorshipService(
	userRepo repositories.IUserRepository,
	requestRepo repositories.IMentorshipRepository,
	authz *appAuth.AuthorizationService,
	clock timeutil.Clock,
	logger zerolog.Logger,
) MentorshipService {
	return &mentorshipServiceImpl{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		authz:       authz,
		clock:       clock,
		logger:      logger,
	}
}

func (s *mentorshipServiceImpl) SendRequest(ctx context.Context, studentID, mentorID int64, message string) (*models.MentorshipRequest, error) {
	student, err := s.authz.RequireRole(ctx, studentID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(message) > models.MaxRequestMessageLength {
		return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("message cannot exceed %d characters", models.MaxRequestMessageLength))
	}

	mentor, err := s.userRepo.GetByID(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	if !mentor.IsMentor() {
		return nil, apperrors.ErrNotAMentor
	}
	if student.HasMentor() {
		return nil, apperrors.ErrAlreadyAssigned
	}

	exists, err := s.requestRepo.ExistsForPair(ctx, studentID, mentorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrRequestExists
	}

	req := &models.MentorshipRequest{
		StudentID: studentID,
		MentorID:  mentorID,
		Status:    models.RequestPending,
		Message:   message,
	}
	// the unique (student, mentor) index catches a concurrent duplicate
	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	if err := s.userRepo.IncrementUnreadNotifications(ctx, mentorID); err != nil {
		s.logger.Error().Err(err).Int64("mentorID", mentorID).Int64("requestID", req.ID).Msg("Failed to bump mentor notifications")
	}
	if student.MentorshipStatus == models.MentorshipNone || student.MentorshipStatus == "" {
		if err := s.userRepo.SetMentorshipStatus(ctx, studentID, models.MentorshipPending); err != nil {
			s.logger.Error().Err(err).Int64("studentID", studentID).Msg("Failed to mark student as pending")
		}
	}

	s.logger.Info().Int64("requestID", req.ID).Int64("studentID", studentID).Int64("mentorID", mentorID).Msg("Mentorship request sent")
	req.Mentor = mentor
	return req, nil
}

func (s *mentorshipServiceImpl) Respond(ctx context.Context, requestID, responderID int64, decision models.RequestStatus, responseMessage string) (*models.MentorshipRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.MentorID != responderID {
		return nil, apperrors.NewForbiddenError("only the requested mentor can respond")
	}
	if err := req.Resolve(decision, responseMessage, s.clock()); err != nil {
		return nil, err
	}

	student, err := s.userRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if decision == models.RequestAccepted && student.HasMentor() && !student.IsAssignedTo(req.MentorID) {
		return nil, apperrors.ErrAlreadyAssigned
	}

	switch decision {
	case models.RequestAccepted:
		// the check above is a fast path; Accept re-checks under the student's row lock
		if err := s.requestRepo.Accept(ctx, req); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyAssigned) {
				s.logger.Info().Int64("requestID", req.ID).Int64("studentID", req.StudentID).Msg("Student was paired by another mentor first")
			}
			return nil, err
		}
		s.logger.Info().Int64("requestID", req.ID).Int64("studentID", req.StudentID).Int64("mentorID", req.MentorID).Msg("Mentorship established")
	case models.RequestRejected:
		if err := s.requestRepo.Resolve(ctx, req); err != nil {
			return nil, err
		}
		s.resetIfNothingPending(ctx, student)
	}

	return req, nil
}

// resetIfNothingPending moves an unassigned student back to none once their
// last pending request is answered.
func (s *mentorshipServiceImpl) resetIfNothingPending(ctx context.Context, student *models.User) {
	if student.HasMentor() || student.MentorshipStatus != models.MentorshipPending {
		return
	}

	requests, err := s.requestRepo.ListByStudent(ctx, student.ID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("studentID", student.ID).Msg("Could not list requests after rejection")
		return
	}
	for _, r := range requests {
		if r.Status == models.RequestPending {
			return
		}
	}

	if err := s.userRepo.SetMentorshipStatus(ctx, student.ID, models.MentorshipNone); err != nil {
		s.logger.Warn().Err(err).Int64("studentID", student.ID).Msg("Could not reset mentorship status")
	}
}

func (s *mentorshipServiceImpl) GetPairingView(ctx context.Context, viewerID int64) (*models.PairingView, error) {
	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	if viewer.IsMentor() {
		mentees, err := s.userRepo.ListMentees(ctx, viewer.ID)
		if err != nil {
			return nil, err
		}
		return &models.PairingView{Mode: models.PairingMentees, Users: mentees}, nil
	}

	if !viewer.HasMentor() {
		if err := s.repairAssignment(ctx, viewer); err != nil {
			return nil, err
		}
	}

	if !viewer.HasMentor() {
		mentors, err := s.userRepo.ListMentors(ctx)
		if err != nil {
			return nil, err
		}
		return &models.PairingView{Mode: models.PairingBrowse, Users: mentors}, nil
	}

	mentor, err := s.userRepo.GetByID(ctx, *viewer.AssignedMentorID)
	if err != nil {
		return nil, err
	}
	return &models.PairingView{Mode: models.PairingLocked, Users: []*models.User{mentor}}, nil
}

// repairAssignment pairs a student whose accepted request is not reflected on
// their row, for example after the assignment was cleared by hand.
// On success student.AssignedMentorID is set.
func (s *mentorshipServiceImpl) repairAssignment(ctx context.Context, student *models.User) error {
	accepted, err := s.requestRepo.FindAcceptedForStudent(ctx, student.ID)
	if err != nil {
		if errors.Is(err, apperrors.ErrRequestNotFound) {
			return nil
		}
		return err
	}

	if err := s.userRepo.AssignMentor(ctx, student.ID, accepted.MentorID); err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyAssigned) {
			return err
		}
		// paired concurrently; answer with what the store holds now
		fresh, err := s.userRepo.GetByID(ctx, student.ID)
		if err != nil {
			return err
		}
		*student = *fresh
		return nil
	}
	s.logger.Warn().Int64("studentID", student.ID).Int64("mentorID", accepted.MentorID).Int64("requestID", accepted.ID).
		Msg("Repaired missing mentor assignment from accepted request")

	mentorID := accepted.MentorID
	student.AssignedMentorID = &mentorID
	student.MentorshipStatus = models.MentorshipActive
	return nil
}

func (s *mentorshipServiceImpl) ListMyRequests(ctx context.Context, studentID int64) ([]*models.MentorshipRequest, error) {
	if _, err := s.authz.RequireRole(ctx, studentID, models.RoleStudent); err != nil {
		return nil, err
	}
	return s.requestRepo.ListByStudent(ctx, studentID)
}

func (s *mentorshipServiceImpl) ListPendingRequests(ctx context.Context, mentorID int64) ([]*models.MentorshipRequest, error) {
	if _, err := s.authz.RequireRole(ctx, mentorID, models.RoleMentor); err != nil {
		return nil, err
	}
	return s.requestRepo.ListPendingByMentor(ctx, mentorID)
}

func (s *mentorshipServiceImpl) RateMentor(ctx context.Context, studentID, mentorID int64, rating int, comment string) (*models.User, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewInvalidArgumentError("rating must be between 1 and 5")
	}

	student, err := s.authz.RequireRole(ctx, studentID, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	if !student.IsAssignedTo(mentorID) {
		return nil, apperrors.NewForbiddenError("you can only rate your assigned mentor")
	}

	return s.userRepo.UpsertReview(ctx, &models.MentorReview{
		MentorID:  mentorID,
		StudentID: studentID,
		Rating:    rating,
		Comment:   comment,
	})
}

func (s *mentorshipServiceImpl) UpdateAvailability(ctx context.Context, mentorID int64, availability models.Availability) error {
	if !availability.Valid() {
		return apperrors.NewInvalidArgumentError("availability must be available, busy or unavailable")
	}
	if _, err := s.authz.RequireRole(ctx, mentorID, models.RoleMentor); err != nil {
		return err
	}
	return s.userRepo.UpdateAvailability(ctx, mentorID, availability)
}

func (s *mentorshipServiceImpl) UnreadNotifications(ctx context.Context, userID int64) (int, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.UnreadNotifications, nil
}

func (s *mentorshipServiceImpl) ClearNotifications(ctx context.Context, userID int64) error {
	return s.userRepo.ClearUnreadNotifications(ctx, userID)
}
