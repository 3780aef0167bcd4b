package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	appAuth "github.com/yigit/mentorconnect/internal/app/auth"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/app/models/dto"
	"github.com/yigit/mentorconnect/internal/app/repositories"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
)

// UnitSubmission is a student's work on a task or assignment
type UnitSubmission struct {
	Text    string
	Link    string
	Comment string
	// ExpectedVersion, when set, must equal the unit's stored version
	ExpectedVersion *int64
}

// RoadmapService manages roadmap items and moves their units through the
// submit/review and watch/verify machines.
type RoadmapService interface {
	CreateItem(ctx context.Context, mentorID int64, req *dto.CreateRoadmapRequest) (*models.RoadmapItem, error)
	ListItems(ctx context.Context, viewerID int64) ([]*models.RoadmapItem, error)
	GetItem(ctx context.Context, itemID, viewerID int64) (*models.RoadmapItem, error)
	UpdateItemStatus(ctx context.Context, itemID, mentorID int64, status models.RoadmapStatus) (*models.RoadmapItem, error)
	DeleteItem(ctx context.Context, itemID, mentorID int64) error

	SubmitUnit(ctx context.Context, itemID int64, kind models.UnitKind, unitID, submitterID int64, sub UnitSubmission) (*dto.UnitUpdateResponse, error)
	ReviewUnit(ctx context.Context, itemID int64, kind models.UnitKind, unitID, reviewerID int64, decision models.UnitStatus, feedback string, expectedVersion *int64) (*dto.UnitUpdateResponse, error)
	MarkVideoWatched(ctx context.Context, itemID, videoID, studentID int64, comment string, expectedVersion *int64) (*dto.UnitUpdateResponse, error)
	VerifyVideo(ctx context.Context, itemID, videoID, mentorID int64, expectedVersion *int64) (*dto.UnitUpdateResponse, error)

	AddQuestion(ctx context.Context, itemID, studentID int64, question string) (*models.Question, error)
	AnswerQuestion(ctx context.Context, itemID, questionID, mentorID int64, answer string) (*models.Question, error)
}

type roadmapServiceImpl struct {
	roadmapRepo   repositories.IRoadmapRepository
	userRepo      repositories.IUserRepository
	authz         *appAuth.AuthorizationService
	gamification  GamificationService
	xpPerApproval int
	clock         timeutil.Clock
	logger        zerolog.Logger
}

// NewRoadmapService creates a new RoadmapService. When xpPerApproval is
// positive, each approved task or assignment awards that much XP to the
// student through gamification.
func NewRoadmapService(
	roadmapRepo repositories.IRoadmapRepository,
	userRepo repositories.IUserRepository,
	authz *appAuth.AuthorizationService,
	gamification GamificationService,
	xpPerApproval int,
	clock timeutil.Clock,
	logger zerolog.Logger,
) RoadmapService {
	return &roadmapServiceImpl{
		roadmapRepo:   roadmapRepo,
		userRepo:      userRepo,
		authz:         authz,
		gamification:  gamification,
		xpPerApproval: xpPerApproval,
		clock:         clock,
		logger:        logger,
	}
}

func buildUnits(kind models.UnitKind, inputs []dto.UnitInput) ([]models.RoadmapUnit, error) {
	units := make([]models.RoadmapUnit, 0, len(inputs))
	for i, in := range inputs {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("%s %d needs a title", kind, i+1))
		}
		url := strings.TrimSpace(in.URL)
		if kind == models.UnitVideo && url == "" {
			return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("video %d needs a url", i+1))
		}
		units = append(units, models.RoadmapUnit{
			Kind:        kind,
			Position:    i,
			Title:       title,
			Description: strings.TrimSpace(in.Description),
			URL:         url,
			Status:      models.UnitPending,
		})
	}
	return units, nil
}

func (s *roadmapServiceImpl) CreateItem(ctx context.Context, mentorID int64, req *dto.CreateRoadmapRequest) (*models.RoadmapItem, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewInvalidArgumentError("title and description are required")
	}
	if req.Deadline.IsZero() {
		return nil, apperrors.NewInvalidArgumentError("deadline is required")
	}

	if _, err := s.authz.RequireRole(ctx, mentorID, models.RoleMentor); err != nil {
		return nil, err
	}
	student, err := s.userRepo.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.IsStudent() || !student.IsAssignedTo(mentorID) {
		return nil, apperrors.NewForbiddenError("roadmaps can only be created for your assigned students")
	}

	item := &models.RoadmapItem{
		Title:       title,
		Description: description,
		MentorID:    mentorID,
		StudentID:   student.ID,
		Status:      models.RoadmapActive,
		Deadline:    req.Deadline,
		Questions:   []models.Question{},
	}
	if item.Tasks, err = buildUnits(models.UnitTask, req.Tasks); err != nil {
		return nil, err
	}
	if item.Videos, err = buildUnits(models.UnitVideo, req.Videos); err != nil {
		return nil, err
	}
	if item.Assignments, err = buildUnits(models.UnitAssignment, req.Assignments); err != nil {
		return nil, err
	}

	if err := s.roadmapRepo.Create(ctx, item); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("roadmapID", item.ID).Int64("mentorID", mentorID).Int64("studentID", student.ID).
		Int("units", item.TotalUnits()).Msg("Roadmap created")
	item.RefreshProgress()
	return item, nil
}

func (s *roadmapServiceImpl) ListItems(ctx context.Context, viewerID int64) ([]*models.RoadmapItem, error) {
	viewer, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var items []*models.RoadmapItem
	if viewer.IsMentor() {
		items, err = s.roadmapRepo.ListByMentor(ctx, viewerID)
	} else {
		items, err = s.roadmapRepo.ListByStudent(ctx, viewerID)
	}
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		item.RefreshProgress()
	}
	return items, nil
}

func (s *roadmapServiceImpl) GetItem(ctx context.Context, itemID, viewerID int64) (*models.RoadmapItem, error) {
	item, err := s.roadmapRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireRoadmapParticipant(item, viewerID); err != nil {
		return nil, err
	}
	item.RefreshProgress()
	return item, nil
}

func (s *roadmapServiceImpl) UpdateItemStatus(ctx context.Context, itemID, mentorID int64, status models.RoadmapStatus) (*models.RoadmapItem, error) {
	if !status.Valid() {
		return nil, apperrors.NewInvalidArgumentError("status must be active, completed or archived")
	}

	item, err := s.roadmapRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireRoadmapMentor(item, mentorID); err != nil {
		return nil, err
	}

	if err := s.roadmapRepo.UpdateStatus(ctx, itemID, status); err != nil {
		return nil, err
	}
	item.Status = status
	item.UpdatedAt = s.clock()
	item.RefreshProgress()
	return item, nil
}

func (s *roadmapServiceImpl) DeleteItem(ctx context.Context, itemID, mentorID int64) error {
	item, err := s.roadmapRepo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if err := s.authz.RequireRoadmapMentor(item, mentorID); err != nil {
		return err
	}

	if err := s.roadmapRepo.Delete(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info().Int64("roadmapID", itemID).Int64("mentorID", mentorID).Msg("Roadmap deleted")
	return nil
}

// transitionUnit loads the unit, checks the actor and the caller's version,
// applies the transition and writes it back with a version compare-and-swap.
func (s *roadmapServiceImpl) transitionUnit(
	ctx context.Context,
	itemID int64,
	kind models.UnitKind,
	unitID int64,
	authorize func(item *models.RoadmapItem) error,
	expectedVersion *int64,
	apply func(unit *models.RoadmapUnit, now time.Time) error,
) (*dto.UnitUpdateResponse, error) {
	item, err := s.roadmapRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	// non-participants get Forbidden whether or not the unit exists
	if err := authorize(item); err != nil {
		return nil, err
	}
	unit, ok := item.Unit(kind, unitID)
	if !ok {
		return nil, apperrors.ErrUnitNotFound
	}

	readVersion := unit.Version
	if expectedVersion != nil && *expectedVersion != readVersion {
		return nil, apperrors.ErrStaleUnit
	}

	if err := apply(unit, s.clock()); err != nil {
		return nil, err
	}
	if err := s.roadmapRepo.UpdateUnit(ctx, unit, readVersion); err != nil {
		return nil, err
	}

	item.RefreshProgress()
	return &dto.UnitUpdateResponse{Unit: unit, Roadmap: item}, nil
}

func (s *roadmapServiceImpl) SubmitUnit(ctx context.Context, itemID int64, kind models.UnitKind, unitID, submitterID int64, sub UnitSubmission) (*dto.UnitUpdateResponse, error) {
	resp, err := s.transitionUnit(ctx, itemID, kind, unitID,
		func(item *models.RoadmapItem) error { return s.authz.RequireRoadmapStudent(item, submitterID) },
		sub.ExpectedVersion,
		func(unit *models.RoadmapUnit, now time.Time) error {
			return unit.Submit(strings.TrimSpace(sub.Text), strings.TrimSpace(sub.Link), sub.Comment, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("roadmapID", itemID).Str("kind", string(kind)).Int64("unitID", unitID).Msg("Unit submitted")
	return resp, nil
}

func (s *roadmapServiceImpl) ReviewUnit(ctx context.Context, itemID int64, kind models.UnitKind, unitID, reviewerID int64, decision models.UnitStatus, feedback string, expectedVersion *int64) (*dto.UnitUpdateResponse, error) {
	resp, err := s.transitionUnit(ctx, itemID, kind, unitID,
		func(item *models.RoadmapItem) error { return s.authz.RequireRoadmapMentor(item, reviewerID) },
		expectedVersion,
		func(unit *models.RoadmapUnit, now time.Time) error {
			return unit.Review(decision, feedback, now)
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("roadmapID", itemID).Str("kind", string(kind)).Int64("unitID", unitID).
		Str("decision", string(decision)).Int("progress", resp.Roadmap.ProgressPercentage).Msg("Unit reviewed")

	if decision == models.UnitApproved {
		s.awardApprovalXP(ctx, resp.Roadmap.StudentID, unitID)
	}
	return resp, nil
}

// awardApprovalXP is best effort; the review is already stored.
func (s *roadmapServiceImpl) awardApprovalXP(ctx context.Context, studentID, unitID int64) {
	if s.gamification == nil || s.xpPerApproval <= 0 {
		return
	}
	if _, err := s.gamification.AwardXP(ctx, studentID, s.xpPerApproval); err != nil {
		s.logger.Warn().Err(err).Int64("studentID", studentID).Int64("unitID", unitID).Msg("Failed to award XP for approval")
	}
}

func (s *roadmapServiceImpl) MarkVideoWatched(ctx context.Context, itemID, videoID, studentID int64, comment string, expectedVersion *int64) (*dto.UnitUpdateResponse, error) {
	return s.transitionUnit(ctx, itemID, models.UnitVideo, videoID,
		func(item *models.RoadmapItem) error { return s.authz.RequireRoadmapStudent(item, studentID) },
		expectedVersion,
		func(unit *models.RoadmapUnit, now time.Time) error {
			return unit.MarkWatched(comment, now)
		},
	)
}

func (s *roadmapServiceImpl) VerifyVideo(ctx context.Context, itemID, videoID, mentorID int64, expectedVersion *int64) (*dto.UnitUpdateResponse, error) {
	return s.transitionUnit(ctx, itemID, models.UnitVideo, videoID,
		func(item *models.RoadmapItem) error { return s.authz.RequireRoadmapMentor(item, mentorID) },
		expectedVersion,
		func(unit *models.RoadmapUnit, now time.Time) error {
			return unit.Verify(now)
		},
	)
}

func (s *roadmapServiceImpl) AddQuestion(ctx context.Context, itemID, studentID int64, question string) (*models.Question, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewInvalidArgumentError("question cannot be empty")
	}

	item, err := s.roadmapRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireRoadmapStudent(item, studentID); err != nil {
		return nil, err
	}

	q := &models.Question{RoadmapID: itemID, Question: question}
	if err := s.roadmapRepo.AddQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *roadmapServiceImpl) AnswerQuestion(ctx context.Context, itemID, questionID, mentorID int64, answer string) (*models.Question, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, apperrors.NewInvalidArgumentError("answer cannot be empty")
	}

	item, err := s.roadmapRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.RequireRoadmapMentor(item, mentorID); err != nil {
		return nil, err
	}

	var q *models.Question
	for i := range item.Questions {
		if item.Questions[i].ID == questionID {
			q = &item.Questions[i]
			break
		}
	}
	if q == nil {
		return nil, apperrors.ErrQuestionNotFound
	}

	now := s.clock()
	q.Answer = answer
	q.AnsweredAt = &now
	if err := s.roadmapRepo.AnswerQuestion(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}
