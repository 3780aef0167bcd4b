package repositories

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/db"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/dberrors"
)

// IMentorshipRepository defines the persistence operations on mentorship requests
type IMentorshipRepository interface {
	Create(ctx context.Context, req *models.MentorshipRequest) error
	GetByID(ctx context.Context, id int64) (*models.MentorshipRequest, error)
	ExistsForPair(ctx context.Context, studentID, mentorID int64) (bool, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*models.MentorshipRequest, error)
	ListPendingByMentor(ctx context.Context, mentorID int64) ([]*models.MentorshipRequest, error)
	Resolve(ctx context.Context, req *models.MentorshipRequest) error
	Accept(ctx context.Context, req *models.MentorshipRequest) error
	FindAcceptedForStudent(ctx context.Context, studentID int64) (*models.MentorshipRequest, error)
}

var requestColumns = []string{
	"r.id", "r.student_id", "r.mentor_id", "r.status", "r.message",
	"r.response_message", "r.created_at", "r.responded_at",
}

// MentorshipRepository handles mentorship request database operations
type MentorshipRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMentorshipRepository creates a new MentorshipRepository
func NewMentorshipRepository(db *pgxpool.Pool) *MentorshipRepository {
	return &MentorshipRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanRequest(row pgx.Row, extra ...any) (*models.MentorshipRequest, error) {
	req := &models.MentorshipRequest{}
	dest := []any{
		&req.ID, &req.StudentID, &req.MentorID, &req.Status, &req.Message,
		&req.ResponseMessage, &req.CreatedAt, &req.RespondedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return req, nil
}

// Create inserts a pending request. The (student, mentor) pair is unique
// across all statuses; a duplicate is reported as ErrRequestExists.
func (r *MentorshipRepository) Create(ctx context.Context, req *models.MentorshipRequest) error {
	if req.Status == "" {
		req.Status = models.RequestPending
	}

	sql, args, err := r.sb.Insert("mentorship_requests").
		Columns("student_id", "mentor_id", "status", "message").
		Values(req.StudentID, req.MentorID, req.Status, req.Message).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return buildError(err, "create request")
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintRequestPair) {
			return apperrors.ErrRequestExists
		}
		return storeError(err, "create request")
	}
	return nil
}

// GetByID retrieves a request by id
func (r *MentorshipRepository) GetByID(ctx context.Context, id int64) (*models.MentorshipRequest, error) {
	sql, args, err := r.sb.Select(requestColumns...).
		From("mentorship_requests r").
		Where(squirrel.Eq{"r.id": id}).
		ToSql()
	if err != nil {
		return nil, buildError(err, "get request")
	}

	req, err := scanRequest(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, storeError(err, "get request")
	}
	return req, nil
}

// ExistsForPair reports whether any request, in any status, links the pair
func (r *MentorshipRepository) ExistsForPair(ctx context.Context, studentID, mentorID int64) (bool, error) {
	sql, args, err := r.sb.Select("1").
		From("mentorship_requests").
		Where(squirrel.Eq{"student_id": studentID, "mentor_id": mentorID}).
		Prefix("SELECT EXISTS (").Suffix(")").
		ToSql()
	if err != nil {
		return false, buildError(err, "request exists")
	}

	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, storeError(err, "request exists")
	}
	return exists, nil
}

// ListByStudent returns a student's requests, newest first, with the mentor attached
func (r *MentorshipRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.MentorshipRequest, error) {
	return r.listWithCounterpart(ctx, "r.mentor_id", squirrel.Eq{"r.student_id": studentID}, func(req *models.MentorshipRequest, u *models.User) {
		req.Mentor = u
	})
}

// ListPendingByMentor returns the requests waiting on a mentor, newest first, with the student attached
func (r *MentorshipRepository) ListPendingByMentor(ctx context.Context, mentorID int64) ([]*models.MentorshipRequest, error) {
	return r.listWithCounterpart(ctx, "r.student_id", squirrel.Eq{"r.mentor_id": mentorID, "r.status": models.RequestPending}, func(req *models.MentorshipRequest, u *models.User) {
		req.Student = u
	})
}

func (r *MentorshipRepository) listWithCounterpart(ctx context.Context, joinColumn string, where squirrel.Sqlizer, attach func(*models.MentorshipRequest, *models.User)) ([]*models.MentorshipRequest, error) {
	columns := append(append([]string{}, requestColumns...),
		"u.id", "u.name", "u.email", "u.role", "u.domain", "u.experience", "u.bio", "u.availability", "u.rating", "u.total_ratings")

	sql, args, err := r.sb.Select(columns...).
		From("mentorship_requests r").
		Join("users u ON u.id = " + joinColumn).
		Where(where).
		OrderBy("r.created_at DESC", "r.id DESC").
		ToSql()
	if err != nil {
		return nil, buildError(err, "list requests")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list requests")
	}
	defer rows.Close()

	requests := []*models.MentorshipRequest{}
	for rows.Next() {
		u := &models.User{}
		req, err := scanRequest(rows, &u.ID, &u.Name, &u.Email, &u.Role, &u.Domain, &u.Experience, &u.Bio, &u.Availability, &u.Rating, &u.TotalRatings)
		if err != nil {
			return nil, storeError(err, "scan request")
		}
		attach(req, u)
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate requests")
	}
	return requests, nil
}

func resolveRequestStmt(sb squirrel.StatementBuilderType, req *models.MentorshipRequest) squirrel.UpdateBuilder {
	return sb.Update("mentorship_requests").
		Set("status", req.Status).
		Set("response_message", req.ResponseMessage).
		Set("responded_at", req.RespondedAt).
		Where(squirrel.Eq{"id": req.ID, "status": models.RequestPending})
}

func (r *MentorshipRepository) resolve(ctx context.Context, q querier, req *models.MentorshipRequest) error {
	sql, args, err := resolveRequestStmt(r.sb, req).ToSql()
	if err != nil {
		return buildError(err, "resolve request")
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, "resolve request")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRequestAlreadyClosed
	}
	return nil
}

// Resolve writes the decision only while the row is still pending. Losing a
// race against another responder yields ErrRequestAlreadyClosed.
func (r *MentorshipRepository) Resolve(ctx context.Context, req *models.MentorshipRequest) error {
	return r.resolve(ctx, r.db, req)
}

// Accept resolves req as accepted and pairs its student with its mentor in
// one transaction. The student row is locked first, so of two mentors
// accepting the same student at once the second sees the first's pairing
// and gets ErrAlreadyAssigned with its request still pending.
func (r *MentorshipRepository) Accept(ctx context.Context, req *models.MentorshipRequest) error {
	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := selectUserStmt(r.sb, squirrel.Eq{"id": req.StudentID}, lockRow).ToSql()
		if err != nil {
			return buildError(err, "lock student")
		}
		student, err := scanUser(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrUserNotFound
			}
			return storeError(err, "lock student")
		}
		if student.HasMentor() && !student.IsAssignedTo(req.MentorID) {
			return apperrors.ErrAlreadyAssigned
		}

		if err := r.resolve(ctx, tx, req); err != nil {
			return err
		}

		sql, args, err = assignMentorStmt(r.sb, req.StudentID, req.MentorID).ToSql()
		if err != nil {
			return buildError(err, "assign mentor")
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return storeError(err, "assign mentor")
		}
		return nil
	})
}

// FindAcceptedForStudent returns the most recently accepted request of a student
func (r *MentorshipRepository) FindAcceptedForStudent(ctx context.Context, studentID int64) (*models.MentorshipRequest, error) {
	sql, args, err := r.sb.Select(requestColumns...).
		From("mentorship_requests r").
		Where(squirrel.Eq{"r.student_id": studentID, "r.status": models.RequestAccepted}).
		OrderBy("r.responded_at DESC NULLS LAST", "r.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, buildError(err, "find accepted request")
	}

	req, err := scanRequest(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRequestNotFound
		}
		return nil, storeError(err, "find accepted request")
	}
	return req, nil
}
