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
)

// IRoadmapRepository defines the persistence operations on roadmap items
type IRoadmapRepository interface {
	Create(ctx context.Context, item *models.RoadmapItem) error
	GetByID(ctx context.Context, id int64) (*models.RoadmapItem, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*models.RoadmapItem, error)
	ListByMentor(ctx context.Context, mentorID int64) ([]*models.RoadmapItem, error)
	UpdateStatus(ctx context.Context, id int64, status models.RoadmapStatus) error
	Delete(ctx context.Context, id int64) error
	UpdateUnit(ctx context.Context, unit *models.RoadmapUnit, expectedVersion int64) error
	AddQuestion(ctx context.Context, q *models.Question) error
	AnswerQuestion(ctx context.Context, q *models.Question) error
}

var (
	itemColumns = []string{"id", "title", "description", "mentor_id", "student_id", "status", "deadline", "created_at", "updated_at"}
	unitColumns = []string{
		"id", "roadmap_id", "kind", "position", "title", "description", "url", "status",
		"submission", "submission_link", "student_comments", "mentor_comments",
		"submitted_at", "reviewed_at", "watched_at", "version",
	}
	questionColumns = []string{"id", "roadmap_id", "question", "answer", "asked_at", "answered_at"}
)

// RoadmapRepository handles roadmap database operations
type RoadmapRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRoadmapRepository creates a new RoadmapRepository
func NewRoadmapRepository(db *pgxpool.Pool) *RoadmapRepository {
	return &RoadmapRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the item and all of its units in one transaction
func (r *RoadmapRepository) Create(ctx context.Context, item *models.RoadmapItem) error {
	if item.Status == "" {
		item.Status = models.RoadmapActive
	}

	return db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("roadmap_items").
			Columns("title", "description", "mentor_id", "student_id", "status", "deadline").
			Values(item.Title, item.Description, item.MentorID, item.StudentID, item.Status, item.Deadline).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return buildError(err, "create roadmap")
		}
		if err := tx.QueryRow(ctx, sql, args...).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return storeError(err, "create roadmap")
		}

		for _, units := range [][]models.RoadmapUnit{item.Tasks, item.Videos, item.Assignments} {
			for i := range units {
				if err := r.insertUnit(ctx, tx, item.ID, &units[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *RoadmapRepository) insertUnit(ctx context.Context, tx pgx.Tx, roadmapID int64, u *models.RoadmapUnit) error {
	u.RoadmapID = roadmapID
	if u.Status == "" {
		u.Status = models.UnitPending
	}

	sql, args, err := r.sb.Insert("roadmap_units").
		Columns("roadmap_id", "kind", "position", "title", "description", "url", "status").
		Values(roadmapID, u.Kind, u.Position, u.Title, u.Description, u.URL, u.Status).
		Suffix("RETURNING id, version").
		ToSql()
	if err != nil {
		return buildError(err, "create unit")
	}
	if err := tx.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Version); err != nil {
		return storeError(err, "create unit")
	}
	return nil
}

func scanItem(row pgx.Row) (*models.RoadmapItem, error) {
	item := &models.RoadmapItem{
		Tasks:       []models.RoadmapUnit{},
		Videos:      []models.RoadmapUnit{},
		Assignments: []models.RoadmapUnit{},
		Questions:   []models.Question{},
	}
	err := row.Scan(&item.ID, &item.Title, &item.Description, &item.MentorID, &item.StudentID,
		&item.Status, &item.Deadline, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetByID loads an item with its units and questions
func (r *RoadmapRepository) GetByID(ctx context.Context, id int64) (*models.RoadmapItem, error) {
	sql, args, err := r.sb.Select(itemColumns...).
		From("roadmap_items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, buildError(err, "get roadmap")
	}

	item, err := scanItem(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoadmapNotFound
		}
		return nil, storeError(err, "get roadmap")
	}

	if err := r.attachChildren(ctx, map[int64]*models.RoadmapItem{item.ID: item}); err != nil {
		return nil, err
	}
	return item, nil
}

// ListByStudent returns the items built for a student, newest first
func (r *RoadmapRepository) ListByStudent(ctx context.Context, studentID int64) ([]*models.RoadmapItem, error) {
	return r.list(ctx, squirrel.Eq{"student_id": studentID})
}

// ListByMentor returns the items a mentor created, newest first
func (r *RoadmapRepository) ListByMentor(ctx context.Context, mentorID int64) ([]*models.RoadmapItem, error) {
	return r.list(ctx, squirrel.Eq{"mentor_id": mentorID})
}

func (r *RoadmapRepository) list(ctx context.Context, where squirrel.Sqlizer) ([]*models.RoadmapItem, error) {
	sql, args, err := r.sb.Select(itemColumns...).
		From("roadmap_items").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, buildError(err, "list roadmaps")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list roadmaps")
	}
	defer rows.Close()

	items := []*models.RoadmapItem{}
	byID := map[int64]*models.RoadmapItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeError(err, "scan roadmap")
		}
		items = append(items, item)
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate roadmaps")
	}

	if len(items) == 0 {
		return items, nil
	}
	if err := r.attachChildren(ctx, byID); err != nil {
		return nil, err
	}
	return items, nil
}

// attachChildren loads units and questions for every item in one query each
func (r *RoadmapRepository) attachChildren(ctx context.Context, byID map[int64]*models.RoadmapItem) error {
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	sql, args, err := r.sb.Select(unitColumns...).
		From("roadmap_units").
		Where(squirrel.Eq{"roadmap_id": ids}).
		OrderBy("roadmap_id", "position", "id").
		ToSql()
	if err != nil {
		return buildError(err, "list units")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return storeError(err, "list units")
	}
	for rows.Next() {
		var u models.RoadmapUnit
		err := rows.Scan(&u.ID, &u.RoadmapID, &u.Kind, &u.Position, &u.Title, &u.Description, &u.URL, &u.Status,
			&u.Submission, &u.SubmissionLink, &u.StudentComments, &u.MentorComments,
			&u.SubmittedAt, &u.ReviewedAt, &u.WatchedAt, &u.Version)
		if err != nil {
			rows.Close()
			return storeError(err, "scan unit")
		}
		if item, ok := byID[u.RoadmapID]; ok {
			item.AddUnit(u)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storeError(err, "iterate units")
	}

	sql, args, err = r.sb.Select(questionColumns...).
		From("roadmap_questions").
		Where(squirrel.Eq{"roadmap_id": ids}).
		OrderBy("roadmap_id", "asked_at", "id").
		ToSql()
	if err != nil {
		return buildError(err, "list questions")
	}

	rows, err = r.db.Query(ctx, sql, args...)
	if err != nil {
		return storeError(err, "list questions")
	}
	defer rows.Close()
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.RoadmapID, &q.Question, &q.Answer, &q.AskedAt, &q.AnsweredAt); err != nil {
			return storeError(err, "scan question")
		}
		if item, ok := byID[q.RoadmapID]; ok {
			item.Questions = append(item.Questions, q)
		}
	}
	if err := rows.Err(); err != nil {
		return storeError(err, "iterate questions")
	}
	return nil
}

// UpdateStatus changes the item-level status
func (r *RoadmapRepository) UpdateStatus(ctx context.Context, id int64, status models.RoadmapStatus) error {
	sql, args, err := r.sb.Update("roadmap_items").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return buildError(err, "update roadmap status")
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, "update roadmap status")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRoadmapNotFound
	}
	return nil
}

// Delete removes an item; units and questions cascade
func (r *RoadmapRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("roadmap_items").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return buildError(err, "delete roadmap")
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, "delete roadmap")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRoadmapNotFound
	}
	return nil
}

// UpdateUnit writes the unit's mutable fields only if its stored version is
// still expectedVersion, then bumps the version. A concurrent writer that got
// there first makes this return ErrStaleUnit and nothing is written.
func (r *RoadmapRepository) UpdateUnit(ctx context.Context, unit *models.RoadmapUnit, expectedVersion int64) error {
	sql, args, err := updateUnitStmt(r.sb, unit, expectedVersion).ToSql()
	if err != nil {
		return buildError(err, "update unit")
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&unit.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrStaleUnit
		}
		return storeError(err, "update unit")
	}
	return nil
}

// updateUnitStmt writes the unit only while its version is still
// expectedVersion, bumping the version and returning the new one
func updateUnitStmt(sb squirrel.StatementBuilderType, unit *models.RoadmapUnit, expectedVersion int64) squirrel.UpdateBuilder {
	return sb.Update("roadmap_units").
		SetMap(map[string]interface{}{
			"status":           unit.Status,
			"submission":       unit.Submission,
			"submission_link":  unit.SubmissionLink,
			"student_comments": unit.StudentComments,
			"mentor_comments":  unit.MentorComments,
			"submitted_at":     unit.SubmittedAt,
			"reviewed_at":      unit.ReviewedAt,
			"watched_at":       unit.WatchedAt,
			"version":          squirrel.Expr("version + 1"),
		}).
		Where(squirrel.Eq{"id": unit.ID, "roadmap_id": unit.RoadmapID, "version": expectedVersion}).
		Suffix("RETURNING version")
}

// AddQuestion appends a question to an item
func (r *RoadmapRepository) AddQuestion(ctx context.Context, q *models.Question) error {
	sql, args, err := r.sb.Insert("roadmap_questions").
		Columns("roadmap_id", "question").
		Values(q.RoadmapID, q.Question).
		Suffix("RETURNING id, asked_at").
		ToSql()
	if err != nil {
		return buildError(err, "add question")
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&q.ID, &q.AskedAt); err != nil {
		return storeError(err, "add question")
	}
	return nil
}

// AnswerQuestion stores the mentor's answer
func (r *RoadmapRepository) AnswerQuestion(ctx context.Context, q *models.Question) error {
	sql, args, err := r.sb.Update("roadmap_questions").
		Set("answer", q.Answer).
		Set("answered_at", q.AnsweredAt).
		Where(squirrel.Eq{"id": q.ID, "roadmap_id": q.RoadmapID}).
		ToSql()
	if err != nil {
		return buildError(err, "answer question")
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, "answer question")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrQuestionNotFound
	}
	return nil
}
