package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/db"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/dberrors"
)

// IUserRepository defines the interface for user repository operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListMentors(ctx context.Context) ([]*models.User, error)
	ListMentees(ctx context.Context, mentorID int64) ([]*models.User, error)
	AssignMentor(ctx context.Context, studentID, mentorID int64) error
	SetMentorshipStatus(ctx context.Context, userID int64, status models.MentorshipStatus) error
	IncrementUnreadNotifications(ctx context.Context, userID int64) error
	ClearUnreadNotifications(ctx context.Context, userID int64) error
	UpdateAvailability(ctx context.Context, userID int64, availability models.Availability) error
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
	UpdateGamification(ctx context.Context, userID int64, fn func(user *models.User) error) (*models.User, error)
	AddBadge(ctx context.Context, userID int64, badge *models.Badge) error
	UpsertReview(ctx context.Context, review *models.MentorReview) (*models.User, error)
}

var userColumns = []string{
	"id", "name", "email", "password", "role",
	"domain", "experience", "bio", "availability", "rating", "total_ratings",
	"assigned_mentor_id", "mentorship_status",
	"xp", "level", "streak", "last_activity_date",
	"unread_notifications", "last_active_at", "created_at", "updated_at",
}

// UserRepository handles user database operations
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.Role,
		&u.Domain, &u.Experience, &u.Bio, &u.Availability, &u.Rating, &u.TotalRatings,
		&u.AssignedMentorID, &u.MentorshipStatus,
		&u.Gamification.XP, &u.Gamification.Level, &u.Gamification.Streak, &u.Gamification.LastActivityDate,
		&u.UnreadNotifications, &u.LastActiveAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Gamification.Badges = []models.Badge{}
	return u, nil
}

// Create inserts a new user and returns its id
func (r *UserRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	if user.MentorshipStatus == "" {
		user.MentorshipStatus = models.MentorshipNone
	}
	if user.Role == models.RoleMentor && user.Availability == "" {
		user.Availability = models.AvailabilityAvailable
	}

	sql, args, err := r.sb.Insert("users").
		Columns("name", "email", "password", "role", "domain", "experience", "bio", "availability", "mentorship_status").
		Values(user.Name, user.Email, user.Password, user.Role, user.Domain, user.Experience, user.Bio, user.Availability, user.MentorshipStatus).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return 0, buildError(err, "create user")
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, dberrors.ConstraintUserEmail) {
			return 0, apperrors.ErrEmailAlreadyExists
		}
		return 0, storeError(err, "create user")
	}

	user.Gamification = models.NewGamification()
	return user.ID, nil
}

// GetByID retrieves a user and their badges
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, r.db, squirrel.Eq{"id": id}, "")
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, r.db, squirrel.Eq{"email": email}, "")
}

// lockRow is the select suffix that holds a row until the transaction ends
const lockRow = "FOR UPDATE"

func selectUserStmt(sb squirrel.StatementBuilderType, where squirrel.Sqlizer, suffix string) squirrel.SelectBuilder {
	builder := sb.Select(userColumns...).From("users").Where(where).Limit(1)
	if suffix != "" {
		builder = builder.Suffix(suffix)
	}
	return builder
}

func (r *UserRepository) getOne(ctx context.Context, q querier, where squirrel.Sqlizer, suffix string) (*models.User, error) {
	sql, args, err := selectUserStmt(r.sb, where, suffix).ToSql()
	if err != nil {
		return nil, buildError(err, "get user")
	}

	user, err := scanUser(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, storeError(err, "get user")
	}

	badges, err := r.listBadges(ctx, q, user.ID)
	if err != nil {
		return nil, err
	}
	user.Gamification.Badges = badges
	return user, nil
}

func (r *UserRepository) listBadges(ctx context.Context, q querier, userID int64) ([]models.Badge, error) {
	sql, args, err := r.sb.Select("id", "name", "icon", "awarded_by", "awarded_at").
		From("badges").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("awarded_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, buildError(err, "list badges")
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list badges")
	}
	defer rows.Close()

	badges := []models.Badge{}
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Icon, &b.AwardedBy, &b.AwardedAt); err != nil {
			return nil, storeError(err, "scan badge")
		}
		badges = append(badges, b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate badges")
	}
	return badges, nil
}

func (r *UserRepository) list(ctx context.Context, where squirrel.Sqlizer, orderBy ...string) ([]*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).OrderBy(orderBy...).ToSql()
	if err != nil {
		return nil, buildError(err, "list users")
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeError(err, "list users")
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeError(err, "scan user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "iterate users")
	}
	return users, nil
}

// ListMentors returns every mentor, best rated first
func (r *UserRepository) ListMentors(ctx context.Context) ([]*models.User, error) {
	return r.list(ctx, squirrel.Eq{"role": models.RoleMentor}, "rating DESC", "id ASC")
}

// ListMentees returns the students assigned to mentorID
func (r *UserRepository) ListMentees(ctx context.Context, mentorID int64) ([]*models.User, error) {
	return r.list(ctx, squirrel.Eq{"role": models.RoleStudent, "assigned_mentor_id": mentorID}, "name ASC", "id ASC")
}

func (r *UserRepository) exec(ctx context.Context, op string, builder squirrel.UpdateBuilder) error {
	sql, args, err := builder.Set("updated_at", squirrel.Expr("NOW()")).ToSql()
	if err != nil {
		return buildError(err, op)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, op)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// assignMentorStmt pairs a student with mentorID unless the student is
// already paired with someone else
func assignMentorStmt(sb squirrel.StatementBuilderType, studentID, mentorID int64) squirrel.UpdateBuilder {
	return sb.Update("users").
		Set("assigned_mentor_id", mentorID).
		Set("mentorship_status", models.MentorshipActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": studentID}).
		Where(squirrel.Or{
			squirrel.Eq{"assigned_mentor_id": nil},
			squirrel.Eq{"assigned_mentor_id": mentorID},
		})
}

// AssignMentor records the pairing on the student row. A student paired
// with a different mentor is left untouched and ErrAlreadyAssigned returned.
func (r *UserRepository) AssignMentor(ctx context.Context, studentID, mentorID int64) error {
	return r.assignMentor(ctx, r.db, studentID, mentorID)
}

func (r *UserRepository) assignMentor(ctx context.Context, q querier, studentID, mentorID int64) error {
	sql, args, err := assignMentorStmt(r.sb, studentID, mentorID).ToSql()
	if err != nil {
		return buildError(err, "assign mentor")
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(err, "assign mentor")
	}
	if tag.RowsAffected() == 0 {
		// missing student or paired elsewhere
		if _, err := r.getOne(ctx, q, squirrel.Eq{"id": studentID}, ""); err != nil {
			return err
		}
		return apperrors.ErrAlreadyAssigned
	}
	return nil
}

// SetMentorshipStatus updates a student's lifecycle status
func (r *UserRepository) SetMentorshipStatus(ctx context.Context, userID int64, status models.MentorshipStatus) error {
	return r.exec(ctx, "set mentorship status", r.sb.Update("users").
		Set("mentorship_status", status).
		Where(squirrel.Eq{"id": userID}))
}

// IncrementUnreadNotifications bumps the counter in a single statement so
// concurrent senders never lose an increment.
func (r *UserRepository) IncrementUnreadNotifications(ctx context.Context, userID int64) error {
	return r.exec(ctx, "increment unread notifications", r.sb.Update("users").
		Set("unread_notifications", squirrel.Expr("unread_notifications + 1")).
		Where(squirrel.Eq{"id": userID}))
}

// ClearUnreadNotifications resets the counter to zero
func (r *UserRepository) ClearUnreadNotifications(ctx context.Context, userID int64) error {
	return r.exec(ctx, "clear unread notifications", r.sb.Update("users").
		Set("unread_notifications", 0).
		Where(squirrel.Eq{"id": userID}))
}

// UpdateAvailability changes a mentor's availability
func (r *UserRepository) UpdateAvailability(ctx context.Context, userID int64, availability models.Availability) error {
	return r.exec(ctx, "update availability", r.sb.Update("users").
		Set("availability", availability).
		Where(squirrel.Eq{"id": userID, "role": models.RoleMentor}))
}

// TouchLastActive stamps the user's last activity time
func (r *UserRepository) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	sql, args, err := r.sb.Update("users").
		Set("last_active_at", at).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return buildError(err, "touch last active")
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return storeError(err, "touch last active")
	}
	return nil
}

// UpdateGamification loads the user under a row lock, lets fn mutate the
// gamification fields and writes them back in the same transaction. Two
// calls for the same user therefore run one after the other.
func (r *UserRepository) UpdateGamification(ctx context.Context, userID int64, fn func(user *models.User) error) (*models.User, error) {
	var updated *models.User
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		user, err := r.getOne(ctx, tx, squirrel.Eq{"id": userID}, lockRow)
		if err != nil {
			return err
		}

		if err := fn(user); err != nil {
			return err
		}

		sql, args, err := r.sb.Update("users").
			Set("xp", user.Gamification.XP).
			Set("level", user.Gamification.Level).
			Set("streak", user.Gamification.Streak).
			Set("last_activity_date", user.Gamification.LastActivityDate).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"id": userID}).
			ToSql()
		if err != nil {
			return buildError(err, "update gamification")
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return storeError(err, "update gamification")
		}

		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AddBadge appends a badge to the user's collection
func (r *UserRepository) AddBadge(ctx context.Context, userID int64, badge *models.Badge) error {
	sql, args, err := r.sb.Insert("badges").
		Columns("user_id", "name", "icon", "awarded_by", "awarded_at").
		Values(userID, badge.Name, badge.Icon, badge.AwardedBy, badge.AwardedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return buildError(err, "add badge")
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&badge.ID); err != nil {
		return storeError(err, "add badge")
	}
	return nil
}

const upsertReviewSQL = `
INSERT INTO mentor_reviews (mentor_id, student_id, rating, comment)
VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT mentor_reviews_mentor_student_key
DO UPDATE SET rating = EXCLUDED.rating, comment = EXCLUDED.comment, updated_at = NOW()
RETURNING id, created_at`

const refreshRatingSQL = `
UPDATE users SET
	rating = COALESCE((SELECT AVG(rating)::float8 FROM mentor_reviews WHERE mentor_id = $1), 0),
	total_ratings = (SELECT COUNT(*) FROM mentor_reviews WHERE mentor_id = $1),
	updated_at = NOW()
WHERE id = $1`

// UpsertReview stores a student's rating of a mentor, replacing an earlier
// one, and recomputes the mentor's average in the same transaction.
func (r *UserRepository) UpsertReview(ctx context.Context, review *models.MentorReview) (*models.User, error) {
	var mentor *models.User
	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertReviewSQL, review.MentorID, review.StudentID, review.Rating, review.Comment).
			Scan(&review.ID, &review.CreatedAt)
		if err != nil {
			return storeError(err, "upsert review")
		}

		tag, err := tx.Exec(ctx, refreshRatingSQL, review.MentorID)
		if err != nil {
			return storeError(err, "refresh rating")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrUserNotFound
		}

		mentor, err = r.getOne(ctx, tx, squirrel.Eq{"id": review.MentorID}, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return mentor, nil
}
