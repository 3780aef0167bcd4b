package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/dberrors"
	"github.com/yigit/mentorconnect/internal/pkg/logger"
)

const constraintRefreshToken = "refresh_tokens_token_key"

// revokedRetention is how long revoked tokens are kept before cleanup
const revokedRetention = 30 * 24 * time.Hour

// ITokenRepository defines refresh token persistence
type ITokenRepository interface {
	Create(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	Consume(ctx context.Context, token string, now time.Time) (int64, error)
	RevokeAllForUser(ctx context.Context, userID int64) error
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// TokenRepository stores refresh tokens
type TokenRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create stores a new refresh token
func (r *TokenRepository) Create(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	sql, args, err := r.sb.Insert("refresh_tokens").
		Columns("token", "user_id", "expiry_date", "is_revoked").
		Values(token, userID, expiresAt, false).
		ToSql()
	if err != nil {
		return buildError(err, "create token")
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, constraintRefreshToken) {
			logger.Warn().Int64("userID", userID).Msg("Duplicate refresh token generated")
			return apperrors.ErrTokenInvalid
		}
		return storeError(err, "create token")
	}
	return nil
}

// Consume revokes a live token and returns its owner. Rotation is single use:
// a second Consume of the same token reports ErrTokenRevoked.
func (r *TokenRepository) Consume(ctx context.Context, token string, now time.Time) (int64, error) {
	sql, args, err := r.sb.Select("user_id", "expiry_date", "is_revoked").
		From("refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return 0, buildError(err, "get token")
	}

	var (
		userID    int64
		expiresAt time.Time
		revoked   bool
	)
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&userID, &expiresAt, &revoked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrTokenNotFound
		}
		return 0, storeError(err, "get token")
	}
	if revoked {
		return 0, apperrors.ErrTokenRevoked
	}
	if expiresAt.Before(now) {
		return 0, apperrors.ErrTokenExpired
	}

	sql, args, err = r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"token": token, "is_revoked": false}).
		ToSql()
	if err != nil {
		return 0, buildError(err, "revoke token")
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, storeError(err, "revoke token")
	}
	if tag.RowsAffected() == 0 {
		return 0, apperrors.ErrTokenRevoked
	}
	return userID, nil
}

// RevokeAllForUser revokes every active token of a user
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("refresh_tokens").
		Set("is_revoked", true).
		Where(squirrel.Eq{"user_id": userID, "is_revoked": false}).
		ToSql()
	if err != nil {
		return buildError(err, "revoke user tokens")
	}

	if _, err = r.db.Exec(ctx, sql, args...); err != nil {
		return storeError(err, "revoke user tokens")
	}
	return nil
}

// CleanupExpired deletes expired tokens and revoked ones past retention
func (r *TokenRepository) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	sql, args, err := r.sb.Delete("refresh_tokens").
		Where(squirrel.Or{
			squirrel.Lt{"expiry_date": now},
			squirrel.And{
				squirrel.Eq{"is_revoked": true},
				squirrel.Lt{"created_at": now.Add(-revokedRetention)},
			},
		}).
		ToSql()
	if err != nil {
		return 0, buildError(err, "cleanup tokens")
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, storeError(err, "cleanup tokens")
	}

	logger.Info().Int64("deletedCount", tag.RowsAffected()).Msg("Cleaned up expired refresh tokens")
	return tag.RowsAffected(), nil
}
