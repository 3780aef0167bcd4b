package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/dberrors"
	"github.com/yigit/mentorconnect/internal/pkg/logger"
)

// querier is the subset of pgxpool.Pool and pgx.Tx the repositories use, so
// the same scan helpers work inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository       *UserRepository
	MentorshipRepository *MentorshipRepository
	RoadmapRepository    *RoadmapRepository
	MessageRepository    *MessageRepository
	TokenRepository      *TokenRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:       NewUserRepository(db),
		MentorshipRepository: NewMentorshipRepository(db),
		RoadmapRepository:    NewRoadmapRepository(db),
		MessageRepository:    NewMessageRepository(db),
		TokenRepository:      NewTokenRepository(db),
	}
}

// storeError logs a failed statement and classifies it. Connection-level
// failures become apperrors.ErrUnavailable; everything else is wrapped as is.
func storeError(err error, op string) error {
	if dberrors.IsUnavailable(err) {
		logger.Error().Err(err).Str("op", op).Msg("Database unavailable")
		return apperrors.NewUnavailableError(err)
	}
	logger.Error().Err(err).Str("op", op).Msg("Database statement failed")
	return fmt.Errorf("%s: %w", op, err)
}

// buildError wraps a squirrel ToSql failure
func buildError(err error, op string) error {
	logger.Error().Err(err).Str("op", op).Msg("Error building SQL")
	return fmt.Errorf("failed to build %s query: %w", op, err)
}
