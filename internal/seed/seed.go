// Package seed creates demo accounts for local development
package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/yigit/mentorconnect/internal/app/models"
	"github.com/yigit/mentorconnect/internal/pkg/apperrors"
	"github.com/yigit/mentorconnect/internal/pkg/auth"
)

// DemoPassword is the password of every seeded account
const DemoPassword = "mentor123"

// UserCreator is the part of the user repository the seeder needs
type UserCreator interface {
	Create(ctx context.Context, user *models.User) (int64, error)
}

// DemoMentors are created on development start-up so a fresh database has
// someone to request
var DemoMentors = []models.User{
	{Name: "Aida Sultanova", Email: "aida.mentor@mentorconnect.dev", Domain: "Backend", Experience: "8 years", Bio: "Go and distributed systems."},
	{Name: "Marat Ismailov", Email: "marat.mentor@mentorconnect.dev", Domain: "Frontend", Experience: "5 years", Bio: "React, accessibility and design systems."},
	{Name: "Dana Bekova", Email: "dana.mentor@mentorconnect.dev", Domain: "Data Science", Experience: "6 years", Bio: "ML pipelines and statistics."},
}

// CreateDemoMentors inserts DemoMentors, skipping any whose email is taken.
// It returns how many were created; failures are joined and reported after
// every account was attempted.
func CreateDemoMentors(ctx context.Context, users UserCreator, lgr zerolog.Logger) (int, error) {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return 0, err
	}

	var finalErr error
	created := 0
	for _, m := range DemoMentors {
		user := m
		user.Role = models.RoleMentor
		user.Password = hash
		user.Availability = models.AvailabilityAvailable

		if _, err := users.Create(ctx, &user); err != nil {
			if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
				continue
			}
			lgr.Error().Err(err).Str("email", user.Email).Msg("Error creating demo mentor")
			finalErr = errors.Join(finalErr, err)
			continue
		}
		created++
	}

	lgr.Info().Int("created", created).Msg("Demo mentors checked")
	return created, finalErr
}
