package main

import (
	"os"
	"path/filepath"

	"github.com/yigit/mentorconnect/internal/config"
	"github.com/yigit/mentorconnect/internal/pkg/logger"
	"github.com/yigit/mentorconnect/internal/server"
)

// @title MentorConnect API
// @version 1.0
// @description Mentorship matching, learning roadmaps, gamification and real-time chat between students and mentors.

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	configPath := config.GetEnv("CONFIG_PATH", filepath.Join("configs", "config.yaml"))

	srv, err := server.NewServer(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
