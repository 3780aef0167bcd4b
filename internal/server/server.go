package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/yigit/mentorconnect/internal/bootstrap"
	"github.com/yigit/mentorconnect/internal/config"
)

// Server holds the state for the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	deps   *bootstrap.Dependencies
	dbPool *pgxpool.Pool
	redis  *redis.Client
	logger zerolog.Logger
	http   *http.Server

	// cancel stops the hub and the bus subscription
	cancel context.CancelFunc
}

// NewServer creates and initializes a new server instance by calling bootstrap functions.
func NewServer(configPath string) (*Server, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config or setup logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{config: cfg, logger: lgr, cancel: cancel}

	s.dbPool, err = bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	s.redis, err = bootstrap.SetupRedis(ctx, cfg, lgr)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("failed to setup redis: %w", err)
	}

	s.deps, err = bootstrap.BuildDependencies(ctx, cfg, s.dbPool, s.redis, lgr)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("failed to setup dependencies: %w", err)
	}

	s.router, err = bootstrap.SetupRouter(cfg, s.deps, lgr)
	if err != nil {
		s.release()
		return nil, fmt.Errorf("failed to setup router: %w", err)
	}

	return s, nil
}

// Run starts the HTTP server and handles graceful shutdown.
func (s *Server) Run() error {
	s.http = &http.Server{
		Addr:         ":" + s.config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			s.release()
			return fmt.Errorf("error starting server: %w", err)
		}
	case sig := <-osSignals:
		s.logger.Info().Str("signal", sig.String()).Msg("Received OS signal, initiating shutdown...")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully stops the server and closes resources.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if s.http != nil {
		s.logger.Info().Msg("Shutting down HTTP server...")
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = err
		}
	}

	s.release()
	s.logger.Info().Msg("Server shutdown process complete.")
	return shutdownErr
}

// release stops background chat delivery, then closes the stores
func (s *Server) release() {
	s.cancel()
	if s.deps != nil && s.deps.Bus != nil {
		if err := s.deps.Bus.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Chat bus close error")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Redis close error")
		}
	}
	if s.dbPool != nil {
		s.dbPool.Close()
		s.logger.Info().Msg("Database connection pool closed.")
	}
}
