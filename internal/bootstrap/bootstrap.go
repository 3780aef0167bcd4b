package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appAuth "github.com/yigit/mentorconnect/internal/app/auth"
	appControllers "github.com/yigit/mentorconnect/internal/app/controllers"
	appMigrations "github.com/yigit/mentorconnect/internal/app/migrations"
	appRepos "github.com/yigit/mentorconnect/internal/app/repositories"
	appRoutes "github.com/yigit/mentorconnect/internal/app/routes"
	appServices "github.com/yigit/mentorconnect/internal/app/services"
	"github.com/yigit/mentorconnect/internal/config"
	"github.com/yigit/mentorconnect/internal/db"
	appMiddleware "github.com/yigit/mentorconnect/internal/middleware"
	pkgAuth "github.com/yigit/mentorconnect/internal/pkg/auth"
	"github.com/yigit/mentorconnect/internal/pkg/helpers"
	"github.com/yigit/mentorconnect/internal/pkg/logger"
	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
	"github.com/yigit/mentorconnect/internal/pkg/validation"
	"github.com/yigit/mentorconnect/internal/pkg/websocket"
	"github.com/yigit/mentorconnect/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos        *appRepos.Repositories
	JWTService   *pkgAuth.JWTService
	AuthzService *appAuth.AuthorizationService

	AuthService         appServices.AuthService
	MentorshipService   appServices.MentorshipService
	RoadmapService      appServices.RoadmapService
	GamificationService appServices.GamificationService
	ChatService         appServices.ChatService

	Hub      *websocket.Hub
	Bus      websocket.Bus
	Presence websocket.Presence

	Controllers    appRoutes.Controllers
	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format))
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and,
// outside production, seeds demo mentors.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Establishing database connection...")
	dbPool, err := db.NewPool(ctx, cfg, logger.Component("postgres"))
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		dbPool.Close()
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(dbPool, logger.Component("migrator"))
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if !cfg.IsProduction() {
		if _, err := seed.CreateDemoMentors(ctx, appRepos.NewUserRepository(dbPool), logger.Component("seed")); err != nil {
			lgr.Error().Err(err).Msg("Failed to create demo mentors, proceeding anyway...")
		}
	}

	return dbPool, nil
}

// SetupRedis connects to Redis when it is enabled. A nil client means the
// single-instance in-process bus is used.
func SetupRedis(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Redis disabled, using in-process chat delivery")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Redis.Addr, err)
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Str("channel", cfg.Redis.Channel).Msg("Redis connected")
	return rdb, nil
}

// BuildDependencies initializes repositories, services, the chat hub and
// controllers. The hub and bus run until ctx is cancelled.
func BuildDependencies(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, rdb *redis.Client, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)
	deps.AuthzService = appAuth.NewAuthorizationService(deps.Repos.UserRepository)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour, lgr),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour, lgr),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	loc, err := timeutil.LoadLocation(cfg.Gamification.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid gamification timezone: %w", err)
	}

	// chat delivery: Redis fans out across instances, otherwise in-process
	if rdb != nil {
		bus, err := websocket.NewRedisBus(rdb, cfg.Redis.Channel, logger.Component("redis_bus"))
		if err != nil {
			return nil, fmt.Errorf("failed to create redis bus: %w", err)
		}
		deps.Bus = bus
		deps.Presence = websocket.NewRedisPresence(rdb, cfg.Redis.PresenceTTL)
	} else {
		deps.Bus = websocket.NewLocalBus()
	}

	deps.Hub = websocket.NewHub(deps.Presence, logger.Component("hub"))
	go deps.Hub.Run(ctx)
	if err := deps.Bus.Start(ctx, deps.Hub.Dispatch); err != nil {
		return nil, fmt.Errorf("failed to start chat bus: %w", err)
	}

	clock := timeutil.Clock(timeutil.SystemClock)

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.JWTService,
		clock,
		logger.Component("auth"),
	)
	deps.MentorshipService = appServices.NewMentorshipService(
		deps.Repos.UserRepository,
		deps.Repos.MentorshipRepository,
		deps.AuthzService,
		clock,
		logger.Component("mentorship"),
	)
	deps.GamificationService = appServices.NewGamificationService(
		deps.Repos.UserRepository,
		deps.AuthzService,
		clock,
		loc,
		logger.Component("gamification"),
	)
	deps.RoadmapService = appServices.NewRoadmapService(
		deps.Repos.RoadmapRepository,
		deps.Repos.UserRepository,
		deps.AuthzService,
		deps.GamificationService,
		cfg.Gamification.XPPerApproval,
		clock,
		logger.Component("roadmap"),
	)
	deps.ChatService = appServices.NewChatService(
		deps.Repos.UserRepository,
		deps.Repos.MessageRepository,
		deps.AuthzService,
		deps.Bus,
		deps.Hub,
		appServices.ChatOptions{
			RequirePairing:   cfg.Chat.RequirePairing,
			MaxMessageLength: cfg.Chat.MaxMessageLength,
		},
		logger.Component("chat"),
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Repos.UserRepository)

	messageHandler := websocket.NewMessageHandler(deps.ChatService, deps.Hub, deps.Presence, logger.Component("ws"))

	checks := map[string]appControllers.HealthCheck{
		"postgres": dbPool.Ping,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	deps.Controllers = appRoutes.Controllers{
		Auth:         appControllers.NewAuthController(deps.AuthService, logger.Component("auth_controller")),
		Mentorship:   appControllers.NewMentorshipController(deps.MentorshipService, logger.Component("mentorship_controller")),
		Roadmap:      appControllers.NewRoadmapController(deps.RoadmapService, logger.Component("roadmap_controller")),
		Gamification: appControllers.NewGamificationController(deps.GamificationService, logger.Component("gamification_controller")),
		Chat:         appControllers.NewChatController(deps.ChatService, logger.Component("chat_controller")),
		Health:       appControllers.NewHealthController(checks),
		WebSocket:    websocket.NewHandler(ctx, deps.Hub, messageHandler, cfg.Server.AllowedOrigins, logger.Component("ws")),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	lgr.Info().Str("mode", strings.ToLower(cfg.Server.Mode)).Msg("Gin mode set")

	if err := validation.RegisterWithGin(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(),
		appMiddleware.RequestLogger(logger.Component("http")),
		appMiddleware.CORS(cfg.Server.AllowedOrigins),
	)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)
	return router, nil
}
