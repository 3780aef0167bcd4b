package config

import (
	"fmt"
	"os"
	"time"

	"github.com/yigit/mentorconnect/internal/pkg/timeutil"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port" env:"SERVER_PORT"`
		Mode            string        `yaml:"mode" env:"SERVER_MODE"`
		AllowedOrigins  []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Driver          string        `yaml:"driver" env:"DB_DRIVER"`
		Host            string        `yaml:"host" env:"DB_HOST"`
		Port            string        `yaml:"port" env:"DB_PORT"`
		User            string        `yaml:"user" env:"DB_USER"`
		Password        string        `yaml:"password" env:"DB_PASSWORD"`
		DBName          string        `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int           `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int           `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string        `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		ConnectTimeout  time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Redis struct {
		Enabled     bool          `yaml:"enabled" env:"REDIS_ENABLED"`
		Addr        string        `yaml:"addr" env:"REDIS_ADDR"`
		Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
		DB          int           `yaml:"db" env:"REDIS_DB"`
		Channel     string        `yaml:"channel" env:"REDIS_CHANNEL"`
		PresenceTTL time.Duration `yaml:"presence_ttl" env:"REDIS_PRESENCE_TTL"`
	} `yaml:"redis"`

	Gamification struct {
		// Timezone decides where a day starts for streaks
		Timezone string `yaml:"timezone" env:"GAMIFICATION_TIMEZONE"`
		// XPPerApproval is awarded to the student on each approved unit; 0 disables it
		XPPerApproval int `yaml:"xp_per_approval" env:"GAMIFICATION_XP_PER_APPROVAL"`
	} `yaml:"gamification"`

	Chat struct {
		RequirePairing   bool `yaml:"require_pairing" env:"CHAT_REQUIRE_PAIRING"`
		MaxMessageLength int  `yaml:"max_message_length" env:"CHAT_MAX_MESSAGE_LENGTH"`
	} `yaml:"chat"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	config.Server.ReadTimeout = 15 * time.Second
	config.Server.WriteTimeout = 15 * time.Second
	config.Server.ShutdownTimeout = 10 * time.Second

	// Database defaults
	config.Database.Driver = "postgres"
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "mentorconnect"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.ConnectTimeout = 10 * time.Second

	// JWT defaults
	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.RefreshTokenExpiration = "720h"
	config.JWT.Issuer = "mentorconnect.app"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	// Redis defaults
	config.Redis.Enabled = false
	config.Redis.Addr = "localhost:6379"
	config.Redis.Channel = "mentorconnect:chat"
	config.Redis.PresenceTTL = 90 * time.Second

	// Gamification defaults
	config.Gamification.Timezone = "UTC"
	config.Gamification.XPPerApproval = 0

	// Chat defaults
	config.Chat.RequirePairing = true
	config.Chat.MaxMessageLength = 2000
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if _, err := time.ParseDuration(config.JWT.RefreshTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT refresh token expiration format: %w", err)
	}

	if _, err := timeutil.LoadLocation(config.Gamification.Timezone); err != nil {
		return fmt.Errorf("invalid gamification timezone: %w", err)
	}

	// the upper bound is the per-award cap the gamification service enforces
	if config.Gamification.XPPerApproval < 0 || config.Gamification.XPPerApproval > 10000 {
		return fmt.Errorf("gamification xp_per_approval must be between 0 and 10000")
	}

	if config.Chat.MaxMessageLength <= 0 {
		return fmt.Errorf("chat max_message_length must be positive")
	}

	if config.Redis.Enabled && config.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is enabled")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
