package helpers

import (
	"time"

	"github.com/rs/zerolog"
)

// ParseDuration parses a config duration such as "15m" or "720h". Empty,
// malformed and non-positive values fall back to def and are logged.
func ParseDuration(value string, def time.Duration, lgr zerolog.Logger) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		lgr.Warn().Err(err).Str("value", value).Dur("default", def).Msg("Invalid duration in config, using default")
		return def
	}
	return d
}
