package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strconv"

	"memory-match-server/engine"
)

// Config holds all configurable server parameters.
type Config struct {
	// RevealDelayMS is how long a revealed pair stays face-up before it is resolved.
	RevealDelayMS int    `json:"reveal_delay_ms"`
	MaxNameLength int    `json:"max_name_length"`
	HTTPPort      int    `json:"http_port"`
	MaxSessions   int    `json:"max_sessions"`
	DatabaseURL   string `json:"database_url"`
	AuthBaseURL   string `json:"auth_base_url"`
	LogLevel      string `json:"log_level"`
	AllowedOrigin string `json:"allowed_origin"`

	// CardValues is the deck dealt to every session. It is fixed and not read from config.json or env.
	CardValues []string `json:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	values := make([]string, len(engine.DefaultValues))
	copy(values, engine.DefaultValues)
	return &Config{
		RevealDelayMS: 500,
		MaxNameLength: 24,
		HTTPPort:      8080,
		MaxSessions:   1000,
		LogLevel:      "info",
		AllowedOrigin: "*",
		CardValues:    values,
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	return LoadFile("config.json")
}

// LoadFile is Load with an explicit config file path. A missing file is not an error.
func LoadFile(path string) *Config {
	cfg := Defaults()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config file", "tag", "config", "path", path, "err", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to open config file", "tag", "config", "path", path, "err", err)
	}

	// Environment variable overrides
	overrideInt(&cfg.RevealDelayMS, "REVEAL_DELAY_MS")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.HTTPPort, "HTTP_PORT")
	overrideInt(&cfg.MaxSessions, "MAX_SESSIONS")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.AllowedOrigin, "ALLOWED_ORIGIN")

	if cfg.RevealDelayMS < 0 {
		slog.Warn("negative reveal delay, using 0", "tag", "config", "value", cfg.RevealDelayMS)
		cfg.RevealDelayMS = 0
	}

	return cfg
}

// ParseLevel maps a LOG_LEVEL string to a slog level. Unknown values map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid value for env override", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
