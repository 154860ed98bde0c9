package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Auth     AuthConfig
	Compare  CompareConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	URL             string
	Driver          string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	UseMock         bool
}

// LoggingConfig controls the global log level.
type LoggingConfig struct {
	Level string
}

// AuthConfig groups settings for the browser session that owns builder state.
type AuthConfig struct {
	Session SessionConfig
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// CompareConfig holds defaults for the unit-normalization comparator.
type CompareConfig struct {
	DefaultGramsPerPiece float64
}

// Load reads an optional .env file (ENV_FILE overrides the path), then
// inspects the environment and builds a Config value. Variables already set in
// the environment win over the file.
func Load() (Config, error) {
	if err := loadDotEnv(firstNonEmpty(os.Getenv("ENV_FILE"), ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{}

	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			":8080",
		),
	}

	cfg.Database = DatabaseConfig{
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			"",
		),
		Driver:          strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))),
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 5),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), 20),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), 30*time.Minute),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 5*time.Minute),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), false),
	}

	cfg.Logging = LoggingConfig{
		Level: strings.ToLower(firstNonEmpty(os.Getenv("LOG_LEVEL"), "info")),
	}

	cfg.Auth = AuthConfig{
		Session: SessionConfig{
			Lifetime:     parseDurationWithDefault(os.Getenv("SESSION_LIFETIME"), 12*time.Hour),
			CookieName:   firstNonEmpty(os.Getenv("SESSION_COOKIE_NAME"), "platecost_session"),
			CookieDomain: strings.TrimSpace(os.Getenv("SESSION_COOKIE_DOMAIN")),
			CookieSecure: parseBoolWithDefault(os.Getenv("SESSION_COOKIE_SECURE"), true),
		},
	}

	cfg.Compare = CompareConfig{
		DefaultGramsPerPiece: parseFloatWithDefault(os.Getenv("COMPARE_DEFAULT_GRAMS_PER_PIECE"), 1),
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}
	if !cfg.Database.UseMock && strings.TrimSpace(cfg.Database.URL) == "" {
		return Config{}, fmt.Errorf("database URL must not be empty unless DATABASE_USE_MOCK is set")
	}
	switch cfg.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Compare.DefaultGramsPerPiece <= 0 {
		return Config{}, fmt.Errorf("COMPARE_DEFAULT_GRAMS_PER_PIECE must be greater than zero")
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseFloatWithDefault(value string, def float64) float64 {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	if strings.TrimSpace(value) == "" {
		return def
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}
