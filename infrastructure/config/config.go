package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PriceBasisCurrent    = "current"
	PriceBasisHistorical = "historical"
)

type Config struct {
	Server ServerConfig
	Logger LoggerConfig
	SQLite SQLiteConfig
	Auth   AuthConfig
	Redis  RedisConfig
	Report ReportConfig
}

type ServerConfig struct {
	Addr          string
	PublicBaseURL string
	SecureCookies bool
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SQLiteConfig struct {
	Path         string
	MaxReadConns int
}

type AuthConfig struct {
	SessionTTL         time.Duration
	ResetTokenTTL      time.Duration
	SupremeAdminEmail  string
	SupremeAdminName   string
	AdminPassword      string
	RateLimitPerMinute int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type ReportConfig struct {
	PriceBasis string
	Location   *time.Location
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env failed", slog.Any("err", err))
	}
	return FromEnv()
}

// FromEnv builds the config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:          getEnv("APP_ADDR", ":8080"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			SecureCookies: getEnvBool("SECURE_COOKIES", false),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		SQLite: SQLiteConfig{
			Path:         getEnv("SQLITE_PATH", "stockmaster.db"),
			MaxReadConns: getEnvInt("SQLITE_MAX_READ_CONNS", 8),
		},
		Auth: AuthConfig{
			SessionTTL:         getEnvDuration("SESSION_TTL", 12*time.Hour),
			ResetTokenTTL:      getEnvDuration("RESET_TOKEN_TTL", time.Hour),
			SupremeAdminEmail:  strings.ToLower(getEnv("SUPREME_ADMIN_EMAIL", "admin@stockmaster.local")),
			SupremeAdminName:   getEnv("SUPREME_ADMIN_NAME", "Administrator"),
			AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
			RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Report: ReportConfig{
			PriceBasis: normalizePriceBasis(getEnv("REPORT_PRICE_BASIS", PriceBasisCurrent)),
			Location:   loadLocation(getEnv("REPORT_TIMEZONE", "Local")),
		},
	}
}

// NewLogger builds the slog handler selected by LOG_FORMAT and LOG_LEVEL.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func normalizePriceBasis(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), PriceBasisHistorical) {
		return PriceBasisHistorical
	}
	return PriceBasisCurrent
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		slog.Warn("unknown REPORT_TIMEZONE, using local time", slog.String("tz", name), slog.Any("err", err))
		return time.Local
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
