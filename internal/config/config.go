package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string
	LogLevel       string

	Database DatabaseConfig
	RedisURL string

	JWTSecret string
	JWTTTL    time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryUploadFolder string

	Email EmailConfig

	NotifyQueueSize       int
	NotifyWorkers         int
	NotificationRetention time.Duration

	RateLimitAPI      RateLimit
	RateLimitAuth     RateLimit
	RateLimitProject  RateLimit
	RateLimitProposal RateLimit
}

type DatabaseConfig struct {
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value DSN.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type EmailConfig struct {
	Enabled  bool
	From     string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

// RateLimit allows Requests per Window for one client key.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASS"),
			Name:     getEnv("DB_NAME", "skillbridge"),
			Port:     getEnv("DB_PORT", "5432"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL: os.Getenv("REDIS_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "skillbridge"),

		Email: EmailConfig{
			Enabled:  getEnv("EMAIL_ENABLED", "false") == "true",
			From:     getEnv("FROM_EMAIL", "noreply@skillbridge.com"),
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: getEnv("SMTP_PORT", "587"),
			SMTPUser: os.Getenv("SMTP_USER"),
			SMTPPass: os.Getenv("SMTP_PASS"),
		},
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, errors.New("JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}

	var err error
	if cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.NotificationRetention, err = time.ParseDuration(getEnv("NOTIFICATION_RETENTION", "720h")); err != nil {
		return nil, fmt.Errorf("invalid NOTIFICATION_RETENTION: %w", err)
	}
	if cfg.NotifyQueueSize, err = strconv.Atoi(getEnv("NOTIFY_QUEUE_SIZE", "256")); err != nil || cfg.NotifyQueueSize < 1 {
		return nil, fmt.Errorf("invalid NOTIFY_QUEUE_SIZE")
	}
	if cfg.NotifyWorkers, err = strconv.Atoi(getEnv("NOTIFY_WORKERS", "2")); err != nil || cfg.NotifyWorkers < 1 {
		return nil, fmt.Errorf("invalid NOTIFY_WORKERS")
	}

	limits := []struct {
		key      string
		fallback string
		dst      *RateLimit
	}{
		{"RATE_LIMIT_API", "100/15m", &cfg.RateLimitAPI},
		{"RATE_LIMIT_AUTH", "5/15m", &cfg.RateLimitAuth},
		{"RATE_LIMIT_PROJECT", "10/1h", &cfg.RateLimitProject},
		{"RATE_LIMIT_PROPOSAL", "20/1h", &cfg.RateLimitProposal},
	}
	for _, l := range limits {
		rl, err := ParseRateLimit(getEnv(l.key, l.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", l.key, err)
		}
		*l.dst = rl
	}

	return cfg, nil
}

// ParseRateLimit parses "<requests>/<window>", e.g. "20/1h".
func ParseRateLimit(s string) (RateLimit, error) {
	count, window, ok := strings.Cut(s, "/")
	if !ok {
		return RateLimit{}, fmt.Errorf("expected <requests>/<window>, got %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n < 1 {
		return RateLimit{}, fmt.Errorf("invalid request count %q", count)
	}
	d, err := time.ParseDuration(strings.TrimSpace(window))
	if err != nil || d <= 0 {
		return RateLimit{}, fmt.Errorf("invalid window %q", window)
	}
	return RateLimit{Requests: n, Window: d}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
