package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// DefaultSecretKey is only acceptable outside production
const DefaultSecretKey = "dev-secret-change-me"

type Config struct {
	Env       string `mapstructure:"CMS_ENV"`
	HTTPAddr  string `mapstructure:"CMS_HTTP_ADDR"`
	PublicURL string `mapstructure:"CMS_PUBLIC_URL"`
	SecretKey string `mapstructure:"CMS_SECRET_KEY"`

	Database DBConfig       `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Session  SessionConfig  `mapstructure:",squash"`
	Uploads  UploadConfig   `mapstructure:",squash"`
	Mail     MailConfig     `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
	Content  ContentConfig  `mapstructure:",squash"`
	Admin    AdminConfig    `mapstructure:",squash"`
}

type DBConfig struct {
	Type         string `mapstructure:"CMS_DB_TYPE"` // "memory", "postgres", "sqlite"
	DSN          string `mapstructure:"CMS_DB_DSN"`
	MaxOpenConns int    `mapstructure:"CMS_DB_MAX_OPEN_CONNS"`
}

type CacheConfig struct {
	Backend  string `mapstructure:"CMS_KV_BACKEND"` // "memory", "redis"
	RedisURL string `mapstructure:"CMS_REDIS_URL"`
}

type SessionConfig struct {
	TTL           time.Duration `mapstructure:"CMS_SESSION_TTL"`
	RememberTTL   time.Duration `mapstructure:"CMS_REMEMBER_TTL"`
	ResetTokenTTL time.Duration `mapstructure:"CMS_RESET_TOKEN_TTL"`
}

type UploadConfig struct {
	Dir      string `mapstructure:"CMS_UPLOAD_DIR"`
	MaxBytes int64  `mapstructure:"CMS_MAX_UPLOAD_BYTES"`
}

// MailConfig is the fallback transport when the settings row has no mail server
type MailConfig struct {
	Server        string `mapstructure:"CMS_MAIL_SERVER"`
	Port          int    `mapstructure:"CMS_MAIL_PORT"`
	UseTLS        bool   `mapstructure:"CMS_MAIL_USE_TLS"`
	Username      string `mapstructure:"CMS_MAIL_USERNAME"`
	Password      string `mapstructure:"CMS_MAIL_PASSWORD"`
	DefaultSender string `mapstructure:"CMS_MAIL_DEFAULT_SENDER"`
}

type SecurityConfig struct {
	RateLimitRPM       int           `mapstructure:"CMS_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string      `mapstructure:"CMS_CORS_ALLOWED_ORIGINS"`
	LoginMaxAttempts   int           `mapstructure:"CMS_LOGIN_MAX_ATTEMPTS"`
	LoginWindow        time.Duration `mapstructure:"CMS_LOGIN_WINDOW"`
}

type ContentConfig struct {
	StrictCategoryTree bool `mapstructure:"CMS_CATEGORY_STRICT_TREE"`
}

// AdminConfig seeds the first administrator on an empty users table
type AdminConfig struct {
	Username string `mapstructure:"CMS_ADMIN_USERNAME"`
	Email    string `mapstructure:"CMS_ADMIN_EMAIL"`
	Password string `mapstructure:"CMS_ADMIN_PASSWORD"`
}

var defaults = map[string]interface{}{
	"CMS_ENV":                  "dev",
	"CMS_HTTP_ADDR":            ":8080",
	"CMS_PUBLIC_URL":           "http://localhost:8080",
	"CMS_SECRET_KEY":           DefaultSecretKey,
	"CMS_DB_TYPE":              "sqlite",
	"CMS_DB_DSN":               "cms.db",
	"CMS_DB_MAX_OPEN_CONNS":    10,
	"CMS_KV_BACKEND":           "memory",
	"CMS_REDIS_URL":            "redis://127.0.0.1:6379/0",
	"CMS_SESSION_TTL":          "2h",
	"CMS_REMEMBER_TTL":         "720h",
	"CMS_RESET_TOKEN_TTL":      "1h",
	"CMS_UPLOAD_DIR":           filepath.Join("static", "uploads"),
	"CMS_MAX_UPLOAD_BYTES":     16 << 20,
	"CMS_MAIL_SERVER":          "smtp.gmail.com",
	"CMS_MAIL_PORT":            587,
	"CMS_MAIL_USE_TLS":         true,
	"CMS_MAIL_USERNAME":        "",
	"CMS_MAIL_PASSWORD":        "",
	"CMS_MAIL_DEFAULT_SENDER":  "",
	"CMS_RATE_LIMIT_RPM":       300,
	"CMS_CORS_ALLOWED_ORIGINS": "http://localhost:3000,http://localhost:5173",
	"CMS_LOGIN_MAX_ATTEMPTS":   5,
	"CMS_LOGIN_WINDOW":         "15m",
	"CMS_CATEGORY_STRICT_TREE": false,
	"CMS_ADMIN_USERNAME":       "admin",
	"CMS_ADMIN_EMAIL":          "admin@example.com",
	"CMS_ADMIN_PASSWORD":       "admin123",
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // ignore errors; env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Handle array parsing for comma-separated values
	if origins := v.GetString("CMS_CORS_ALLOWED_ORIGINS"); origins != "" {
		parts := strings.Split(origins, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		v.Set("CMS_CORS_ALLOWED_ORIGINS", parts)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "test", "prod":
	default:
		return fmt.Errorf("invalid CMS_ENV %q (must be dev, test, or prod)", c.Env)
	}
	if c.IsProd() && (c.SecretKey == "" || c.SecretKey == DefaultSecretKey) {
		return fmt.Errorf("CMS_SECRET_KEY must be set in prod")
	}

	switch c.Database.Type {
	case "memory":
	case "postgres", "sqlite":
		if c.Database.DSN == "" {
			return fmt.Errorf("CMS_DB_DSN is required for CMS_DB_TYPE=%s", c.Database.Type)
		}
	default:
		return fmt.Errorf("invalid CMS_DB_TYPE %q (must be memory, postgres, or sqlite)", c.Database.Type)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("CMS_REDIS_URL is required for CMS_KV_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid CMS_KV_BACKEND %q (must be memory or redis)", c.Cache.Backend)
	}

	if c.Session.TTL <= 0 || c.Session.RememberTTL <= 0 || c.Session.ResetTokenTTL <= 0 {
		return fmt.Errorf("session and reset token lifetimes must be positive")
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("CMS_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Uploads.Dir == "" {
		return fmt.Errorf("CMS_UPLOAD_DIR is required")
	}
	if c.Security.LoginMaxAttempts < 0 {
		return fmt.Errorf("CMS_LOGIN_MAX_ATTEMPTS must not be negative")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
