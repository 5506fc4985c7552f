package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type CountingMode string

const (
	CountAll      CountingMode = "all"
	CountFailures CountingMode = "failures"
	CountSuccess  CountingMode = "success"
)

type Config struct {
	App       AppConfig       `envPrefix:"APP_"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Mail      MailConfig      `envPrefix:"MAIL_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	CORS      CORSConfig      `envPrefix:"CORS_"`
}

type AppConfig struct {
	Name        string `env:"NAME" envDefault:"Barae"`
	Env         string `env:"ENV" envDefault:"development"`
	Secret      string `env:"SECRET"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
}

func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development" || a.Env == "test"
}

type ServerConfig struct {
	Port              string        `env:"PORT" envDefault:"3000"`
	Host              string        `env:"HOST" envDefault:"0.0.0.0"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TrustedProxies    []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	// BodyLimit caps request bodies, in echo's size notation (e.g. 512K, 1M).
	BodyLimit string `env:"BODY_LIMIT" envDefault:"1M"`
}

type LogConfig struct {
	Level          string `env:"LEVEL" envDefault:"info"`
	Format         string `env:"FORMAT" envDefault:"json"`
	Output         string `env:"OUTPUT" envDefault:"stdout"`
	FileMaxSize    int    `env:"FILE_MAX_SIZE" envDefault:"10"`
	FileMaxBackups int    `env:"FILE_MAX_BACKUPS" envDefault:"7"`
	FileMaxAge     int    `env:"FILE_MAX_AGE" envDefault:"28"`
	FileCompress   bool   `env:"FILE_COMPRESS" envDefault:"true"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"postgres"`
	DSN         string `env:"DSN"`
	Host        string `env:"HOST" envDefault:"localhost"`
	Port        int    `env:"PORT" envDefault:"5432"`
	Name        string `env:"NAME" envDefault:"barae"`
	User        string `env:"USER" envDefault:"barae"`
	Password    string `env:"PASSWORD"`
	SSLMode     string `env:"SSL_MODE" envDefault:"disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`
}

// ConnectionString returns DSN when set, otherwise a postgres URL assembled
// from the individual fields.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

type SessionConfig struct {
	Store       string        `env:"STORE" envDefault:"database"`
	Name        string        `env:"NAME" envDefault:"barae_session"`
	Lifetime    time.Duration `env:"LIFETIME" envDefault:"720h"`
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"168h"`
	Secure      bool          `env:"SECURE" envDefault:"false"`
	HttpOnly    bool          `env:"HTTP_ONLY" envDefault:"true"`
	SameSite    string        `env:"SAME_SITE" envDefault:"lax"`
	Domain      string        `env:"DOMAIN"`
	Path        string        `env:"PATH" envDefault:"/"`
}

type AuthConfig struct {
	BasePath   string `env:"BASE_PATH" envDefault:"/api/v1/auth"`
	PublicPath string `env:"PUBLIC_PATH" envDefault:"/v1/auth"`

	MinPasswordLength int  `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
	MaxPasswordLength int  `env:"MAX_PASSWORD_LENGTH" envDefault:"128"`
	RequireUpper      bool `env:"REQUIRE_UPPER" envDefault:"false"`
	RequireLower      bool `env:"REQUIRE_LOWER" envDefault:"false"`
	RequireNumber     bool `env:"REQUIRE_NUMBER" envDefault:"false"`
	RequireSpecial    bool `env:"REQUIRE_SPECIAL" envDefault:"false"`
	BcryptCost        int  `env:"BCRYPT_COST" envDefault:"10"`

	RequireEmailVerification bool `env:"REQUIRE_EMAIL_VERIFICATION" envDefault:"true"`
	SendVerificationOnSignUp bool `env:"SEND_VERIFICATION_ON_SIGN_UP" envDefault:"true"`

	EmailVerificationExpiry time.Duration `env:"EMAIL_VERIFICATION_EXPIRY" envDefault:"24h"`
	PasswordResetExpiry     time.Duration `env:"PASSWORD_RESET_EXPIRY" envDefault:"1h"`
	OTPExpiry               time.Duration `env:"OTP_EXPIRY" envDefault:"5m"`
	OTPLength               int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPCooldown             time.Duration `env:"OTP_COOLDOWN" envDefault:"60s"`
	TokenBytes              int           `env:"TOKEN_BYTES" envDefault:"32"`

	TrustedOrigins []string `env:"TRUSTED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

type MailConfig struct {
	Host        string        `env:"HOST"`
	Port        int           `env:"PORT" envDefault:"587"`
	Username    string        `env:"USERNAME"`
	Password    string        `env:"PASSWORD"`
	Encryption  string        `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress string        `env:"FROM_ADDRESS" envDefault:"noreply@barae.app"`
	FromName    string        `env:"FROM_NAME" envDefault:"Barae"`
	SendRate    float64       `env:"SEND_RATE" envDefault:"5"`
	SendBurst   int           `env:"SEND_BURST" envDefault:"10"`
	SendTimeout time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`
}

// SMTPEnabled reports whether outbound mail goes through an SMTP relay.
// Without a host, messages are written to the log instead.
func (m MailConfig) SMTPEnabled() bool {
	return m.Host != ""
}

type RateLimitConfig struct {
	Enabled   bool          `env:"ENABLED" envDefault:"true"`
	Store     string        `env:"STORE" envDefault:"memory"`
	Rate      int           `env:"RATE" envDefault:"10"`
	Period    time.Duration `env:"PERIOD" envDefault:"1m"`
	CountMode CountingMode  `env:"COUNT_MODE" envDefault:"failures"`
}

type RedisConfig struct {
	URL string `env:"URL"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

func LoadConfig(cfg *Config) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg.Validate()
}

func (c *Config) Validate() error {
	var errs []error

	if !c.App.IsDevelopment() && len(c.App.Secret) < 32 {
		errs = append(errs, errors.New("APP_SECRET must be at least 32 characters"))
	}

	switch c.Database.Driver {
	case "sqlite", "postgres", "postgresql", "mysql":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", c.Database.Driver))
	}

	switch c.Session.Store {
	case "memory", "database":
	default:
		errs = append(errs, fmt.Errorf("unsupported session store: %s", c.Session.Store))
	}

	if !strings.HasPrefix(c.Auth.BasePath, "/") || !strings.HasPrefix(c.Auth.PublicPath, "/") {
		errs = append(errs, errors.New("AUTH_BASE_PATH and AUTH_PUBLIC_PATH must start with /"))
	}

	if c.Auth.TokenBytes < 16 {
		errs = append(errs, errors.New("AUTH_TOKEN_BYTES must be at least 16"))
	}

	if c.Auth.OTPLength < 4 || c.Auth.OTPLength > 10 {
		errs = append(errs, errors.New("AUTH_OTP_LENGTH must be between 4 and 10"))
	}

	if c.Mail.SMTPEnabled() && c.Mail.FromAddress == "" {
		errs = append(errs, errors.New("MAIL_FROM_ADDRESS is required"))
	}

	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when RATE_LIMIT_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported rate limit store: %s", c.RateLimit.Store))
	}

	switch c.RateLimit.CountMode {
	case CountAll, CountFailures, CountSuccess:
	default:
		errs = append(errs, fmt.Errorf("unsupported rate limit count mode: %s", c.RateLimit.CountMode))
	}

	return errors.Join(errs...)
}
