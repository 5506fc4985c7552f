package testutils

import (
	"time"

	"github.com/tech-arch1tect/barae/config"
	"golang.org/x/crypto/bcrypt"
)

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "Barae",
			Env:         "test",
			Secret:      "test-secret-key-32-chars-long!!!",
			FrontendURL: "http://localhost:5173",
		},
		Server: config.ServerConfig{
			Port:              "3000",
			Host:              "127.0.0.1",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			BodyLimit:         "64K",
		},
		Log: config.LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		Session: config.SessionConfig{
			Store:       "memory",
			Name:        "barae_session",
			Lifetime:    24 * time.Hour,
			IdleTimeout: time.Hour,
			HttpOnly:    true,
			SameSite:    "lax",
			Path:        "/",
		},
		Auth: config.AuthConfig{
			BasePath:                 "/api/v1/auth",
			PublicPath:               "/v1/auth",
			MinPasswordLength:        8,
			MaxPasswordLength:        128,
			BcryptCost:               bcrypt.MinCost,
			RequireEmailVerification: true,
			SendVerificationOnSignUp: true,
			EmailVerificationExpiry:  24 * time.Hour,
			PasswordResetExpiry:      time.Hour,
			OTPExpiry:                5 * time.Minute,
			OTPLength:                6,
			OTPCooldown:              60 * time.Second,
			TokenBytes:               32,
			TrustedOrigins:           []string{"http://localhost:5173"},
		},
		Mail: config.MailConfig{
			Port:        587,
			Encryption:  "starttls",
			FromAddress: "noreply@barae.app",
			FromName:    "Barae",
			SendRate:    100,
			SendBurst:   100,
			SendTimeout: 5 * time.Second,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:   true,
			Store:     "memory",
			Rate:      10,
			Period:    time.Minute,
			CountMode: config.CountFailures,
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

var TestPasswords = struct {
	Valid    string
	TooShort string
	NoUpper  string
	NoNumber string
	Other    string
}{
	Valid:    "Password123",
	TooShort: "Pass1",
	NoUpper:  "password123",
	NoNumber: "Password",
	Other:    "Another456!",
}

var TestUsers = struct {
	Name  string
	Email string
}{
	Name:  "Test User",
	Email: "test@example.com",
}
