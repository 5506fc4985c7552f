package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/barae/authproxy"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/database"
	"github.com/tech-arch1tect/barae/middleware/ratelimit"
	"github.com/tech-arch1tect/barae/openapi"
	"github.com/tech-arch1tect/barae/server"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/identity"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/verification"
	"github.com/tech-arch1tect/barae/session"
	"github.com/tech-arch1tect/barae/testutils"
	"gorm.io/gorm"
)

type testEnv struct {
	cfg    *config.Config
	db     *gorm.DB
	users  *auth.Service
	codes  *verification.Service
	clock  *testutils.Clock
	mailer *testutils.MockMailer
	echo   *echo.Echo
}

func setup(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testutils.GetTestConfig()
	for _, fn := range configure {
		fn(cfg)
	}

	db := testutils.SetupTestDB(t, &auth.User{}, &verification.Record{}, &session.UserSession{})
	logger := logging.NewNop()
	clock := testutils.NewClock(time.Now())

	users := auth.NewService(&cfg.Auth, db, logger)
	codes := verification.NewService(verification.NewGormStore(db), &cfg.Auth, logger)
	codes.SetClock(clock.Now)

	store := memstore.New()
	manager := session.NewManager(cfg.Session, store, session.NewSessionService(db, store, logger))

	mailer := &testutils.MockMailer{}
	mailer.On("SendOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	proxy := authproxy.New(identity.NewHandler(cfg, users, codes, manager, mailer, logger),
		cfg.Auth.PublicPath, cfg.Auth.BasePath, logger)

	cooldown := ratelimit.NewCooldown(codes, cfg.Auth.OTPCooldown, logger)
	cooldown.SetClock(clock.Now)
	limiters := &ratelimit.Limiters{
		Attempts: ratelimit.Middleware(&ratelimit.Config{
			Rate:         3,
			Period:       time.Minute,
			CountMode:    config.CountFailures,
			KeyGenerator: ratelimit.RouteKeyGenerator,
			Logger:       logger,
		}),
		OTP:              ratelimit.OTPCooldown(cooldown),
		PasswordResetOTP: ratelimit.PurposeCooldown(cooldown, verification.PurposeForgetPassword),
	}

	srv := server.New(cfg, logger)
	New(cfg, db, users, codes, mailer, openapi.Build(cfg), logger).Register(srv, manager, proxy, limiters)

	return &testEnv{
		cfg:    cfg,
		db:     db,
		users:  users,
		codes:  codes,
		clock:  clock,
		mailer: mailer,
		echo:   srv.Echo(),
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == env.cfg.Session.Name {
			return cookie
		}
	}
	t.Fatalf("no session cookie in response: %v", rec.Header())
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func withoutRequiredVerification(cfg *config.Config) {
	cfg.Auth.RequireEmailVerification = false
}

func TestResendVerification(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		env := setup(t)

		rec := env.do(t, http.MethodPost, "/v1/auth/resend-verification", nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Not authenticated", decode(t, rec)["error"])
	})

	t.Run("sends a link that verifies the account", func(t *testing.T) {
		env := setup(t, withoutRequiredVerification)

		var link string
		env.mailer.On("SendVerificationLink", mock.Anything, testutils.TestUsers.Email, mock.Anything).
			Run(func(args mock.Arguments) { link = args.String(2) }).
			Return(nil).Once()

		rec := env.do(t, http.MethodPost, "/v1/auth/sign-up/email", map[string]string{
			"name":     testutils.TestUsers.Name,
			"email":    testutils.TestUsers.Email,
			"password": testutils.TestPasswords.Valid,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		cookie := env.sessionCookie(t, rec)

		rec = env.do(t, http.MethodPost, "/v1/auth/resend-verification", nil, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, true, decode(t, rec)["success"])
		env.mailer.AssertExpectations(t)

		parsed, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, "/verify-email", parsed.Path)
		token := parsed.Query().Get("token")
		require.NotEmpty(t, token)

		rec = env.do(t, http.MethodGet, "/v1/auth/verify-email?token="+url.QueryEscape(token), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Email verified successfully", decode(t, rec)["message"])

		user, err := env.users.FindByEmail(t.Context(), testutils.TestUsers.Email)
		require.NoError(t, err)
		assert.True(t, user.EmailVerified)

		rec = env.do(t, http.MethodPost, "/v1/auth/resend-verification", nil, cookie)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email already verified", decode(t, rec)["error"])
	})

	t.Run("mail failure", func(t *testing.T) {
		env := setup(t, withoutRequiredVerification)
		env.mailer.On("SendVerificationLink", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down")).Once()

		rec := env.do(t, http.MethodPost, "/v1/auth/sign-up/email", map[string]string{
			"name":     testutils.TestUsers.Name,
			"email":    testutils.TestUsers.Email,
			"password": testutils.TestPasswords.Valid,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/v1/auth/resend-verification", nil, env.sessionCookie(t, rec))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to send verification email", decode(t, rec)["error"])
	})
}

func TestVerifyEmail(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		env := setup(t)

		rec := env.do(t, http.MethodGet, "/v1/auth/verify-email", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Verification token is required", decode(t, rec)["error"])
	})

	t.Run("unknown token", func(t *testing.T) {
		env := setup(t)

		rec := env.do(t, http.MethodGet, "/v1/auth/verify-email?token=nope", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid or expired token", decode(t, rec)["error"])
	})

	t.Run("expired token", func(t *testing.T) {
		env := setup(t)
		_, err := env.users.CreateUser(t.Context(), testutils.TestUsers.Name, testutils.TestUsers.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		record, err := env.codes.IssueLink(t.Context(), verification.PurposeVerifyEmail, testutils.TestUsers.Email)
		require.NoError(t, err)
		env.clock.Advance(24*time.Hour + time.Second)

		rec := env.do(t, http.MethodGet, "/v1/auth/verify-email?token="+url.QueryEscape(record.Value), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Token has expired", decode(t, rec)["error"])
	})

	t.Run("replayed token", func(t *testing.T) {
		env := setup(t)
		_, err := env.users.CreateUser(t.Context(), testutils.TestUsers.Name, testutils.TestUsers.Email, testutils.TestPasswords.Valid)
		require.NoError(t, err)

		record, err := env.codes.IssueLink(t.Context(), verification.PurposeVerifyEmail, testutils.TestUsers.Email)
		require.NoError(t, err)
		path := "/v1/auth/verify-email?token=" + url.QueryEscape(record.Value)

		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, nil).Code)

		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid or expired token", decode(t, rec)["error"])
	})

	t.Run("account removed", func(t *testing.T) {
		env := setup(t)

		record, err := env.codes.IssueLink(t.Context(), verification.PurposeVerifyEmail, "ghost@example.com")
		require.NoError(t, err)

		rec := env.do(t, http.MethodGet, "/v1/auth/verify-email?token="+url.QueryEscape(record.Value), nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "User not found", decode(t, rec)["error"])
	})

	t.Run("address that starts like an OTP key", func(t *testing.T) {
		env := setup(t)
		lookalike := "sign-in-otp-bob@example.com"
		for _, email := range []string{lookalike, "bob@example.com"} {
			_, err := env.users.CreateUser(t.Context(), testutils.TestUsers.Name, email, testutils.TestPasswords.Valid)
			require.NoError(t, err)
		}

		link, err := env.codes.IssueLink(t.Context(), verification.PurposeVerifyEmail, lookalike)
		require.NoError(t, err)

		rec := env.do(t, http.MethodPost, "/v1/auth/email-otp/send-verification-otp",
			map[string]string{"email": "bob@example.com", "type": "sign-in"})
		require.Equal(t, http.StatusOK, rec.Code, "the link record does not occupy bob's sign-in slot")

		rec = env.do(t, http.MethodGet, "/v1/auth/verify-email?token="+url.QueryEscape(link.Value), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		verified, err := env.users.FindByEmail(t.Context(), lookalike)
		require.NoError(t, err)
		assert.True(t, verified.EmailVerified)

		bob, err := env.users.FindByEmail(t.Context(), "bob@example.com")
		require.NoError(t, err)
		assert.False(t, bob.EmailVerified)
	})
}

func TestSendVerificationOTP_Cooldown(t *testing.T) {
	env := setup(t)
	_, err := env.users.CreateUser(t.Context(), testutils.TestUsers.Name, testutils.TestUsers.Email, testutils.TestPasswords.Valid)
	require.NoError(t, err)

	payload := map[string]string{"email": testutils.TestUsers.Email, "type": "email-verification"}
	send := func() *httptest.ResponseRecorder {
		return env.do(t, http.MethodPost, "/v1/auth/email-otp/send-verification-otp", payload)
	}

	identifier := verification.Identifier(verification.PurposeEmailVerification, testutils.TestUsers.Email)
	records := func() []verification.Record {
		var found []verification.Record
		require.NoError(t, env.db.Where("purpose = ? AND identifier = ?", verification.PurposeEmailVerification, identifier).
			Find(&found).Error)
		return found
	}

	require.Equal(t, http.StatusOK, send().Code)
	first := records()
	require.Len(t, first, 1)

	env.clock.Advance(30 * time.Second)
	rec := send()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.EqualValues(t, 30, decode(t, rec)["retryAfter"])
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, first[0].ID, records()[0].ID, "a rejected request leaves the record alone")

	env.clock.Advance(31 * time.Second)
	assert.Equal(t, http.StatusOK, send().Code)

	second := records()
	require.Len(t, second, 1, "the new code replaces the old one")
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.True(t, second[0].UpdatedAt.After(first[0].UpdatedAt))
	assert.WithinDuration(t, env.clock.Now(), second[0].UpdatedAt, time.Second)

	t.Run("other purposes are independent", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/email-otp/send-verification-otp",
			map[string]string{"email": testutils.TestUsers.Email, "type": "sign-in"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPasswordResetOTP_Cooldown(t *testing.T) {
	env := setup(t)
	payload := map[string]string{"email": testutils.TestUsers.Email}

	rec := env.do(t, http.MethodPost, "/v1/auth/email-otp/request-password-reset", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.clock.Advance(20 * time.Second)
	for _, path := range []string{"/v1/auth/email-otp/request-password-reset", "/v1/auth/forget-password/email-otp"} {
		rec := env.do(t, http.MethodPost, path, payload)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, path)
		assert.Equal(t, "40", rec.Header().Get("Retry-After"), path)
	}

	env.clock.Advance(41 * time.Second)
	rec = env.do(t, http.MethodPost, "/v1/auth/forget-password/email-otp", payload)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttemptLimit(t *testing.T) {
	env := setup(t)
	creds := map[string]string{"email": "nobody@example.com", "password": testutils.TestPasswords.Valid}

	for range 3 {
		rec := env.do(t, http.MethodPost, "/v1/auth/sign-in/email", creds)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/v1/auth/sign-in/email", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestProxyPassthrough(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodGet, "/v1/auth/ok", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/auth/get-session", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))

	t.Run("oversized body never reaches the identity handler", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/auth/sign-up/email", map[string]string{
			"name":     strings.Repeat("n", 70*1024),
			"email":    "big@example.com",
			"password": testutils.TestPasswords.Valid,
		})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

		_, err := env.users.FindByEmail(t.Context(), "big@example.com")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})
}

func TestHealth(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok", "database": "connected"}, decode(t, rec))

	require.NoError(t, database.Close(env.db))

	rec = env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]any{"status": "error", "database": "disconnected"}, decode(t, rec))
}

func TestOpenAPIDocument(t *testing.T) {
	env := setup(t)

	rec := env.do(t, http.MethodGet, "/v1/openapi.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode(t, rec)
	assert.Contains(t, doc["paths"], "/v1/auth/verify-email")

	rec = env.do(t, http.MethodGet, "/v1/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "openapi:")
}
