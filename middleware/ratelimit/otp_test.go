package ratelimit

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/verification"
)

func newOTPServer(t *testing.T, cooldown *Cooldown) (*echo.Echo, *[]string) {
	t.Helper()

	var seen []string
	e := echo.New()
	e.POST("/send", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		require.NoError(t, err)
		seen = append(seen, string(body))
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}, OTPCooldown(cooldown))

	return e, &seen
}

func postJSON(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestOTPCooldown(t *testing.T) {
	body := `{"email":"a@x.com","type":"email-verification"}`

	t.Run("rejects inside the window", func(t *testing.T) {
		history := &fakeHistory{issued: map[string]time.Time{"email-verification-otp-a@x.com": testStart}}
		cooldown := NewCooldown(history, time.Minute, logging.NewNop())
		cooldown.SetClock(func() time.Time { return testStart.Add(30 * time.Second) })
		e, seen := newOTPServer(t, cooldown)

		rec := postJSON(e, body)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, float64(30), resp["retryAfter"])
		assert.NotEmpty(t, resp["message"])
		assert.Empty(t, *seen)
	})

	t.Run("passes after the window with the body intact", func(t *testing.T) {
		history := &fakeHistory{issued: map[string]time.Time{"email-verification-otp-a@x.com": testStart}}
		cooldown := NewCooldown(history, time.Minute, logging.NewNop())
		cooldown.SetClock(func() time.Time { return testStart.Add(61 * time.Second) })
		e, seen := newOTPServer(t, cooldown)

		rec := postJSON(e, body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{body}, *seen)
	})

	t.Run("skips requests missing fields", func(t *testing.T) {
		history := &fakeHistory{issued: map[string]time.Time{"email-verification-otp-a@x.com": testStart}}
		cooldown := NewCooldown(history, time.Minute, logging.NewNop())
		cooldown.SetClock(func() time.Time { return testStart })
		e, seen := newOTPServer(t, cooldown)

		for _, b := range []string{`{"email":"a@x.com"}`, `{"type":"email-verification"}`, `not json`, `{"email":"a@x.com","type":"bogus"}`} {
			rec := postJSON(e, b)
			assert.Equal(t, http.StatusOK, rec.Code, b)
		}
		assert.Len(t, *seen, 4)
	})

	t.Run("fails open when history is unavailable", func(t *testing.T) {
		cooldown := NewCooldown(&fakeHistory{err: errors.New("db down")}, time.Minute, logging.NewNop())
		e, _ := newOTPServer(t, cooldown)

		rec := postJSON(e, body)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPurposeCooldown(t *testing.T) {
	history := &fakeHistory{issued: map[string]time.Time{"forget-password-otp-a@x.com": testStart}}
	cooldown := NewCooldown(history, time.Minute, logging.NewNop())
	cooldown.SetClock(func() time.Time { return testStart.Add(15 * time.Second) })

	e := echo.New()
	e.POST("/send", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}, PurposeCooldown(cooldown, verification.PurposeForgetPassword))

	rec := postJSON(e, `{"email":"A@x.com"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "45", rec.Header().Get("Retry-After"))

	rec = postJSON(e, `{"email":"b@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}
