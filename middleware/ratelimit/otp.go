package ratelimit

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/barae/services/verification"
	"go.uber.org/zap"
)

type otpRequest struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// OTPCooldown guards a send-code route that names the purpose in its "type"
// field. Requests without a usable email and type pass through untouched and
// so does everything when the history cannot be read.
func OTPCooldown(cooldown *Cooldown) echo.MiddlewareFunc {
	return cooldownMiddleware(cooldown, func(payload otpRequest) (verification.Purpose, bool) {
		if payload.Type == "" {
			return "", false
		}
		return verification.ParseOTPPurpose(payload.Type)
	})
}

// PurposeCooldown guards a send-code route that always issues codes of one
// purpose, such as the password reset request.
func PurposeCooldown(cooldown *Cooldown, purpose verification.Purpose) echo.MiddlewareFunc {
	return cooldownMiddleware(cooldown, func(otpRequest) (verification.Purpose, bool) {
		return purpose, true
	})
}

func cooldownMiddleware(cooldown *Cooldown, resolve func(otpRequest) (verification.Purpose, bool)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil {
				return next(c)
			}

			body, err := io.ReadAll(req.Body)
			_ = req.Body.Close()
			req.Body = io.NopCloser(bytes.NewReader(body))
			if err != nil {
				return next(c)
			}

			var payload otpRequest
			if err := json.Unmarshal(body, &payload); err != nil || payload.Email == "" {
				return next(c)
			}

			purpose, ok := resolve(payload)
			if !ok {
				return next(c)
			}

			decision, err := cooldown.CheckAndReject(req.Context(), purpose, payload.Email)
			if err != nil {
				cooldown.logger.Warn("otp cooldown check failed, allowing request", zap.Error(err))
				return next(c)
			}
			if decision.Allowed {
				return next(c)
			}

			c.Response().Header().Set("Retry-After", strconv.Itoa(decision.RetryAfter))
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"message":    "Please wait before requesting a new code",
				"retryAfter": decision.RetryAfter,
			})
		}
	}
}
