package handlers

import (
	"strings"

	"github.com/tech-arch1tect/barae/authproxy"
	"github.com/tech-arch1tect/barae/middleware/ratelimit"
	"github.com/tech-arch1tect/barae/server"
	"github.com/tech-arch1tect/barae/session"
)

// secretRoutes accept a password, code or token; failed attempts count
// against the per-client limit.
var secretRoutes = []string{
	"/sign-in/email",
	"/sign-in/email-otp",
	"/email-otp/check-verification-otp",
	"/email-otp/verify-email",
	"/email-otp/reset-password",
	"/reset-password",
	"/change-password",
	"/delete-user",
}

var passwordResetOTPRoutes = []string{
	"/email-otp/request-password-reset",
	"/forget-password/email-otp",
}

// Register mounts every route. Anything under the public auth prefix that
// is not handled here is proxied to the identity handler.
func (h *Handler) Register(srv *server.Server, sessions *session.Manager, proxy *authproxy.Proxy, limiters *ratelimit.Limiters) {
	srv.Get("/health", h.Health)
	srv.Get("/v1/openapi.json", h.OpenAPIJSON)
	srv.Get("/v1/openapi.yaml", h.OpenAPIYAML)

	auth := srv.Group(strings.TrimSuffix(h.config.Auth.PublicPath, "/"))

	auth.POST("/resend-verification", h.ResendVerification,
		session.Middleware(sessions), session.RequireAuth(), session.TouchMiddleware(h.logger))
	auth.GET("/verify-email", h.VerifyEmail, limiters.Attempts)

	auth.POST("/email-otp/send-verification-otp", proxy.Handle, limiters.OTP)
	for _, path := range passwordResetOTPRoutes {
		auth.POST(path, proxy.Handle, limiters.PasswordResetOTP)
	}
	for _, path := range secretRoutes {
		auth.POST(path, proxy.Handle, limiters.Attempts)
	}
	auth.Any("", proxy.Handle)
	auth.Any("/*", proxy.Handle)
}
