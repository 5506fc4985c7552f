package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/verification"
	"github.com/tech-arch1tect/barae/session"
)

// Mailer delivers account mail. Implementations must not block on delivery.
type Mailer interface {
	SendVerificationLink(ctx context.Context, email, link string) error
	SendPasswordResetLink(ctx context.Context, email, link string) error
	SendOTP(ctx context.Context, email, purpose, code string) error
}

// Handler is the identity HTTP handler: email/password accounts, email OTP
// flows, password reset and session management, served under the auth base
// path.
type Handler struct {
	config   *config.Config
	users    *auth.Service
	codes    *verification.Service
	sessions *session.Manager
	mailer   Mailer
	logger   *logging.Service

	router http.Handler
}

func NewHandler(cfg *config.Config, users *auth.Service, codes *verification.Service, sessions *session.Manager, mailer Mailer, logger *logging.Service) *Handler {
	h := &Handler{
		config:   cfg,
		users:    users,
		codes:    codes,
		sessions: sessions,
		mailer:   mailer,
		logger:   logger,
	}
	h.router = sessions.LoadAndSave(h.routes())
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(h.checkOrigin)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route(strings.TrimSuffix(h.config.Auth.BasePath, "/"), func(r chi.Router) {
		r.Get("/ok", h.ok)

		r.Post("/sign-up/email", h.signUpEmail)
		r.Post("/sign-in/email", h.signInEmail)
		r.Post("/sign-out", h.signOut)
		r.Get("/get-session", h.getSession)

		r.Route("/email-otp", func(r chi.Router) {
			r.Post("/send-verification-otp", h.sendVerificationOTP)
			r.Post("/check-verification-otp", h.checkVerificationOTP)
			r.Post("/verify-email", h.verifyEmailOTP)
			r.Post("/reset-password", h.resetPasswordOTP)
			r.Post("/request-password-reset", h.forgetPasswordOTP)
		})
		r.Post("/sign-in/email-otp", h.signInEmailOTP)
		// older clients use this path for the OTP password reset request
		r.Post("/forget-password/email-otp", h.forgetPasswordOTP)

		r.Post("/request-password-reset", h.requestPasswordReset)
		r.Post("/reset-password", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Post("/change-password", h.changePassword)
			r.Get("/list-sessions", h.listSessions)
			r.Post("/revoke-session", h.revokeSession)
			r.Post("/revoke-other-sessions", h.revokeOtherSessions)
			r.Post("/update-user", h.updateUser)
			r.Post("/delete-user", h.deleteUser)
		})
	})

	return r
}

func (h *Handler) ok(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// checkOrigin rejects state-changing requests sent from an untrusted origin.
// Requests without an Origin header (server-to-server, curl) pass.
func (h *Handler) checkOrigin(next http.Handler) http.Handler {
	trusted := make(map[string]bool, len(h.config.Auth.TrustedOrigins))
	for _, origin := range h.config.Auth.TrustedOrigins {
		trusted[strings.TrimSuffix(origin, "/")] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin != "" && !trusted[strings.TrimSuffix(origin, "/")] {
			writeError(w, http.StatusForbidden, "Invalid origin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.sessions.IsAuthenticated(r.Context()) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) isTrustedURL(raw string) bool {
	for _, origin := range append([]string{h.config.App.FrontendURL}, h.config.Auth.TrustedOrigins...) {
		origin = strings.TrimSuffix(origin, "/")
		if origin != "" && (raw == origin || strings.HasPrefix(raw, origin+"/")) {
			return true
		}
	}
	return false
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
