package identity

import (
	"errors"
	"net/http"

	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/verification"
	"github.com/tech-arch1tect/barae/session"
	"go.uber.org/zap"
)

type authResponse struct {
	Redirect bool       `json:"redirect"`
	Token    *string    `json:"token"`
	User     *auth.User `json:"user"`
}

type sessionResponse struct {
	Session *session.UserSession `json:"session"`
	User    *auth.User           `json:"user"`
}

func (h *Handler) signUpEmail(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decode(w, r, &req) {
		return
	}
	if !checkPassword(w, h.users, req.Password) {
		return
	}

	ctx := r.Context()
	user, err := h.users.CreateUser(ctx, req.Name, req.Email, req.Password)
	if errors.Is(err, auth.ErrEmailTaken) {
		writeError(w, http.StatusUnprocessableEntity, "User already exists. Use another email.")
		return
	}
	if err != nil {
		h.logger.Error("sign-up failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if h.config.Auth.SendVerificationOnSignUp {
		h.sendCode(ctx, verification.PurposeEmailVerification, user.Email)
	}

	if h.config.Auth.RequireEmailVerification {
		writeJSON(w, http.StatusOK, authResponse{User: user})
		return
	}

	token, ok := h.establishSession(w, r, user, rememberMe(req.RememberMe))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: &token, User: user})
}

func (h *Handler) signInEmail(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		h.logger.Error("sign-in failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	if h.config.Auth.RequireEmailVerification && !user.EmailVerified {
		writeError(w, http.StatusForbidden, "Email not verified")
		return
	}

	token, ok := h.establishSession(w, r, user, rememberMe(req.RememberMe))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: &token, User: user})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.logger.Error("sign-out failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.sessions.IsAuthenticated(ctx) {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	user, err := h.users.FindByID(ctx, h.sessions.UserID(ctx))
	if errors.Is(err, auth.ErrUserNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to load session user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	tracked, err := h.sessions.Tracker().GetSession(ctx, h.sessions.Token(ctx))
	if errors.Is(err, session.ErrSessionNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to load tracked session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}
	tracked.Current = true

	writeJSON(w, http.StatusOK, sessionResponse{Session: tracked, User: user})
}

// establishSession signs the user in on this request. On failure it writes
// the 500 response and returns false.
func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, user *auth.User, remember bool) (string, bool) {
	token, err := h.sessions.Login(r.Context(), user.ID, clientIP(r), r.UserAgent(), remember)
	if err != nil {
		h.logger.Error("failed to create session", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return "", false
	}
	return token, true
}

func rememberMe(v *bool) bool {
	return v == nil || *v
}
