package identity

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/verification"
	"go.uber.org/zap"
)

const invalidToken = "Invalid or expired token"

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req requestPasswordResetRequest
	if !decode(w, r, &req) {
		return
	}

	redirect := strings.TrimSuffix(h.config.App.FrontendURL, "/") + "/reset-password"
	if req.RedirectTo != "" {
		if !h.isTrustedURL(req.RedirectTo) {
			writeError(w, http.StatusForbidden, "Invalid redirectTo")
			return
		}
		redirect = req.RedirectTo
	}

	ctx := r.Context()
	user, err := h.users.FindByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		// same answer as for a real account
	case err != nil:
		h.logger.Error("failed to look up password reset recipient", zap.Error(err))
	default:
		h.sendResetLink(ctx, user, redirect)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "If this email exists in our system, check your email for the reset link",
	})
}

func (h *Handler) sendResetLink(ctx context.Context, user *auth.User, redirect string) {
	record, err := h.codes.IssueLink(ctx, verification.PurposeResetPassword, user.Email)
	if err != nil {
		h.logger.Error("failed to issue password reset token", zap.String("user_id", user.ID), zap.Error(err))
		return
	}

	link, err := url.Parse(redirect)
	if err != nil {
		h.logger.Error("invalid password reset redirect", zap.Error(err))
		return
	}
	q := link.Query()
	q.Set("token", record.Value)
	link.RawQuery = q.Encode()

	if err := h.mailer.SendPasswordResetLink(ctx, user.Email, link.String()); err != nil {
		h.logger.Warn("failed to send password reset link", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if !checkPassword(w, h.users, req.NewPassword) {
		return
	}

	ctx := r.Context()
	var userID string
	_, err := h.codes.VerifyLink(ctx, verification.PurposeResetPassword, req.Token,
		func(ctx context.Context, record *verification.Record) error {
			user, err := h.users.FindByEmail(ctx, record.Email)
			if err != nil {
				return err
			}
			userID = user.ID
			return h.users.UpdatePassword(ctx, user.ID, req.NewPassword)
		})
	switch {
	case err == nil:
	case errors.Is(err, verification.ErrNotFound),
		errors.Is(err, verification.ErrExpired),
		errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusBadRequest, invalidToken)
		return
	default:
		h.logger.Error("password reset failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	h.revokeAll(ctx, userID)
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	user, err := h.users.FindByID(ctx, h.sessions.UserID(ctx))
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}

	if err := h.users.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid password")
		return
	}
	if !checkPassword(w, h.users, req.NewPassword) {
		return
	}

	if err := h.users.UpdatePassword(ctx, user.ID, req.NewPassword); err != nil {
		h.logger.Error("failed to change password", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to change password")
		return
	}

	token := h.sessions.Token(ctx)
	if req.RevokeOtherSessions {
		if err := h.sessions.Tracker().RevokeAllOtherSessions(ctx, user.ID, token); err != nil {
			h.logger.Warn("failed to revoke other sessions", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, authResponse{Token: &token, User: user})
}
