package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/verification"
	"github.com/tech-arch1tect/barae/session"
	"go.uber.org/zap"
)

// ResendVerification mails a fresh verification link to the signed-in user.
func (h *Handler) ResendVerification(c echo.Context) error {
	ctx := c.Request().Context()

	userID := session.GetUserID(c)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
	}

	user, err := h.users.FindByID(ctx, userID)
	if errors.Is(err, auth.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	if err != nil {
		h.logger.Error("failed to load user for verification resend", zap.String("user_id", userID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send verification email"})
	}

	if user.EmailVerified {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email already verified"})
	}

	record, err := h.codes.IssueLink(ctx, verification.PurposeVerifyEmail, user.Email)
	if err != nil {
		h.logger.Error("failed to issue verification token", zap.String("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send verification email"})
	}

	link := strings.TrimSuffix(h.config.App.FrontendURL, "/") + "/verify-email?token=" + url.QueryEscape(record.Value)
	if err := h.mailer.SendVerificationLink(ctx, user.Email, link); err != nil {
		h.logger.Error("failed to send verification email", zap.String("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send verification email"})
	}

	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// VerifyEmail consumes a verification link token and marks the account
// verified.
func (h *Handler) VerifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Verification token is required"})
	}

	_, err := h.codes.VerifyLink(c.Request().Context(), verification.PurposeVerifyEmail, token,
		func(ctx context.Context, record *verification.Record) error {
			_, err := h.users.MarkEmailVerified(ctx, record.Email)
			return err
		})

	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "Email verified successfully"})
	case errors.Is(err, verification.ErrExpired):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Token has expired"})
	case errors.Is(err, verification.ErrNotFound):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid or expired token"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	default:
		h.logger.Error("email verification failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to verify email"})
	}
}
