package identity

import (
	"context"
	"errors"
	"net/http"

	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/verification"
	"go.uber.org/zap"
)

const invalidCode = "Invalid or expired code"

// sendCode issues a fresh code and mails it when the account can use it.
// The record is persisted either way so the resend cooldown does not reveal
// whether the account exists.
func (h *Handler) sendCode(ctx context.Context, purpose verification.Purpose, email string) {
	email = auth.NormalizeEmail(email)

	record, err := h.codes.IssueOTP(ctx, purpose, email)
	if err != nil {
		h.logger.Error("failed to issue code", zap.String("purpose", string(purpose)), zap.Error(err))
		return
	}

	user, err := h.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, auth.ErrUserNotFound) {
			h.logger.Error("failed to look up code recipient", zap.Error(err))
		}
		return
	}
	if purpose == verification.PurposeEmailVerification && user.EmailVerified {
		return
	}

	if err := h.mailer.SendOTP(ctx, user.Email, string(purpose), record.Value); err != nil {
		h.logger.Warn("failed to send code", zap.String("purpose", string(purpose)), zap.Error(err))
	}
}

func (h *Handler) sendVerificationOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if !decode(w, r, &req) {
		return
	}

	purpose, _ := verification.ParseOTPPurpose(req.Type)
	h.sendCode(r.Context(), purpose, req.Email)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) checkVerificationOTP(w http.ResponseWriter, r *http.Request) {
	var req checkOTPRequest
	if !decode(w, r, &req) {
		return
	}

	purpose, _ := verification.ParseOTPPurpose(req.Type)
	err := h.codes.CheckOTP(r.Context(), purpose, auth.NormalizeEmail(req.Email), req.OTP)
	if h.codeFailed(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) verifyEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	var user *auth.User
	_, err := h.codes.VerifyOTP(ctx, verification.PurposeEmailVerification, auth.NormalizeEmail(req.Email), req.OTP,
		func(ctx context.Context, record *verification.Record) error {
			var err error
			user, err = h.users.MarkEmailVerified(ctx, req.Email)
			return err
		})
	if h.codeFailed(w, err) {
		return
	}

	token, ok := h.establishSession(w, r, user, true)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "token": token, "user": user})
}

func (h *Handler) signInEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	var user *auth.User
	_, err := h.codes.VerifyOTP(ctx, verification.PurposeSignIn, auth.NormalizeEmail(req.Email), req.OTP,
		func(ctx context.Context, record *verification.Record) error {
			// receiving the code proves ownership of the address
			var err error
			user, err = h.users.MarkEmailVerified(ctx, req.Email)
			return err
		})
	if h.codeFailed(w, err) {
		return
	}

	token, ok := h.establishSession(w, r, user, true)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: &token, User: user})
}

func (h *Handler) forgetPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req forgetPasswordOTPRequest
	if !decode(w, r, &req) {
		return
	}

	h.sendCode(r.Context(), verification.PurposeForgetPassword, req.Email)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) resetPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if !checkPassword(w, h.users, req.Password) {
		return
	}

	ctx := r.Context()
	var userID string
	_, err := h.codes.VerifyOTP(ctx, verification.PurposeForgetPassword, auth.NormalizeEmail(req.Email), req.OTP,
		func(ctx context.Context, record *verification.Record) error {
			user, err := h.users.FindByEmail(ctx, req.Email)
			if err != nil {
				return err
			}
			userID = user.ID
			return h.users.UpdatePassword(ctx, user.ID, req.Password)
		})
	if h.codeFailed(w, err) {
		return
	}

	h.revokeAll(ctx, userID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// codeFailed maps a verification failure to its response. NotFound and
// Expired are reported identically. It returns false when err is nil.
func (h *Handler) codeFailed(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, verification.ErrNotFound),
		errors.Is(err, verification.ErrExpired),
		errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusBadRequest, invalidCode)
	default:
		h.logger.Error("code verification failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to verify code")
	}
	return true
}

// revokeAll signs the user out everywhere after a password reset.
func (h *Handler) revokeAll(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	if err := h.sessions.Tracker().RevokeAllOtherSessions(ctx, userID, ""); err != nil {
		h.logger.Warn("failed to revoke sessions after password reset", zap.String("user_id", userID), zap.Error(err))
	}
}
