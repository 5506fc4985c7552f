package identity

import (
	"errors"
	"net/http"

	"github.com/tech-arch1tect/barae/services/auth"
	"go.uber.org/zap"
)

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	user, err := h.users.UpdateName(ctx, h.sessions.UserID(ctx), req.Name)
	if errors.Is(err, auth.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		h.logger.Error("failed to update user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "user": user})
}

// deleteUser removes the signed-in account after re-checking its password and
// signs every session of it out.
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
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
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	if err := h.users.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid password")
		return
	}

	// drop the stored session data first; the tracked rows go with the user
	if err := h.sessions.Tracker().RevokeAllOtherSessions(ctx, user.ID, ""); err != nil {
		h.logger.Warn("failed to revoke sessions before account deletion", zap.String("user_id", user.ID), zap.Error(err))
	}

	if err := h.users.DeleteUser(ctx, user.ID); err != nil {
		h.logger.Error("failed to delete user", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	if err := h.sessions.Destroy(ctx); err != nil {
		h.logger.Warn("failed to destroy session after account deletion", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
