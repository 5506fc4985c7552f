package identity

import (
	"errors"
	"net/http"

	"github.com/tech-arch1tect/barae/session"
	"go.uber.org/zap"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.sessions.Tracker().GetUserSessions(ctx, h.sessions.UserID(ctx), h.sessions.Token(ctx))
	if err != nil {
		h.logger.Error("failed to list sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []session.UserSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	var req revokeSessionRequest
	if !decode(w, r, &req) {
		return
	}

	ctx := r.Context()
	err := h.sessions.Tracker().RevokeSession(ctx, h.sessions.UserID(ctx), req.ID)
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to revoke session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to revoke session")
		return
	}

	// revoking the current session must also stop this request from
	// committing it back to the store
	if _, err := h.sessions.Tracker().GetSession(ctx, h.sessions.Token(ctx)); errors.Is(err, session.ErrSessionNotFound) {
		if err := h.sessions.Destroy(ctx); err != nil {
			h.logger.Warn("failed to destroy revoked session", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (h *Handler) revokeOtherSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.Tracker().RevokeAllOtherSessions(ctx, h.sessions.UserID(ctx), h.sessions.Token(ctx)); err != nil {
		h.logger.Error("failed to revoke other sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to revoke sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}
