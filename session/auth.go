package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	UserIDKey        = "_user_id"
	AuthenticatedKey = "_authenticated"
)

// Login renews the session token (guarding against fixation), stores the
// user and records the session for listing. It returns the new token.
func (m *Manager) Login(ctx context.Context, userID, ipAddress, userAgent string, rememberMe bool) (string, error) {
	if err := m.RenewToken(ctx); err != nil {
		return "", fmt.Errorf("failed to renew session token: %w", err)
	}

	m.Put(ctx, UserIDKey, userID)
	m.Put(ctx, AuthenticatedKey, true)
	m.RememberMe(ctx, rememberMe)

	// the token is only assigned on commit, so commit now to learn it
	token, expiry, err := m.Commit(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to commit session: %w", err)
	}

	if m.tracker != nil {
		if err := m.tracker.TrackSession(ctx, userID, token, ipAddress, userAgent, expiry); err != nil {
			return "", err
		}
	}
	return token, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	if m.tracker != nil {
		if token := m.Token(ctx); token != "" {
			if err := m.tracker.RemoveSessionByToken(ctx, token); err != nil {
				return err
			}
		}
	}
	return m.Destroy(ctx)
}

func (m *Manager) UserID(ctx context.Context) string {
	return m.GetString(ctx, UserIDKey)
}

func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.GetBool(ctx, AuthenticatedKey) && m.UserID(ctx) != ""
}

func GetUserID(c echo.Context) string {
	manager := GetManager(c)
	if manager == nil {
		return ""
	}
	return manager.UserID(c.Request().Context())
}

func IsAuthenticated(c echo.Context) bool {
	manager := GetManager(c)
	if manager == nil {
		return false
	}
	return manager.IsAuthenticated(c.Request().Context())
}

func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !IsAuthenticated(c) {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
			}
			return next(c)
		}
	}
}
