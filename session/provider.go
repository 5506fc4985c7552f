package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager is the scs session manager shared by the identity handler and the
// echo routes, plus the tracker that backs session listing.
type Manager struct {
	*scs.SessionManager
	config  config.SessionConfig
	tracker SessionService
}

func ProvideSessionStore(cfg *config.Config, db *gorm.DB) (scs.Store, error) {
	switch cfg.Session.Store {
	case "memory":
		return NewMemoryStore(), nil
	case "database":
		store, err := NewDatabaseStore(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create database session store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}
}

func ProvideSessionService(db *gorm.DB, store scs.Store, logger *logging.Service) SessionService {
	return NewSessionService(db, store, logger.With(zap.String("component", "session")))
}

func ProvideSessionManager(cfg *config.Config, store scs.Store, tracker SessionService) *Manager {
	return NewManager(cfg.Session, store, tracker)
}

func NewManager(cfg config.SessionConfig, store scs.Store, tracker SessionService) *Manager {
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = cfg.Lifetime
	sessionManager.IdleTimeout = cfg.IdleTimeout
	sessionManager.Cookie.Name = cfg.Name
	sessionManager.Cookie.Path = cfg.Path
	sessionManager.Cookie.Domain = cfg.Domain
	sessionManager.Cookie.Secure = cfg.Secure
	sessionManager.Cookie.HttpOnly = cfg.HttpOnly
	// session cookies by default; Login opts in to persistence for "remember me"
	sessionManager.Cookie.Persist = false

	switch cfg.SameSite {
	case "strict":
		sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	case "none":
		sessionManager.Cookie.SameSite = http.SameSiteNoneMode
	default:
		sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	}

	return &Manager{
		SessionManager: sessionManager,
		config:         cfg,
		tracker:        tracker,
	}
}

func (m *Manager) Tracker() SessionService {
	return m.tracker
}

func registerCleanup(lc fx.Lifecycle, tracker SessionService, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			removed, err := tracker.CleanupExpiredSessions(ctx)
			if err != nil {
				logger.Warn("failed to clean up expired sessions", zap.Error(err))
				return nil
			}
			if removed > 0 {
				logger.Info("expired sessions removed", zap.Int64("count", removed))
			}
			return nil
		},
	})
}

var Module = fx.Module("session",
	fx.Provide(ProvideSessionStore),
	fx.Provide(ProvideSessionService),
	fx.Provide(ProvideSessionManager),
	fx.Invoke(registerCleanup),
)
