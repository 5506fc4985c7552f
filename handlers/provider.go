package handlers

import (
	"github.com/tech-arch1tect/barae/authproxy"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/middleware/ratelimit"
	"github.com/tech-arch1tect/barae/openapi"
	"github.com/tech-arch1tect/barae/server"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/mail"
	"github.com/tech-arch1tect/barae/services/verification"
	"github.com/tech-arch1tect/barae/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ProvideHandler(cfg *config.Config, db *gorm.DB, users *auth.Service, codes *verification.Service, mailer *mail.Service, docs *openapi.Document, logger *logging.Service) *Handler {
	return New(cfg, db, users, codes, mailer, docs, logger.With(zap.String("component", "handlers")))
}

func registerRoutes(srv *server.Server, h *Handler, sessions *session.Manager, proxy *authproxy.Proxy, limiters *ratelimit.Limiters) {
	h.Register(srv, sessions, proxy, limiters)
}

var Module = fx.Options(
	fx.Provide(openapi.Build),
	fx.Provide(ProvideHandler),
	fx.Invoke(registerRoutes),
)
