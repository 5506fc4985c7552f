package identity

import (
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/mail"
	"github.com/tech-arch1tect/barae/services/verification"
	"github.com/tech-arch1tect/barae/session"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideHandler(cfg *config.Config, users *auth.Service, codes *verification.Service, sessions *session.Manager, mailer *mail.Service, logger *logging.Service) *Handler {
	return NewHandler(cfg, users, codes, sessions, mailer, logger.With(zap.String("component", "identity")))
}

var Module = fx.Options(
	fx.Provide(ProvideHandler),
)
