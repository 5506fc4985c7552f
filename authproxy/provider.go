package authproxy

import (
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/identity"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideProxy(cfg *config.Config, handler *identity.Handler, logger *logging.Service) *Proxy {
	return New(handler, cfg.Auth.PublicPath, cfg.Auth.BasePath, logger.With(zap.String("component", "authproxy")))
}

var Module = fx.Options(
	fx.Provide(ProvideProxy),
)
