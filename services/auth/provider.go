package auth

import (
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ProvideAuthService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return NewService(&cfg.Auth, db, logger.With(zap.String("component", "auth")))
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
)
