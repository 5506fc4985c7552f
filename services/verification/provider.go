package verification

import (
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func ProvideVerificationService(cfg *config.Config, db *gorm.DB, logger *logging.Service) *Service {
	return NewService(NewGormStore(db), &cfg.Auth, logger.With(zap.String("component", "verification")))
}

var Module = fx.Options(
	fx.Provide(ProvideVerificationService),
)
