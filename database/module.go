package database

import (
	"context"

	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabase),
	fx.Invoke(registerClose),
)

func registerClose(lc fx.Lifecycle, db *gorm.DB, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing database connection")
			return Close(db)
		},
	})
}
