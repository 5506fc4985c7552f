package logging

import (
	"context"

	"github.com/tech-arch1tect/barae/config"
	"go.uber.org/fx"
)

func NewLoggingService(cfg *config.Config) (*Service, error) {
	return NewService(ConfigFrom(cfg.Log))
}

func ConfigFrom(cfg config.LogConfig) Config {
	return Config{
		Level:      LogLevel(cfg.Level),
		Format:     cfg.Format,
		OutputPath: cfg.Output,
		MaxSizeMB:  cfg.FileMaxSize,
		MaxBackups: cfg.FileMaxBackups,
		MaxAgeDays: cfg.FileMaxAge,
		Compress:   cfg.FileCompress,
	}
}

// RegisterSync flushes buffered entries when the application stops.
func RegisterSync(lc fx.Lifecycle, logger *Service) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			_ = logger.Sync()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Invoke(RegisterSync),
)
