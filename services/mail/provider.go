package mail

import (
	"context"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func ProvideSender(cfg *config.Config, logger *logging.Service) (Sender, error) {
	return NewSender(&cfg.Mail, logger.With(zap.String("component", "mail")))
}

func ProvideDispatcher(lc fx.Lifecycle, cfg *config.Config, sender Sender, logger *logging.Service) *Dispatcher {
	d := NewDispatcher(sender, cfg.Mail.SendRate, cfg.Mail.SendBurst, cfg.Mail.SendTimeout,
		logger.With(zap.String("component", "mail")))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return d.Close(ctx)
		},
	})
	return d
}

func ProvideMailService(cfg *config.Config, dispatcher *Dispatcher, logger *logging.Service) (*Service, error) {
	return NewService(cfg, dispatcher, logger.With(zap.String("component", "mail")))
}

var Module = fx.Options(
	fx.Provide(ProvideSender),
	fx.Provide(ProvideDispatcher),
	fx.Provide(ProvideMailService),
)
