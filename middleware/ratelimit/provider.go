package ratelimit

import (
	"context"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/verification"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Limiters holds the middleware applied to the auth routes.
type Limiters struct {
	// Attempts counts failed attempts per client on routes that accept a secret.
	Attempts echo.MiddlewareFunc
	// OTP enforces the resend cooldown on the send-code route.
	OTP echo.MiddlewareFunc
	// PasswordResetOTP enforces the same cooldown on the password reset
	// code request.
	PasswordResetOTP echo.MiddlewareFunc
}

type Params struct {
	fx.In

	Lifecycle    fx.Lifecycle
	Config       *config.Config
	Logger       *logging.Service
	Verification *verification.Service
}

func ProvideRateLimitStore(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (Store, error) {
	var (
		store  Store
		closer io.Closer
	)

	switch cfg.RateLimit.Store {
	case "redis":
		client, err := NewRedisClient(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		store, closer = NewRedisStore(client), client
		logger.Info("rate limit store: redis")
	default:
		mem := NewMemoryStore()
		store, closer = mem, mem
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if client, ok := closer.(*redis.Client); ok {
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("redis unreachable, rate limiting will fail open", zap.Error(err))
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return closer.Close()
		},
	})

	return store, nil
}

func ProvideLimiters(p Params, store Store) *Limiters {
	logger := p.Logger.With(zap.String("component", "ratelimit"))

	cooldown := NewCooldown(p.Verification, p.Config.Auth.OTPCooldown, logger)
	limiters := &Limiters{
		OTP:              OTPCooldown(cooldown),
		PasswordResetOTP: PurposeCooldown(cooldown, verification.PurposeForgetPassword),
	}

	if p.Config.RateLimit.Enabled {
		limiters.Attempts = Middleware(&Config{
			Store:        store,
			Rate:         p.Config.RateLimit.Rate,
			Period:       p.Config.RateLimit.Period,
			CountMode:    p.Config.RateLimit.CountMode,
			KeyGenerator: RouteKeyGenerator,
			Logger:       logger,
		})
	} else {
		limiters.Attempts = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return limiters
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
	fx.Provide(ProvideLimiters),
)
