package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context, resetTime time.Time) error
	Logger         *logging.Service
}

// Middleware is a fixed-window limiter. In failures mode only responses with
// status >= 400 are counted, in success mode only the others.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}
	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}
	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.KeyGenerator(c)
			resetTime := time.Now().Add(cfg.Period)

			count, existingReset, exists, err := cfg.Store.Get(ctx, key)
			if err != nil {
				cfg.Logger.Warn("rate limit store unavailable, allowing request", zap.Error(err))
				return next(c)
			}
			if exists {
				resetTime = existingReset
			}

			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				return cfg.OnLimitReached(c, resetTime)
			}

			if cfg.CountMode == config.CountAll {
				newCount, err := cfg.Store.Increment(ctx, key, resetTime)
				if err != nil {
					cfg.Logger.Warn("rate limit store unavailable, allowing request", zap.Error(err))
					return next(c)
				}
				setHeaders(c, cfg.Rate, cfg.Rate-newCount, resetTime)
				return next(c)
			}

			setHeaders(c, cfg.Rate, cfg.Rate-count, resetTime)
			err = next(c)

			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			counted := (cfg.CountMode == config.CountFailures && status >= http.StatusBadRequest) ||
				(cfg.CountMode == config.CountSuccess && status < http.StatusBadRequest)
			if counted {
				if _, incErr := cfg.Store.Increment(ctx, key, resetTime); incErr != nil {
					cfg.Logger.Warn("failed to record rate limited attempt", zap.Error(incErr))
				}
			}

			return err
		}
	}
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()
	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}
	return "rate_limit:" + realIP
}

// RouteKeyGenerator scopes the counter to client and route.
func RouteKeyGenerator(c echo.Context) string {
	return DefaultKeyGenerator(c) + ":" + c.Request().Method + ":" + c.Path()
}

func DefaultOnLimitReached(c echo.Context, resetTime time.Time) error {
	retryAfter := int(time.Until(resetTime).Seconds()) + 1
	c.Response().Header().Set("Retry-After", strconv.Itoa(max(retryAfter, 1)))
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"message":    "Too many attempts. Please try again later.",
		"retryAfter": max(retryAfter, 1),
	})
}
