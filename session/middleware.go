package session

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
)

type contextKey struct{}

const sessionManagerKey = "session_manager"

// Middleware loads the session for the request and commits it before the
// response header is written.
func Middleware(manager *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if manager == nil {
				return next(c)
			}

			c.Set(sessionManagerKey, manager)

			var handlerErr error

			rw := &responseWriterWrapper{
				ResponseWriter: c.Response().Writer,
				echo:           c.Response(),
			}

			handler := manager.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := context.WithValue(r.Context(), contextKey{}, manager)
				c.SetRequest(r.WithContext(ctx))
				c.Response().Writer = w
				handlerErr = next(c)
			}))

			handler.ServeHTTP(rw, c.Request())
			return handlerErr
		}
	}
}

type responseWriterWrapper struct {
	http.ResponseWriter
	echo *echo.Response
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	if w.echo.Status == 0 {
		w.echo.Status = statusCode
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func GetManager(c echo.Context) *Manager {
	if manager, ok := c.Get(sessionManagerKey).(*Manager); ok {
		return manager
	}
	return nil
}

func GetManagerFromContext(ctx context.Context) *Manager {
	if manager, ok := ctx.Value(contextKey{}).(*Manager); ok {
		return manager
	}
	return nil
}

// TouchMiddleware refreshes last-used time on the tracked session. It must
// run inside Middleware. A failed refresh is logged and does not fail the
// request.
func TouchMiddleware(logger *logging.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			manager := GetManager(c)
			if manager == nil || manager.tracker == nil || !IsAuthenticated(c) {
				return err
			}
			ctx := c.Request().Context()
			if token := manager.Token(ctx); token != "" {
				if touchErr := manager.tracker.UpdateLastUsed(ctx, token); touchErr != nil {
					logger.Warn("failed to update session last used time",
						zap.String("user_id", manager.UserID(ctx)),
						zap.Error(touchErr))
				}
			}
			return err
		}
	}
}
