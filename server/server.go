package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
)

const defaultBodyLimit = "1M"

type Server struct {
	echo   *echo.Echo
	http   *http.Server
	addr   string
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	configureTrustedProxies(e, cfg.Server.TrustedProxies, logger)

	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(bodyLimit))
	if logger != nil {
		e.Use(logging.RequestLogger(logger, "/health"))
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: true,
		}))
	}

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

// Start binds the listener and serves in the background. Bind errors are
// returned to the caller; serve errors after that are logged.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.http = &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: s.cfg.Server.ReadHeaderTimeout,
	}

	s.addr = ln.Addr().String()

	s.logRoutes()
	s.logger.Info("starting server", zap.String("address", s.addr))

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("shutting down server")
	return s.http.Shutdown(ctx)
}

func (s *Server) Get(path string, handler echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	s.echo.GET(path, handler, m...)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

// Addr is the bound listen address once Start has returned.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) logRoutes() {
	for _, route := range s.echo.Routes() {
		s.logger.Debug("route",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.String("handler", shortenHandlerName(route.Name)))
	}
}

// errorHandler renders every unhandled error as {"error": message}.
func errorHandler(logger *logging.Service) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		} else {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, map[string]string{"error": message})
		}
		if writeErr != nil {
			logger.Error("failed to write error response", zap.Error(writeErr))
		}
	}
}

// configureTrustedProxies reads the client address from X-Forwarded-For only
// when the request came through one of the listed proxies.
func configureTrustedProxies(e *echo.Echo, trustedProxies []string, logger *logging.Service) {
	var ranges []echo.TrustOption
	for _, proxy := range trustedProxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}

		if !strings.Contains(proxy, "/") {
			if ip := net.ParseIP(proxy); ip != nil {
				if ip.To4() != nil {
					proxy += "/32"
				} else {
					proxy += "/128"
				}
			}
		}

		_, network, err := net.ParseCIDR(proxy)
		if err != nil {
			logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", proxy), zap.Error(err))
			continue
		}
		ranges = append(ranges, echo.TrustIPRange(network))
	}

	if len(ranges) == 0 {
		e.IPExtractor = echo.ExtractIPDirect()
		return
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	e.IPExtractor = echo.ExtractIPFromXFFHeader(append(options, ranges...)...)
}

func shortenHandlerName(name string) string {
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if len(name) > 80 {
		name = name[:77] + "..."
	}
	return name
}
