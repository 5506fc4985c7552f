package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/barae/authproxy"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/database"
	"github.com/tech-arch1tect/barae/handlers"
	"github.com/tech-arch1tect/barae/middleware/ratelimit"
	"github.com/tech-arch1tect/barae/server"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/identity"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/mail"
	"github.com/tech-arch1tect/barae/services/verification"
	"github.com/tech-arch1tect/barae/session"
	"go.uber.org/fx"
)

// Models are the tables the application owns.
func Models() []any {
	return []any{
		&auth.User{},
		&verification.Record{},
		&session.UserSession{},
	}
}

type AppBuilder struct {
	config    *config.Config
	models    []any
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		models:    Models(),
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

// WithModels registers extra models for auto-migration.
func (b *AppBuilder) WithModels(models ...any) *AppBuilder {
	b.models = append(b.models, models...)
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if b.config == nil && len(b.errors) == 0 {
		b.WithAutoConfig()
	}
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}

	logger, err := logging.NewLoggingService(b.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{
		config: b.config,
		logger: logger,
	}

	options := append(b.buildFxOptions(logger), fx.Populate(&app.db, &app.server))
	app.fx = fx.New(options...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to assemble application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) buildFxOptions(logger *logging.Service) []fx.Option {
	options := []fx.Option{
		config.NewProvider(b.config),
		fx.Supply(logger),
		fx.Supply(database.WithModels(b.models...)),
		fx.NopLogger,

		logging.Module,
		database.Module,
		auth.Module,
		verification.Module,
		session.Module,
		mail.Module,
		ratelimit.Module,
		identity.Module,
		authproxy.Module,
		server.Module,
		handlers.Module,
	}

	return append(options, b.fxOptions...)
}
