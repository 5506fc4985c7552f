// Package handlers serves the endpoints that live outside the identity
// handler and registers every route on the echo server.
package handlers

import (
	"context"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/openapi"
	"github.com/tech-arch1tect/barae/services/auth"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/tech-arch1tect/barae/services/verification"
	"gorm.io/gorm"
)

// Mailer sends the email verification link.
type Mailer interface {
	SendVerificationLink(ctx context.Context, email, link string) error
}

type Handler struct {
	config *config.Config
	db     *gorm.DB
	users  *auth.Service
	codes  *verification.Service
	mailer Mailer
	docs   *openapi.Document
	logger *logging.Service
}

func New(cfg *config.Config, db *gorm.DB, users *auth.Service, codes *verification.Service, mailer Mailer, docs *openapi.Document, logger *logging.Service) *Handler {
	return &Handler{
		config: cfg,
		db:     db,
		users:  users,
		codes:  codes,
		mailer: mailer,
		docs:   docs,
		logger: logger,
	}
}
