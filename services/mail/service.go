package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	textTemplate "text/template"
	"time"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"go.uber.org/zap"
)

//go:embed templates/*.html templates/*.txt
var templatesFS embed.FS

type TemplateData map[string]any

// Service renders account mail and hands it to the dispatcher.
type Service struct {
	config        *config.Config
	dispatcher    *Dispatcher
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

func NewService(cfg *config.Config, dispatcher *Dispatcher, logger *logging.Service) (*Service, error) {
	htmlTemplates, err := htmlTemplate.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML templates: %w", err)
	}
	textTemplates, err := textTemplate.ParseFS(templatesFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text templates: %w", err)
	}

	return &Service{
		config:        cfg,
		dispatcher:    dispatcher,
		htmlTemplates: htmlTemplates,
		textTemplates: textTemplates,
		logger:        logger,
	}, nil
}

func (s *Service) SendVerificationLink(_ context.Context, email, link string) error {
	return s.send(email, fmt.Sprintf("Verify your %s account", s.config.App.Name), "verify_email", TemplateData{
		"Link":      link,
		"Label":     "Verify Email",
		"ExpiresIn": humanDuration(s.config.Auth.EmailVerificationExpiry),
	})
}

func (s *Service) SendPasswordResetLink(_ context.Context, email, link string) error {
	return s.send(email, fmt.Sprintf("Reset your %s password", s.config.App.Name), "reset_password", TemplateData{
		"Link":      link,
		"Label":     "Reset Password",
		"ExpiresIn": humanDuration(s.config.Auth.PasswordResetExpiry),
	})
}

// SendOTP mails a one-time code. purpose is one of the OTP purposes
// (email-verification, sign-in, forget-password).
func (s *Service) SendOTP(_ context.Context, email, purpose, code string) error {
	app := s.config.App.Name

	var subject, heading, intro string
	switch purpose {
	case "email-verification":
		subject = fmt.Sprintf("Verify your %s email", app)
		heading = "Verify your email"
		intro = "Enter this code to verify your email address."
	case "sign-in":
		subject = fmt.Sprintf("Your %s sign-in code", app)
		heading = "Your sign-in code"
		intro = fmt.Sprintf("Enter this code to sign in to %s.", app)
	case "forget-password":
		subject = fmt.Sprintf("Reset your %s password", app)
		heading = "Reset your password"
		intro = "Enter this code to choose a new password."
	default:
		return fmt.Errorf("unknown code purpose: %s", purpose)
	}

	return s.send(email, subject, "otp", TemplateData{
		"Heading":   heading,
		"Intro":     intro,
		"Code":      code,
		"ExpiresIn": humanDuration(s.config.Auth.OTPExpiry),
	})
}

func (s *Service) send(to, subject, templateName string, data TemplateData) error {
	data["AppName"] = s.config.App.Name

	msg, err := s.render(to, subject, templateName, data)
	if err != nil {
		s.logger.Error("failed to render email", zap.Error(err), zap.String("template", templateName))
		return err
	}

	s.dispatcher.Dispatch(msg)
	return nil
}

func (s *Service) render(to, subject, templateName string, data TemplateData) (Message, error) {
	var htmlBuf, textBuf bytes.Buffer

	if err := s.htmlTemplates.ExecuteTemplate(&htmlBuf, templateName+".html", data); err != nil {
		return Message{}, fmt.Errorf("failed to execute HTML template: %w", err)
	}
	if err := s.textTemplates.ExecuteTemplate(&textBuf, templateName+".txt", data); err != nil {
		return Message{}, fmt.Errorf("failed to execute text template: %w", err)
	}

	return Message{
		To:      to,
		Subject: subject,
		HTML:    htmlBuf.String(),
		Text:    textBuf.String(),
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
