package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers one message. Implementations must honour ctx.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks SMTP delivery when a relay host is configured and the
// log sender otherwise.
func NewSender(cfg *config.MailConfig, logger *logging.Service) (Sender, error) {
	if !cfg.SMTPEnabled() {
		logger.Warn("MAIL_HOST not set, outgoing mail will be written to the log")
		return NewLogSender(logger), nil
	}
	return NewSMTPSender(cfg, logger)
}

type smtpClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SMTPSender struct {
	config *config.MailConfig
	client smtpClient
	logger *logging.Service
}

func NewSMTPSender(cfg *config.MailConfig, logger *logging.Service) (*SMTPSender, error) {
	logger.Info("initializing SMTP sender",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("encryption", cfg.Encryption))

	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	switch cfg.Encryption {
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	if cfg.SendTimeout > 0 {
		clientOpts = append(clientOpts, mail.WithTimeout(cfg.SendTimeout))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &SMTPSender{config: cfg, client: client, logger: logger}, nil
}

func (s *SMTPSender) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	from := s.config.FromAddress
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("failed to set TO address: %w", err)
	}
	m.Subject(msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	case msg.HTML != "":
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	default:
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
	}

	return m, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		zap.String("subject", msg.Subject),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *logging.Service
}

func NewLogSender(logger *logging.Service) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email (log delivery)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))
	return nil
}
