package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/barae/config"
	"github.com/tech-arch1tect/barae/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSMTPClient struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSMTPClient) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

func testMailConfig() *config.MailConfig {
	return &config.MailConfig{
		Host:        "smtp.example.com",
		Port:        587,
		Encryption:  "starttls",
		FromAddress: "noreply@barae.app",
		FromName:    "Barae",
	}
}

func TestNewSender(t *testing.T) {
	t.Run("log sender without host", func(t *testing.T) {
		cfg := testMailConfig()
		cfg.Host = ""

		sender, err := NewSender(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &LogSender{}, sender)
	})

	t.Run("smtp sender with host", func(t *testing.T) {
		for _, enc := range []string{"starttls", "ssl", "none"} {
			cfg := testMailConfig()
			cfg.Encryption = enc
			cfg.Username = "user"
			cfg.Password = "pass"

			sender, err := NewSender(cfg, logging.NewNop())
			require.NoError(t, err, enc)
			assert.IsType(t, &SMTPSender{}, sender)
		}
	})

	t.Run("smtp sender requires a from address", func(t *testing.T) {
		cfg := testMailConfig()
		cfg.FromAddress = ""

		_, err := NewSMTPSender(cfg, logging.NewNop())
		assert.Error(t, err)
	})
}

func TestSMTPSender_Send(t *testing.T) {
	client := &fakeSMTPClient{}
	sender := &SMTPSender{config: testMailConfig(), client: client, logger: logging.NewNop()}

	err := sender.Send(context.Background(), Message{
		To:      "a@x.com",
		Subject: "Verify your Barae account",
		HTML:    "<p>hello</p>",
		Text:    "hello",
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	recipients, err := client.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Len(t, recipients, 1)

	to := client.sent[0].GetTo()
	require.Len(t, to, 1)
	assert.Equal(t, "a@x.com", to[0].Address)

	var buf bytes.Buffer
	_, err = client.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Subject: Verify your Barae account")
	assert.Contains(t, buf.String(), "noreply@barae.app")
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "text/plain")
}

func TestSMTPSender_Errors(t *testing.T) {
	t.Run("delivery failure is wrapped", func(t *testing.T) {
		boom := errors.New("connection refused")
		sender := &SMTPSender{config: testMailConfig(), client: &fakeSMTPClient{err: boom}, logger: logging.NewNop()}

		err := sender.Send(context.Background(), Message{To: "a@x.com", Subject: "s", Text: "t"})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("bad recipient", func(t *testing.T) {
		client := &fakeSMTPClient{}
		sender := &SMTPSender{config: testMailConfig(), client: client, logger: logging.NewNop()}

		err := sender.Send(context.Background(), Message{To: "not an address", Subject: "s", Text: "t"})
		assert.Error(t, err)
		assert.Empty(t, client.sent)
	})
}

func TestLogSender_Send(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	sender := NewLogSender(logging.New(zap.New(core)))

	require.NoError(t, sender.Send(context.Background(), Message{To: "a@x.com", Subject: "Code", Text: "123456"}))

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "a@x.com", fields["to"])
	assert.Equal(t, "Code", fields["subject"])
	assert.Equal(t, "123456", fields["body"])
}
