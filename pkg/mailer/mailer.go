// Package mailer delivers plain-text transactional email.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/primeapparel/marketplace-backend/config"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"github.com/wneessen/go-mail"
)

var ErrNoRecipient = errors.New("mailer: recipient address is empty")

// Notifier sends one message and reports whether delivery was accepted.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

func NewSMTPMailer(cfg config.MailConfig) (*SMTPMailer, error) {
	if cfg.FromAddress == "" {
		return nil, errors.New("DEFAULT_FROM_EMAIL is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.UseTLS {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	logger.Info("SMTP mailer initialized", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"tls":  cfg.UseTLS,
	})
	return &SMTPMailer{client: client, from: cfg.FromAddress}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	start := time.Now()
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		logger.Error("Failed to send email", err, map[string]interface{}{
			"to":      to,
			"subject": subject,
		})
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("Email sent", map[string]interface{}{
		"to":          to,
		"subject":     subject,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured. Bodies carry one-time codes, so they are
// only logged when ShowBody is set.
type LogMailer struct {
	ShowBody bool
}

func (m LogMailer) Send(_ context.Context, to, subject, body string) error {
	if to == "" {
		return ErrNoRecipient
	}
	fields := map[string]interface{}{
		"to":      to,
		"subject": subject,
	}
	if m.ShowBody {
		fields["body"] = body
	} else {
		fields["body_length"] = len(body)
	}
	logger.Info("[DEV MODE] Email not sent, logging instead", fields)
	return nil
}

// New picks the SMTP mailer when a host is configured. Without one it falls
// back to LogMailer, except in production where mail must really be sent.
func New(cfg config.MailConfig, environment string) (Notifier, error) {
	if cfg.Host == "" {
		if environment == "production" {
			return nil, errors.New("EMAIL_HOST is required in production")
		}
		logger.Warn("EMAIL_HOST not set, emails will only be logged", map[string]interface{}{
			"environment": environment,
		})
		return LogMailer{ShowBody: environment == "development"}, nil
	}
	return NewSMTPMailer(cfg)
}
