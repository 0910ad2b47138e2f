package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

// ErrNotConfigured is returned by NewSMTPMailer when credentials are absent.
var ErrNotConfigured = errors.New("outbound mail not configured")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type deliverFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPMailer sends through an authenticated SMTP relay, retrying transient
// failures with exponential backoff.
type SMTPMailer struct {
	from       string
	maxRetries int
	deliver    deliverFunc
	newBackOff func() backoff.BackOff
	logger     *zap.Logger
}

// NewSMTPMailer builds a mailer from notification settings.
func NewSMTPMailer(cfg config.NotificationConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if !cfg.MailEnabled() {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUsername),
		mail.WithPassword(cfg.SMTPPassword),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	from := cfg.EmailFrom
	if from == "" {
		from = cfg.SMTPUsername
	}
	return &SMTPMailer{
		from:       from,
		maxRetries: cfg.MaxRetries,
		deliver: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
		newBackOff: newSendBackOff,
		logger:     logger,
	}, nil
}

func newSendBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 0
	return bo
}

// Send implements Mailer. Addressing errors are not retried.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	email, err := m.build(msg)
	if err != nil {
		return err
	}

	retries := m.maxRetries
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(m.newBackOff(), uint64(retries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if err := m.deliver(ctx, email); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			m.logger.Debug("smtp send attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, bo)
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.from, err)
	}
	if err := email.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextPlain, msg.Body)
	return email, nil
}
