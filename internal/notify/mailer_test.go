package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/config"
)

func testMailer(maxRetries int, deliver deliverFunc) *SMTPMailer {
	return &SMTPMailer{
		from:       "support@example.com",
		maxRetries: maxRetries,
		deliver:    deliver,
		newBackOff: func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) },
		logger:     zap.NewNop(),
	}
}

func TestNewSMTPMailerRequiresCredentials(t *testing.T) {
	_, err := NewSMTPMailer(config.NotificationConfig{SMTPHost: "smtp.example.com"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	m, err := NewSMTPMailer(config.NotificationConfig{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     587,
		SMTPUsername: "mailer@example.com",
		SMTPPassword: "app-password",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mailer@example.com", m.from)
}

func TestSMTPMailerRetriesTransientFailures(t *testing.T) {
	calls := 0
	m := testMailer(2, func(_ context.Context, msg *mail.Msg) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	err := m.Send(context.Background(), Message{To: "ana@example.com", Subject: "hi", Body: "body"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestSMTPMailerGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	m := testMailer(1, func(context.Context, *mail.Msg) error {
		calls++
		return errors.New("421 service not available")
	})

	err := m.Send(context.Background(), Message{To: "ana@example.com", Subject: "hi", Body: "body"})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestSMTPMailerRejectsBadRecipientWithoutSending(t *testing.T) {
	calls := 0
	m := testMailer(3, func(context.Context, *mail.Msg) error {
		calls++
		return nil
	})

	err := m.Send(context.Background(), Message{To: "not an address", Subject: "hi"})
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestSMTPMailerStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	m := testMailer(5, func(context.Context, *mail.Msg) error {
		calls++
		cancel()
		return errors.New("dial tcp: i/o timeout")
	})

	err := m.Send(ctx, Message{To: "ana@example.com", Subject: "hi"})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
