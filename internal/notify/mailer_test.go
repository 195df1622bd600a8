package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/markgwharry/modiniapps/internal/db/models"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent []*Message
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingTransport) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.Subject)
	}
	sort.Strings(out)
	return out
}

func testUser() *models.User {
	return &models.User{ID: 7, Email: "ada@example.com", FullName: "Ada", CreatedAt: time.Now()}
}

func newTestMailer(t *testing.T, cfg MailerConfig, transport Transport) *Mailer {
	t.Helper()
	m, err := NewMailer(cfg, transport, zap.NewNop(), nil)
	require.NoError(t, err)
	return m
}

func TestMailer_PendingRegistration(t *testing.T) {
	transport := &recordingTransport{}
	m := newTestMailer(t, MailerConfig{
		Enabled:         true,
		AdminRecipients: []string{"ops@example.com", "it@example.com"},
		BaseURL:         "https://apps.example.com",
	}, transport)

	require.NoError(t, m.SendPendingRegistrationEmails(context.Background(), testUser()))

	assert.Equal(t, []string{
		"New Modini Apps registration: ada@example.com",
		"Your Modini Apps registration is pending approval",
	}, transport.subjects())

	for _, msg := range transport.sent {
		if msg.Subject == SubjectRegistrantPending {
			assert.Equal(t, []string{"ada@example.com"}, msg.To)
		} else {
			assert.Equal(t, []string{"ops@example.com", "it@example.com"}, msg.To)
			assert.Contains(t, msg.Text, "https://apps.example.com/admin")
		}
		assert.NotEmpty(t, msg.HTML)
	}
}

func TestMailer_PendingRegistrationWithoutAdmins(t *testing.T) {
	transport := &recordingTransport{}
	core, logs := observer.New(zap.WarnLevel)
	m, err := NewMailer(MailerConfig{Enabled: true}, transport, zap.New(core), nil)
	require.NoError(t, err)

	require.NoError(t, m.SendPendingRegistrationEmails(context.Background(), testUser()))

	assert.Equal(t, []string{SubjectRegistrantPending}, transport.subjects())
	assert.Equal(t, 1, logs.FilterMessage("no admin recipients configured for approval request emails").Len())
}

func TestMailer_ApprovalCarriesTemporaryPassword(t *testing.T) {
	transport := &recordingTransport{}
	m := newTestMailer(t, MailerConfig{Enabled: true, BaseURL: "https://apps.example.com"}, transport)

	require.NoError(t, m.SendUserApprovalEmail(context.Background(), testUser(), "Tmp#Pass2word9xy"))

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, SubjectRegistrantApproved, msg.Subject)
	assert.Contains(t, msg.Text, "Tmp#Pass2word9xy")
	assert.Contains(t, msg.Text, "Hello Ada")
}

func TestMailer_PasswordReset(t *testing.T) {
	transport := &recordingTransport{}
	m := newTestMailer(t, MailerConfig{
		Enabled:       true,
		BaseURL:       "https://apps.example.com",
		ResetTokenTTL: time.Hour,
	}, transport)

	require.NoError(t, m.SendPasswordResetEmail(context.Background(), testUser(), "abc123"))

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, SubjectPasswordReset, msg.Subject)
	assert.Contains(t, msg.Text, "https://apps.example.com/reset-password?token=abc123")
	assert.Contains(t, msg.Text, "1 hour")
	assert.Contains(t, msg.HTML, "https://apps.example.com/reset-password?token=abc123")
}

func TestMailer_Disabled(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m, err := NewMailer(MailerConfig{Enabled: false}, nil, zap.New(core), nil)
	require.NoError(t, err)

	require.NoError(t, m.SendUserApprovalEmail(context.Background(), testUser(), "whatever-password"))
	assert.Equal(t, 1, logs.FilterMessage("mail delivery disabled, skipping email").Len())
}

func TestMailer_TransportError(t *testing.T) {
	transport := &recordingTransport{err: errors.New("connection refused")}
	m := newTestMailer(t, MailerConfig{Enabled: true}, transport)

	err := m.SendPasswordResetEmail(context.Background(), testUser(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// selectiveTransport rejects one address outright and delivers the rest
// after a delay, giving up early if the context is cancelled.
type selectiveTransport struct {
	reject string
	delay  time.Duration

	mu        sync.Mutex
	delivered []string
}

func (s *selectiveTransport) Send(ctx context.Context, msg *Message) error {
	for _, to := range msg.To {
		if to == s.reject {
			return errors.New("550 mailbox unavailable")
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, msg.To...)
	return nil
}

func TestMailer_PendingRegistrationAdminFailureKeepsRegistrantEmail(t *testing.T) {
	transport := &selectiveTransport{reject: "ops@example.com", delay: 50 * time.Millisecond}
	m := newTestMailer(t, MailerConfig{
		Enabled:         true,
		AdminRecipients: []string{"ops@example.com"},
		BaseURL:         "https://apps.example.com",
	}, transport)

	err := m.SendPendingRegistrationEmails(context.Background(), testUser())
	require.Error(t, err)
	assert.Contains(t, err.Error(), KindAdminApprovalRequest)
	assert.Contains(t, err.Error(), "550 mailbox unavailable")

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, []string{"ada@example.com"}, transport.delivered)
}

func TestNewMailer_RequiresTransportWhenEnabled(t *testing.T) {
	_, err := NewMailer(MailerConfig{Enabled: true}, nil, nil, nil)
	assert.Error(t, err)
}

func TestFormatTTL(t *testing.T) {
	assert.Equal(t, "1 hour", formatTTL(0))
	assert.Equal(t, "1 hour", formatTTL(time.Hour))
	assert.Equal(t, "2 hours", formatTTL(2*time.Hour))
	assert.Equal(t, "30 minutes", formatTTL(30*time.Minute))
}
