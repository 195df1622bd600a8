package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/markgwharry/modiniapps/internal/db/models"
	"github.com/markgwharry/modiniapps/internal/logging"
	"github.com/markgwharry/modiniapps/internal/telemetry"
)

// MailerConfig holds addressing for outgoing mail.
type MailerConfig struct {
	// Enabled false renders nothing and logs a warning per message.
	Enabled         bool
	AdminRecipients []string
	// BaseURL is the public gateway URL used in links.
	BaseURL string
	// ResetTokenTTL is quoted in the reset email.
	ResetTokenTTL time.Duration
}

// Mailer sends account lifecycle emails through a Transport.
type Mailer struct {
	cfg       MailerConfig
	transport Transport
	renderer  *renderer
	logger    *zap.Logger
	metrics   *telemetry.Metrics
}

// NewMailer builds a Mailer. transport may be nil when cfg.Enabled is false.
func NewMailer(cfg MailerConfig, transport Transport, logger *zap.Logger, metrics *telemetry.Metrics) (*Mailer, error) {
	if cfg.Enabled && transport == nil {
		return nil, errors.New("mail transport is required when mail is enabled")
	}
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Mailer{
		cfg:       cfg,
		transport: transport,
		renderer:  r,
		logger:    logging.OrNop(logger),
		metrics:   metrics,
	}, nil
}

// SendPendingRegistrationEmails tells the administrators about a new
// registration and tells the registrant their account awaits approval.
// The admin email is skipped when no admin recipients are configured.
// The two deliveries are independent: a failure of one does not cancel the other.
func (m *Mailer) SendPendingRegistrationEmails(ctx context.Context, user *models.User) error {
	data := map[string]any{"User": user, "BaseURL": m.cfg.BaseURL}

	var g errgroup.Group
	if len(m.cfg.AdminRecipients) > 0 {
		g.Go(func() error {
			return m.deliver(ctx, KindAdminApprovalRequest, "admin-approval-request", data,
				m.cfg.AdminRecipients, fmt.Sprintf(SubjectAdminApprovalRequest, user.Email))
		})
	} else {
		m.logger.Warn("no admin recipients configured for approval request emails")
	}
	g.Go(func() error {
		return m.deliver(ctx, KindRegistrantPending, "registrant-pending", data,
			[]string{user.Email}, SubjectRegistrantPending)
	})
	return g.Wait()
}

// SendUserApprovalEmail delivers the temporary password to a newly approved user.
func (m *Mailer) SendUserApprovalEmail(ctx context.Context, user *models.User, temporaryPassword string) error {
	data := map[string]any{
		"User":              user,
		"TemporaryPassword": temporaryPassword,
		"BaseURL":           m.cfg.BaseURL,
	}
	return m.deliver(ctx, KindRegistrantApproved, "registrant-approved", data,
		[]string{user.Email}, SubjectRegistrantApproved)
}

// SendPasswordResetEmail delivers a reset link carrying token.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, user *models.User, token string) error {
	data := map[string]any{
		"User":     user,
		"ResetURL": m.ResetURL(token),
		"ValidFor": formatTTL(m.cfg.ResetTokenTTL),
	}
	return m.deliver(ctx, KindPasswordReset, "password-reset", data,
		[]string{user.Email}, SubjectPasswordReset)
}

// ResetURL is the link mailed for token.
func (m *Mailer) ResetURL(token string) string {
	return m.cfg.BaseURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (m *Mailer) deliver(ctx context.Context, kind, template string, data any, to []string, subject string) error {
	if !m.cfg.Enabled {
		m.logger.Warn("mail delivery disabled, skipping email",
			zap.String("kind", kind),
			zap.String("subject", subject))
		return nil
	}

	text, html, err := m.renderer.render(template, data)
	if err != nil {
		return err
	}

	err = m.transport.Send(ctx, &Message{To: to, Subject: subject, Text: text, HTML: html})
	m.metrics.RecordNotification(kind, err)
	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	m.logger.Debug("email sent", zap.String("kind", kind), zap.Int("recipients", len(to)))
	return nil
}

func formatTTL(d time.Duration) string {
	if d <= 0 {
		d = time.Hour
	}
	if d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
