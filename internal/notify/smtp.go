package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/markgwharry/modiniapps/internal/config"
)

// SMTPTransport delivers messages over SMTP.
type SMTPTransport struct {
	client *mail.Client
	from   string
}

// NewSMTPTransport builds a transport from the mail settings.
// Secure selects implicit TLS; otherwise STARTTLS is used when offered.
func NewSMTPTransport(cfg config.MailConfig) (*SMTPTransport, error) {
	opts := []mail.Option{
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}
	// Port last so the TLS options above cannot reset it.
	opts = append(opts, mail.WithPort(cfg.Port))

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPTransport{client: client, from: cfg.From}, nil
}

// Send implements Transport.
func (t *SMTPTransport) Send(ctx context.Context, msg *Message) error {
	m := mail.NewMsg()
	if err := m.From(t.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	if err := t.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
