// Package notify renders and delivers the gateway's account emails.
package notify

import "context"

// Subjects of the emails sent by Mailer.
const (
	SubjectAdminApprovalRequest = "New Modini Apps registration: %s"
	SubjectRegistrantPending    = "Your Modini Apps registration is pending approval"
	SubjectRegistrantApproved   = "Your Modini Apps account has been approved"
	SubjectPasswordReset        = "Reset your Modini Apps password"
)

// Kinds label notifications in logs and metrics.
const (
	KindAdminApprovalRequest = "admin_approval_request"
	KindRegistrantPending    = "registrant_pending"
	KindRegistrantApproved   = "registrant_approved"
	KindPasswordReset        = "password_reset"
)

// Message is a rendered email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers rendered messages.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}
