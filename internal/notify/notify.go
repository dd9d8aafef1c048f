// Package notify abstracts outbound mail. Delivery runs through the job
// queue; the Mailer implementation is chosen at startup.
package notify

import (
	"context"

	"github.com/yourusername/klimaatdesk/internal/logging"
)

// Mail is a single outbound message. Attachments reference files on disk.
type Mail struct {
	To          string   `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments,omitempty"`
}

// Mailer delivers a single mail. Implementations must be safe for concurrent
// use by the worker pool.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes mails to the structured log instead of delivering them.
// It is the default when no SMTP relay is configured, so development and
// staging never mail real customers.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Mail) error {
	logging.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("attachments", len(m.Attachments)).
		Msg("mail delivery skipped (log mailer)")
	return nil
}
