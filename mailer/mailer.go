// Package mailer delivers magic-link emails. Only a dev-mode, log-based
// transport is implemented here; wiring a real SMTP/API transport is out
// of scope (see Non-goals) and left to a production Mailer implementation
// supplied by the deployment.
package mailer

import (
	"context"
	"fmt"

	"github.com/arkaitz-dev/hashrand/config"
	"github.com/arkaitz-dev/hashrand/internal/logger"
)

// Message is the email to deliver.
type Message struct {
	To   string
	Lang string
	Link string
}

// Mailer sends magic-link emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	// Ready reports whether the mailer is configured to actually deliver
	// mail, used by pkg/health.MailerHealthCheck.
	Ready() error
}

// DevMailer logs the magic link instead of sending an email. It is the
// only mailer this module ships; a real transport is a deployment detail
// the spec places out of scope.
type DevMailer struct {
	log logger.Logger
}

// NewDevMailer builds a DevMailer that logs through the given logger.
func NewDevMailer(log logger.Logger) *DevMailer {
	return &DevMailer{log: log}
}

// Send logs the magic link at info level instead of emailing it.
func (m *DevMailer) Send(ctx context.Context, msg Message) error {
	m.log.Info("dev magic-link email",
		logger.String("to", msg.To),
		logger.String("lang", msg.Lang),
		logger.String("link", msg.Link),
	)
	return nil
}

// Ready always succeeds: the dev mailer has no external dependency.
func (m *DevMailer) Ready() error {
	return nil
}

// FromConfig builds a Mailer for the given operational configuration.
// Only the dev-mode mailer is implemented; a non-empty SMTP host is
// accepted so config plumbing and health checks can be exercised end to
// end, but mail is still only logged, never actually sent.
func FromConfig(op config.Operational, log logger.Logger) (Mailer, error) {
	if op.MailerSMTPHost == "" {
		log.Warn("mailer SMTP host not configured, using dev mailer", logger.String("from", op.MailerFrom))
	}
	return NewDevMailer(log), nil
}

// BuildMagicLinkURL assembles the user-facing magic-link URL from the
// issued token, the UI host supplied at login, and the post-login
// redirect path.
func BuildMagicLinkURL(uiHost, nextPath, token string) string {
	if nextPath == "" {
		nextPath = "/"
	}
	return fmt.Sprintf("https://%s%s?magiclink=%s", uiHost, nextPath, token)
}
