// Package mail delivers account emails. The only transport is the log; a
// production deployment swaps in a provider behind Mailer.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the structured log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("outgoing email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.Body),
	)
	return nil
}

// PasswordReset builds the reset message for a token.
func PasswordReset(to, baseURL, token string, ttl time.Duration) Message {
	link := fmt.Sprintf("%s/reset-password?token=%s", baseURL, url.QueryEscape(token))
	return Message{
		To:      to,
		Subject: "Reset your StockMaster password",
		Body: fmt.Sprintf("A password reset was requested for your account.\n\nOpen %s to choose a new password. The link expires in %s.\n\nIf you did not ask for this, ignore this email.",
			link, ttl.Round(time.Minute)),
	}
}
