// Package mail delivers outgoing email such as password reset links.
package mail

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type Message struct {
	To      []string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// PasswordResetMessage builds the reset email for a user
func PasswordResetMessage(to, username, link string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", username)
	b.WriteString("A password reset was requested for your account.\r\n")
	fmt.Fprintf(&b, "Open the link below to choose a new password:\r\n\r\n%s\r\n\r\n", link)
	b.WriteString("If you did not request this, you can ignore this email.\r\n")
	return Message{
		To:      []string{to},
		Subject: "Password Reset Request",
		Body:    b.String(),
	}
}

// LogSender writes messages to the log instead of delivering them
type LogSender struct {
	logger *zap.SugaredLogger
}

func NewLogSender(logger *zap.SugaredLogger) *LogSender {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, msg Message) error {
	l.logger.Infow("Mail not delivered, no server configured",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
