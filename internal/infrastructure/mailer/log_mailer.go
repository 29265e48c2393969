package mailer

import (
	"context"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"

	"go.uber.org/zap"
)

// LogMailer writes outbound mail to the log. Used when no SMTP host is set.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) ports.Mailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg domain.Mail) error {
	m.logger.Infow("Mail not delivered, SMTP disabled",
		"to", msg.To,
		"reply_to", msg.ReplyTo,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
