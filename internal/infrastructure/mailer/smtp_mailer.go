package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursebundler/internal/core/domain"
	"coursebundler/internal/core/ports"
	"coursebundler/pkg/tracing"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.SugaredLogger
}

func NewSMTPMailer(cfg SMTPConfig, logger *zap.SugaredLogger) ports.Mailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(m.cfg.Timeout))
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

// buildMessage turns a domain mail into a plain-text MIME message.
func buildMessage(from string, msg domain.Mail) (*mail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, errors.New("mail has no recipients")
	}
	out := mail.NewMsg()
	if err := out.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := out.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to: %w", err)
		}
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)
	return out, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg domain.Mail) error {
	ctx, span := tracing.TraceExternalCall(ctx, "smtp", "send")
	defer span.End()

	out, err := buildMessage(m.cfg.From, msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, out); err != nil {
		tracing.RecordError(ctx, err)
		m.logger.Errorw("Failed to send mail", "subject", msg.Subject, "error", err)
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Infow("Mail sent", "subject", msg.Subject, "recipients", len(msg.To))
	return nil
}
