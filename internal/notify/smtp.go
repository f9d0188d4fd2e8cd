package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/devfolio/portfolio-api/internal/models"
	"github.com/wneessen/go-mail"
)

// SMTPConfig describes the outgoing mail server and the notification addresses.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
}

// SMTPNotifier sends one plain-text mail per contact message.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	send := func(ctx context.Context, msg *mail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	}
	return &SMTPNotifier{cfg: cfg, send: send}, nil
}

// Build assembles the notification mail for m. The sender is set as Reply-To.
func (n *SMTPNotifier) Build(m models.Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if m.Email != "" {
		if err := msg.ReplyTo(m.Email); err != nil {
			return nil, fmt.Errorf("reply-to: %w", err)
		}
	}
	msg.Subject(Subject(m))
	msg.SetBodyString(mail.TypeTextPlain, Body(m))
	return msg, nil
}

func (n *SMTPNotifier) NotifyContact(ctx context.Context, m models.Message) error {
	msg, err := n.Build(m)
	if err != nil {
		return err
	}
	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
