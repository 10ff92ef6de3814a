package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/visa-bulletin/internal/digest"
	"github.com/pfrederiksen/visa-bulletin/internal/logger"
	"github.com/wneessen/go-mail"
)

// DefaultTimeout bounds a single SMTP delivery
const DefaultTimeout = 30 * time.Second

// SMTPConfig holds the mail transport settings. The sender address doubles as
// the SMTP user name.
type SMTPConfig struct {
	Host      string
	Port      int
	Sender    string
	Recipient string
	Password  string
	Timeout   time.Duration
}

// Validate reports every missing setting at once
func (c SMTPConfig) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("smtp host is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp port %d is out of range", c.Port))
	}
	if c.Sender == "" {
		errs = append(errs, errors.New("smtp sender is required"))
	}
	if c.Recipient == "" {
		errs = append(errs, errors.New("smtp recipient is required"))
	}
	if c.Password == "" {
		errs = append(errs, errors.New("smtp password is required"))
	}
	return errors.Join(errs...)
}

// SMTPNotifier mails digests
type SMTPNotifier struct {
	cfg  SMTPConfig
	log  *logger.Logger
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPNotifier creates a new SMTP notifier
func NewSMTPNotifier(cfg SMTPConfig, log *logger.Logger) (*SMTPNotifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid smtp settings: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	n := &SMTPNotifier{cfg: cfg, log: log}
	n.send = n.dialAndSend
	return n, nil
}

// Notify mails the digest to the configured recipient
func (n *SMTPNotifier) Notify(ctx context.Context, d digest.Digest) error {
	msg, err := n.buildMessage(d)
	if err != nil {
		return err
	}

	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("sending digest %q: %w", d.Title, err)
	}

	n.log.Info("digest mailed", logger.Fields{
		"title":     d.Title,
		"recipient": n.cfg.Recipient,
	})
	return nil
}

func (n *SMTPNotifier) buildMessage(d digest.Digest) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.Sender); err != nil {
		return nil, fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(n.cfg.Recipient); err != nil {
		return nil, fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(d.Title)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, d.HTML)
	if d.Text != "" {
		msg.AddAlternativeString(mail.TypeTextPlain, d.Text)
	}
	return msg, nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(n.cfg.Host,
		mail.WithPort(n.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(n.cfg.Sender),
		mail.WithPassword(n.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(n.cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
