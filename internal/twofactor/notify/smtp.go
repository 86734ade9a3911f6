package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/wneessen/go-mail"
)

// ErrNoRecipient is returned when no address is known for the user.
var ErrNoRecipient = errors.New("notify: no recipient address")

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// RecipientFunc looks up the address of a user.
type RecipientFunc func(ctx context.Context, userID string) (string, error)

// SMTPSender mails notifications with go-mail.
type SMTPSender struct {
	From      string
	Product   string
	Recipient RecipientFunc

	client *mail.Client
}

// NewSMTPSender builds a sender for cfg. STARTTLS is used when offered.
func NewSMTPSender(cfg SMTPConfig, product string, recipient RecipientFunc) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
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
	return &SMTPSender{From: cfg.From, Product: product, Recipient: recipient, client: client}, nil
}

func (s *SMTPSender) Send(ctx context.Context, n domain.Notification) error {
	to := n.Account
	if !strings.Contains(to, "@") && s.Recipient != nil {
		addr, err := s.Recipient(ctx, n.UserID)
		if err != nil {
			return fmt.Errorf("resolve recipient: %w", err)
		}
		to = addr
	}
	if !strings.Contains(to, "@") {
		return ErrNoRecipient
	}

	msg, err := s.Message(n, to)
	if err != nil {
		return err
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}

// Message renders n as a plain-text mail to the given address.
func (s *SMTPSender) Message(n domain.Notification, to string) (*mail.Msg, error) {
	subject, body := render(s.Product, n)

	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func render(product string, n domain.Notification) (subject, body string) {
	if product == "" {
		product = "your account"
	}
	when := n.OccurredAt.UTC().Format("2 Jan 2006 15:04 MST")

	var what string
	switch n.Event {
	case domain.EventEnabled:
		subject = "Two-factor authentication enabled"
		what = "Two-factor authentication was turned on for " + product + "."
	case domain.EventDisabled:
		subject = "Two-factor authentication disabled"
		what = "Two-factor authentication was turned off for " + product + "."
	case domain.EventBackupCodesRenewed:
		subject = "New backup codes generated"
		what = "A new set of backup codes was generated for " + product + ". Your previous codes no longer work."
	default:
		subject = "Security settings changed"
		what = "The security settings of " + product + " changed."
	}

	body = what + "\n\nTime: " + when + "\n\n" +
		"If this was not you, reset your password and contact support immediately.\n"
	return subject, body
}
