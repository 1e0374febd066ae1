package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Notifier = (*Notifier)(nil)

// sendFunc matches smtp.SendMail, injectable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Config holds SMTP connection and message settings.
type Config struct {
	// Host is the SMTP server hostname
	Host string

	// Port is the SMTP server port
	Port int

	// Username for SMTP AUTH (empty disables auth)
	Username string

	// Password for SMTP AUTH
	Password string

	// From is the sender address on outgoing messages
	From string

	// Subject is the subject line for match notifications
	Subject string
}

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "Face match notification"

const bodyTemplate = `Hello {{.DisplayName}},

A face matching your profile was found and loaded into the face registry.

Person ID: {{.PersonID}}

This is an automated notification.
`

// Notifier delivers match notifications over SMTP, one message per
// recipient.
type Notifier struct {
	cfg  Config
	tmpl *template.Template
	send sendFunc
}

// NewNotifier creates an SMTP notifier.
func NewNotifier(cfg Config) (*Notifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}

	tmpl, err := template.New("notification").Parse(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse notification template: %w", err)
	}

	return &Notifier{
		cfg:  cfg,
		tmpl: tmpl,
		send: smtp.SendMail,
	}, nil
}

// Send delivers a match notification to a single recipient.
func (n *Notifier) Send(ctx context.Context, recipient domain.Recipient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if recipient.Email == "" {
		return fmt.Errorf("%w: recipient has no email address", domain.ErrInvalidInput)
	}

	msg, err := n.buildMessage(recipient)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.From, []string{recipient.Email}, msg); err != nil {
		return fmt.Errorf("send notification to %s: %w", recipient.Email, err)
	}
	return nil
}

func (n *Notifier) buildMessage(recipient domain.Recipient) ([]byte, error) {
	displayName := recipient.Name
	if displayName == "" {
		displayName = recipient.Email
	}

	var body bytes.Buffer
	err := n.tmpl.Execute(&body, struct {
		DisplayName string
		PersonID    string
	}{
		DisplayName: displayName,
		PersonID:    recipient.PersonID,
	})
	if err != nil {
		return nil, fmt.Errorf("render notification body: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient.Email)
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.cfg.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body.String())

	return []byte(msg.String()), nil
}
