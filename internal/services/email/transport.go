// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Message is an outgoing mail with a plain text body and an optional HTML
// alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers one message using one credential.
type Transport interface {
	Send(ctx context.Context, from Credential, msg Message) error
}

// SMTPTransport sends mail through an SMTP server with go-mail.
type SMTPTransport struct {
	Host     string
	Port     int
	TLS      bool
	FromName string
}

// Send dials the server, authenticates as from and delivers msg.
func (t *SMTPTransport) Send(ctx context.Context, from Credential, msg Message) error {
	m := mail.NewMsg()

	if t.FromName != "" {
		if err := m.FromFormat(t.FromName, from.Address); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := m.From(from.Address); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	client, err := mail.NewClient(t.Host, t.options(from)...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (t *SMTPTransport) options(from Credential) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(t.Port),
	}

	// Implicit TLS on 465, STARTTLS elsewhere.
	if t.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if t.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if from.Address != "" && from.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(from.Address),
			mail.WithPassword(from.Password),
		)
	}

	return opts
}
