// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

var otpTemplate = template.Must(template.ParseFS(templateFS, "templates/otp.html"))

// OTPMessage builds the verification mail in the locale carried by ctx.
func OTPMessage(ctx context.Context, to, name, code string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Minutes())
	data := map[string]any{
		"Name":    name,
		"Code":    code,
		"Minutes": minutes,
	}

	var html bytes.Buffer
	err := otpTemplate.Execute(&html, map[string]any{
		"Lang":     i18n.GetLocale(ctx),
		"Title":    i18n.T(ctx, "otp_email_subject"),
		"Greeting": i18n.TData(ctx, "otp_email_greeting", data),
		"Intro":    i18n.T(ctx, "otp_email_intro"),
		"Code":     code,
		"Expiry":   i18n.TData(ctx, "otp_email_expiry", data),
		"Ignore":   i18n.T(ctx, "otp_email_ignore"),
	})
	if err != nil {
		return Message{}, fmt.Errorf("rendering otp mail: %w", err)
	}

	return Message{
		To:      to,
		Subject: i18n.T(ctx, "otp_email_subject"),
		Text:    i18n.TData(ctx, "otp_email_body", data),
		HTML:    html.String(),
	}, nil
}
