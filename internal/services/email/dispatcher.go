// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email sends OTP mail through a rotating pool of sender
// credentials with a single fallback credential.
package email

import (
	"context"
	"log/slog"
	"sync"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/metrics"
)

// Dispatcher applies the sender rotation and fallback policy.
type Dispatcher struct {
	mu        sync.Mutex
	pool      *SenderPool
	fallback  *Credential
	transport Transport
	metrics   *metrics.Metrics
}

// NewDispatcher creates a dispatcher. pool and fallback may each be nil.
func NewDispatcher(transport Transport, pool *SenderPool, fallback *Credential, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		fallback:  fallback,
		transport: transport,
		metrics:   m,
	}
}

// Configured reports whether any credential path exists.
func (d *Dispatcher) Configured() bool {
	return d.pool != nil || d.fallback != nil
}

// Send tries the pool's active sender, then the fallback credential once.
// It returns false only if neither path delivered the message.
func (d *Dispatcher) Send(ctx context.Context, msg Message) bool {
	if d.pool != nil {
		d.mu.Lock()
		cred := d.pool.Current()
		index := d.pool.CurrentIndex()
		d.mu.Unlock()

		err := d.transport.Send(ctx, cred, msg)
		d.metrics.MailSend("pool", err == nil)
		if err == nil {
			d.recordSend()
			slog.Info("mail_sent", "to", msg.To, "sender_index", index)
			return true
		}
		slog.Error("pool sender failed", "to", msg.To, "sender_index", index, "error", err)
	}

	if d.fallback == nil {
		if d.pool == nil {
			slog.Error("no mail credentials configured", "to", msg.To)
		}
		return false
	}

	err := d.transport.Send(ctx, *d.fallback, msg)
	d.metrics.MailSend("fallback", err == nil)
	if err != nil {
		slog.Error("fallback sender failed", "to", msg.To, "error", err)
		return false
	}
	slog.Info("mail_sent", "to", msg.To, "sender", "fallback")
	return true
}

func (d *Dispatcher) recordSend() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pool.RecordSend()
	if d.pool.RotateIfNeeded() {
		d.metrics.SenderRotated()
		slog.Info("mail_sender_rotated", "sender_index", d.pool.CurrentIndex())
	}
}
