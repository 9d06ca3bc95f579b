// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package audit appends verification and admin actions to the audit log.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/ctxkeys"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/repository"
)

// Filter narrows List.
type Filter = repository.AuditFilter

// Log writes audit entries. Write failures are logged and swallowed.
type Log struct {
	repo *repository.Repository
	now  func() time.Time
}

// New creates an audit log. now defaults to time.Now.
func New(repo *repository.Repository, now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{repo: repo, now: now}
}

// Record appends e, stamping its time and the request id from ctx.
func (l *Log) Record(ctx context.Context, e models.AuditEntry) {
	e.CreatedAt = l.now().UTC()
	if e.RequestID == "" {
		e.RequestID = ctxkeys.RequestIDFrom(ctx)
	}
	if e.Email != nil && *e.Email == "" {
		e.Email = nil
	}
	if err := l.repo.InsertAuditEntry(ctx, &e); err != nil {
		slog.Error("audit write failed",
			"action", e.Action,
			"status", e.Status,
			"account_id", e.AccountID,
			"error", err,
		)
	}
}

// Success records a successful action.
func (l *Log) Success(ctx context.Context, action, email, accountID, detail string) {
	l.Record(ctx, models.AuditEntry{
		Email:     &email,
		AccountID: accountID,
		Action:    action,
		Status:    models.StatusSuccess,
		Detail:    detail,
	})
}

// Failure records a failed action.
func (l *Log) Failure(ctx context.Context, action, email, accountID, detail string) {
	l.Record(ctx, models.AuditEntry{
		Email:     &email,
		AccountID: accountID,
		Action:    action,
		Status:    models.StatusFailed,
		Detail:    detail,
	})
}

// List returns matching entries, newest first.
func (l *Log) List(ctx context.Context, f Filter) ([]models.AuditEntry, error) {
	return l.repo.ListAuditEntries(ctx, f)
}
