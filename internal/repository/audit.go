// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
)

// AuditFilter narrows ListAuditEntries. Zero values match everything.
type AuditFilter struct {
	AccountID string
	Email     string
	Action    string
	Limit     int
}

// InsertAuditEntry appends an entry to the audit log and sets its ID.
func (r *Repository) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_log (email, account_id, action, status, detail, request_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Email, e.AccountID, e.Action, e.Status, e.Detail, e.RequestID, e.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListAuditEntries returns matching entries, newest first.
func (r *Repository) ListAuditEntries(ctx context.Context, f AuditFilter) ([]models.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Email != "" {
		where = append(where, "email = ? COLLATE NOCASE")
		args = append(args, f.Email)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}

	query := `SELECT id, email, account_id, action, status, detail, request_id, created_at FROM audit_log`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	entries := []models.AuditEntry{}
	if err := r.q.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}
