// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OTPChallenge is a pending one-time code for a chat account.
type OTPChallenge struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	AccountID string    `db:"account_id" json:"account_id"`
	Email     string    `db:"email" json:"email"`
	CodeHash  string    `db:"code_hash" json:"-"` // bcrypt hash
	Attempts  int       `db:"attempts" json:"attempts"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the challenge expiry lies strictly before now.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
