// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models holds the typed records stored by the repository.
package models

import "time"

// Student is a pre-registered student that may be bound to one chat account.
type Student struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64      `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	Name       string     `db:"name" json:"name"`
	University string     `db:"university" json:"university"`
	Course     string     `db:"course" json:"course"`
	Batch      string     `db:"batch" json:"batch"`
	AccountID  *string    `db:"account_id" json:"account_id,omitempty"`
	Verified   bool       `db:"is_verified" json:"verified"`
	VerifiedAt *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// IsBoundTo reports whether the student is bound to the given account.
func (s *Student) IsBoundTo(accountID string) bool {
	return s.AccountID != nil && *s.AccountID == accountID
}

// DisplayName returns the student's name, or a generic greeting when none is stored.
func (s *Student) DisplayName() string {
	if s.Name == "" {
		return "Student"
	}
	return s.Name
}

// Stats summarizes the registry and ledger for admin reporting.
type Stats struct {
	Total       int64 `db:"total" json:"total"`
	Verified    int64 `db:"verified" json:"verified"`
	Unverified  int64 `db:"unverified" json:"unverified"`
	PendingOTPs int64 `db:"pending_otps" json:"pending_otps"`
}
