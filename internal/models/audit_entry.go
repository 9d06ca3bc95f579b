// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Audit actions.
const (
	ActionVerifyRequest        = "VERIFY_REQUEST"
	ActionOTPSent              = "OTP_SENT"
	ActionOTPVerify            = "OTP_VERIFY"
	ActionReverify             = "REVERIFY"
	ActionVerificationComplete = "VERIFICATION_COMPLETE"
	ActionForceVerify          = "FORCE_VERIFY"
	ActionUnverify             = "UNVERIFY"
	ActionAddStudent           = "ADD_STUDENT"
	ActionAddStudents          = "ADD_STUDENTS"
)

// Audit statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// AuditEntry is an immutable record of a verification or admin action.
type AuditEntry struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64     `db:"id" json:"id"`
	Email     *string   `db:"email" json:"email,omitempty"`
	AccountID string    `db:"account_id" json:"account_id"`
	Action    string    `db:"action" json:"action"`
	Status    string    `db:"status" json:"status"`
	Detail    string    `db:"detail" json:"detail"`
	RequestID string    `db:"request_id" json:"request_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
