// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification

import (
	"math"
	"time"
)

// State is the verification state of an account.
type State string

// Account states.
const (
	StateUnverified State = "UNVERIFIED"
	StateOTPIssued  State = "OTP_ISSUED"
	StateVerified   State = "VERIFIED"
)

// Category is the error taxonomy written to the audit log for failures.
type Category string

// Error categories.
const (
	CategoryNone             Category = ""
	CategoryValidation       Category = "VALIDATION"
	CategoryNotFound         Category = "NOT_FOUND"
	CategoryConflict         Category = "CONFLICT"
	CategoryExpired          Category = "EXPIRED"
	CategoryRateLimited      Category = "RATE_LIMITED"
	CategoryAttemptsExceeded Category = "ATTEMPTS_EXCEEDED"
	CategoryTransport        Category = "TRANSPORT_FAILURE"
	CategoryStorage          Category = "STORAGE_FAILURE"
)

// Code identifies a terminal outcome.
type Code string

// Success codes.
const (
	CodeOTPSent         Code = "OTP_SENT"
	CodeVerified        Code = "VERIFIED"
	CodeAlreadyVerified Code = "ALREADY_VERIFIED"
	CodeForceVerified   Code = "FORCE_VERIFIED"
	CodeUnverified      Code = "UNVERIFIED"
	CodeStudentAdded    Code = "STUDENT_ADDED"
)

// Failure codes.
const (
	CodeAccountRequired    Code = "ACCOUNT_REQUIRED"
	CodeEmailRequired      Code = "EMAIL_REQUIRED"
	CodeCodeRequired       Code = "CODE_REQUIRED"
	CodeWrongCode          Code = "WRONG_CODE"
	CodeEmailNotFound      Code = "EMAIL_NOT_FOUND"
	CodeOTPNotFound        Code = "OTP_NOT_FOUND"
	CodeNoPending          Code = "NO_PENDING_VERIFICATION"
	CodeNotBound           Code = "NOT_BOUND"
	CodeEmailAlreadyLinked Code = "EMAIL_ALREADY_LINKED"
	CodeBindConflict       Code = "BIND_CONFLICT"
	CodeStudentExists      Code = "STUDENT_EXISTS"
	CodeOTPExpired         Code = "OTP_EXPIRED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeTooManyAttempts    Code = "TOO_MANY_ATTEMPTS"
	CodeMailFailed         Code = "MAIL_FAILED"
	CodeStorageFailure     Code = "STORAGE_FAILURE"
)

var categories = map[Code]Category{
	CodeAccountRequired:    CategoryValidation,
	CodeEmailRequired:      CategoryValidation,
	CodeCodeRequired:       CategoryValidation,
	CodeWrongCode:          CategoryValidation,
	CodeEmailNotFound:      CategoryNotFound,
	CodeOTPNotFound:        CategoryNotFound,
	CodeNoPending:          CategoryNotFound,
	CodeNotBound:           CategoryNotFound,
	CodeEmailAlreadyLinked: CategoryConflict,
	CodeBindConflict:       CategoryConflict,
	CodeStudentExists:      CategoryConflict,
	CodeOTPExpired:         CategoryExpired,
	CodeRateLimited:        CategoryRateLimited,
	CodeTooManyAttempts:    CategoryAttemptsExceeded,
	CodeMailFailed:         CategoryTransport,
	CodeStorageFailure:     CategoryStorage,
}

// Category returns the error category of c, or CategoryNone for success codes.
func (c Code) Category() Category {
	return categories[c]
}

// Outcome is the single result of a state machine operation.
type Outcome struct {
	State             State         `json:"state"`
	Code              Code          `json:"code"`
	Category          Category      `json:"category,omitempty"`
	Message           string        `json:"message"`
	Email             string        `json:"email,omitempty"`
	RetryAfter        time.Duration `json:"-"`
	RetryAfterSeconds int           `json:"retry_after_seconds,omitempty"`
	AttemptsRemaining *int          `json:"attempts_remaining,omitempty"`
	Grants            []string      `json:"grants,omitempty"`
	Problems          []string      `json:"problems,omitempty"`
}

// Failed reports whether the outcome is an error.
func (o Outcome) Failed() bool {
	return o.Category != CategoryNone
}

// Partial reports a success with provisioning problems.
func (o Outcome) Partial() bool {
	return !o.Failed() && len(o.Problems) > 0
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
