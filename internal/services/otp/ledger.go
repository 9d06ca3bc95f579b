// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp is the OTP ledger: one live challenge per account with
// expiry and a bounded number of attempts.
package otp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/repository"
)

const (
	// DefaultTTL is how long an issued code stays valid.
	DefaultTTL = 5 * time.Minute
	// MaxAttempts is the number of wrong codes tolerated per challenge.
	MaxAttempts = 3
)

// ErrStorage is returned when the ledger could not read or write a challenge.
var ErrStorage = errors.New("otp storage failure")

// Kind classifies a failed validation.
type Kind string

// Validation failure kinds.
const (
	KindNone            Kind = ""
	KindNotFound        Kind = "NOT_FOUND"
	KindExpired         Kind = "EXPIRED"
	KindTooManyAttempts Kind = "TOO_MANY_ATTEMPTS"
	KindWrongCode       Kind = "WRONG_CODE"
	KindStorage         Kind = "STORAGE_FAILURE"
)

// Result is the outcome of Validate.
type Result struct {
	Valid bool
	Email string
	Kind  Kind
	// AttemptsRemaining is set for KindWrongCode.
	AttemptsRemaining int
}

// Pending describes a stored challenge without its code.
type Pending struct {
	Email     string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
	Expired   bool
}

// Config tunes the ledger. Zero values fall back to the defaults.
type Config struct {
	TTL    time.Duration
	Length int
	Now    func() time.Time
}

// Ledger issues and validates codes.
type Ledger struct {
	repo   *repository.Repository
	ttl    time.Duration
	length int
	now    func() time.Time
}

// NewLedger creates a ledger over the repository.
func NewLedger(repo *repository.Repository, cfg Config) *Ledger {
	l := &Ledger{repo: repo, ttl: cfg.TTL, length: cfg.Length, now: cfg.Now}
	if l.ttl <= 0 {
		l.ttl = DefaultTTL
	}
	if l.length <= 0 {
		l.length = DefaultLength
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// TTL returns the lifetime of issued codes.
func (l *Ledger) TTL() time.Duration {
	return l.ttl
}

// Issue creates a new code for the account and replaces any challenge held
// by the same email or the same account.
func (l *Ledger) Issue(ctx context.Context, email, accountID string) (string, error) {
	code, err := GenerateCode(l.length)
	if err != nil {
		slog.Error("generating otp failed", "account_id", accountID, "error", err)
		return "", ErrStorage
	}
	hash, err := hashCode(code)
	if err != nil {
		slog.Error("hashing otp failed", "account_id", accountID, "error", err)
		return "", ErrStorage
	}

	now := l.now().UTC()
	ch := &models.OTPChallenge{
		AccountID: accountID,
		Email:     email,
		CodeHash:  hash,
		ExpiresAt: now.Add(l.ttl),
		CreatedAt: now,
	}
	if err := l.repo.ReplaceOTPChallenge(ctx, ch); err != nil {
		slog.Error("storing otp failed", "account_id", accountID, "error", err)
		return "", ErrStorage
	}

	slog.Info("otp_issued", "account_id", accountID, "email", email, "expires_at", ch.ExpiresAt)
	return code, nil
}

// Validate checks code against the newest challenge of the account. The
// checks run in order and the first failing one decides the result: missing,
// expired, attempts used up, wrong code. Expired and exhausted challenges are
// deleted, a wrong code counts one attempt, a valid code consumes the challenge.
func (l *Ledger) Validate(ctx context.Context, accountID, code string) Result {
	code = NormalizeCode(code)
	now := l.now()

	var res Result
	err := l.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ch, err := tx.GetLatestOTPChallenge(ctx, accountID)
		if errors.Is(err, repository.ErrNotFound) {
			res = Result{Kind: KindNotFound}
			return nil
		}
		if err != nil {
			return err
		}

		switch {
		case ch.Expired(now):
			res = Result{Email: ch.Email, Kind: KindExpired}
			return tx.DeleteOTPChallenges(ctx, accountID)
		case ch.Attempts >= MaxAttempts:
			res = Result{Email: ch.Email, Kind: KindTooManyAttempts}
			return tx.DeleteOTPChallenges(ctx, accountID)
		case !codeMatches(ch.CodeHash, code):
			res = Result{
				Email:             ch.Email,
				Kind:              KindWrongCode,
				AttemptsRemaining: max(MaxAttempts-1-ch.Attempts, 0),
			}
			return tx.IncrementOTPAttempts(ctx, ch.ID)
		default:
			res = Result{Valid: true, Email: ch.Email}
			return tx.DeleteOTPChallenges(ctx, accountID)
		}
	})
	if err != nil {
		slog.Error("validating otp failed", "account_id", accountID, "error", err)
		return Result{Kind: KindStorage}
	}

	slog.Info("otp_validated", "account_id", accountID, "valid", res.Valid, "kind", string(res.Kind))
	return res
}

// Peek returns the account's newest challenge without changing it, or nil
// when there is none or it cannot be read.
func (l *Ledger) Peek(ctx context.Context, accountID string) *Pending {
	ch, err := l.repo.GetLatestOTPChallenge(ctx, accountID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("reading pending otp failed", "account_id", accountID, "error", err)
		}
		return nil
	}
	return &Pending{
		Email:     ch.Email,
		Attempts:  ch.Attempts,
		ExpiresAt: ch.ExpiresAt,
		CreatedAt: ch.CreatedAt,
		Expired:   ch.Expired(l.now()),
	}
}

// PurgeExpired deletes every expired challenge.
func (l *Ledger) PurgeExpired(ctx context.Context) (int64, error) {
	return l.repo.DeleteExpiredOTPChallenges(ctx, l.now().UTC())
}
