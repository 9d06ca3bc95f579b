// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
)

const challengeColumns = `id, account_id, email, code_hash, attempts, expires_at, created_at`

// ReplaceOTPChallenge deletes every challenge for the same email or account
// and inserts ch in one transaction.
func (r *Repository) ReplaceOTPChallenge(ctx context.Context, ch *models.OTPChallenge) error {
	return r.WithTx(ctx, func(tx *Repository) error {
		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM otp_challenges WHERE email = ? OR account_id = ?`,
			ch.Email, ch.AccountID); err != nil {
			return err
		}

		res, err := tx.q.ExecContext(ctx,
			`INSERT INTO otp_challenges (account_id, email, code_hash, attempts, expires_at, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			ch.AccountID, ch.Email, ch.CodeHash, ch.Attempts, ch.ExpiresAt, ch.CreatedAt)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		ch.ID = id
		return nil
	})
}

// GetLatestOTPChallenge returns the newest challenge for the account.
func (r *Repository) GetLatestOTPChallenge(ctx context.Context, accountID string) (*models.OTPChallenge, error) {
	var ch models.OTPChallenge
	err := r.q.GetContext(ctx, &ch,
		`SELECT `+challengeColumns+` FROM otp_challenges WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		accountID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &ch, nil
}

// IncrementOTPAttempts adds one failed attempt to the challenge.
func (r *Repository) IncrementOTPAttempts(ctx context.Context, id int64) error {
	_, err := r.q.ExecContext(ctx, `UPDATE otp_challenges SET attempts = attempts + 1 WHERE id = ?`, id)
	return err
}

// DeleteOTPChallenges deletes all challenges for the account.
func (r *Repository) DeleteOTPChallenges(ctx context.Context, accountID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM otp_challenges WHERE account_id = ?`, accountID)
	return err
}

// DeleteExpiredOTPChallenges deletes challenges that expired before now and
// returns how many were removed.
func (r *Repository) DeleteExpiredOTPChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM otp_challenges WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
