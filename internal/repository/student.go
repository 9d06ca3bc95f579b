// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
)

var (
	// ErrAccountBound is returned when the account is already bound to another student.
	ErrAccountBound = errors.New("account already bound to another student")
	// ErrEmailBound is returned when the student is already bound to another account.
	ErrEmailBound = errors.New("email already bound to another account")
)

const studentColumns = `id, email, name, university, course, batch, account_id, is_verified, verified_at, created_at`

// CreateStudent inserts a new student and sets its ID.
func (r *Repository) CreateStudent(ctx context.Context, s *models.Student) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO students (email, name, university, course, batch, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.Email, s.Name, s.University, s.Course, s.Batch, s.CreatedAt)
	if err != nil {
		return wrapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// GetStudentByEmail retrieves a student by email, ignoring case.
func (r *Repository) GetStudentByEmail(ctx context.Context, email string) (*models.Student, error) {
	var s models.Student
	err := r.q.GetContext(ctx, &s, `SELECT `+studentColumns+` FROM students WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// GetStudentByAccountID retrieves the student bound to the given account.
func (r *Repository) GetStudentByAccountID(ctx context.Context, accountID string) (*models.Student, error) {
	var s models.Student
	err := r.q.GetContext(ctx, &s, `SELECT `+studentColumns+` FROM students WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// EmailBound reports whether the student with the given email is bound to an account.
func (r *Repository) EmailBound(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.q.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM students WHERE email = ? AND account_id IS NOT NULL`, email)
	return count > 0, err
}

// AccountBound reports whether any student is bound to the given account.
func (r *Repository) AccountBound(ctx context.Context, accountID string) (bool, error) {
	var count int64
	err := r.q.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE account_id = ?`, accountID)
	return count > 0, err
}

// BindStudent binds the student with the given email to accountID and marks
// it verified. The account check and the update share one transaction.
// Binding a student to the account it is already bound to is a no-op.
func (r *Repository) BindStudent(ctx context.Context, email, accountID string, at time.Time) error {
	return r.WithTx(ctx, func(tx *Repository) error {
		current, err := tx.GetStudentByAccountID(ctx, accountID)
		switch {
		case err == nil && strings.EqualFold(current.Email, email):
			return nil
		case err == nil:
			return ErrAccountBound
		case !errors.Is(err, ErrNotFound):
			return err
		}

		res, err := tx.q.ExecContext(ctx,
			`UPDATE students SET account_id = ?, is_verified = 1, verified_at = ? WHERE email = ? AND account_id IS NULL`,
			accountID, at, email)
		if err != nil {
			if errors.Is(wrapError(err), ErrDuplicate) {
				return ErrAccountBound
			}
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}

		if _, err := tx.GetStudentByEmail(ctx, email); err != nil {
			return err
		}
		return ErrEmailBound
	})
}

// UnbindStudent clears the binding of the student bound to accountID and
// returns the number of students changed.
func (r *Repository) UnbindStudent(ctx context.Context, accountID string) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE students SET account_id = NULL, is_verified = 0, verified_at = NULL WHERE account_id = ?`,
		accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListStudents returns up to limit students, newest first. A limit of zero or
// less returns all students.
func (r *Repository) ListStudents(ctx context.Context, limit int) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	students := []models.Student{}
	if err := r.q.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	return students, nil
}

// ListVerifiedStudents returns all bound students, most recently verified first.
func (r *Repository) ListVerifiedStudents(ctx context.Context) ([]models.Student, error) {
	students := []models.Student{}
	err := r.q.SelectContext(ctx, &students,
		`SELECT `+studentColumns+` FROM students WHERE is_verified = 1 ORDER BY verified_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing verified students: %w", err)
	}
	return students, nil
}

// GetStats counts students by binding state and the stored OTP challenges.
func (r *Repository) GetStats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := r.q.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(is_verified), 0) AS verified,
			COUNT(*) - COALESCE(SUM(is_verified), 0) AS unverified,
			(SELECT COUNT(*) FROM otp_challenges) AS pending_otps
		FROM students`)
	if err != nil {
		return nil, fmt.Errorf("counting students: %w", err)
	}
	return &stats, nil
}
