// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package registry is the student registry: lookups and account bindings
// with storage failures reduced to boolean or nil results. Bind and AddMany
// are the exceptions and return ErrUnavailable instead.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/repository"
)

var (
	// ErrConflict is returned by Bind when the email is unknown or either
	// side is already bound elsewhere.
	ErrConflict = errors.New("registry: binding conflict")
	// ErrUnavailable is returned by Bind and AddMany when storage failed.
	ErrUnavailable = errors.New("registry: storage unavailable")
)

// Registry wraps the student tables.
type Registry struct {
	repo *repository.Repository
	now  func() time.Time
}

// New creates a registry. now defaults to time.Now.
func New(repo *repository.Repository, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{repo: repo, now: now}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail returns the student with the given email, or nil.
func (r *Registry) FindByEmail(ctx context.Context, email string) *models.Student {
	s, err := r.repo.GetStudentByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("student lookup failed", "email", email, "error", err)
		}
		return nil
	}
	return s
}

// FindByAccountID returns the student bound to the account, or nil.
func (r *Registry) FindByAccountID(ctx context.Context, accountID string) *models.Student {
	s, err := r.repo.GetStudentByAccountID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("student lookup failed", "account_id", accountID, "error", err)
		}
		return nil
	}
	return s
}

// IsEmailBound reports whether the email is bound to any account.
func (r *Registry) IsEmailBound(ctx context.Context, email string) bool {
	bound, err := r.repo.EmailBound(ctx, NormalizeEmail(email))
	if err != nil {
		slog.Error("email binding check failed", "email", email, "error", err)
		return false
	}
	return bound
}

// IsAccountBound reports whether the account is bound to any student.
func (r *Registry) IsAccountBound(ctx context.Context, accountID string) bool {
	bound, err := r.repo.AccountBound(ctx, accountID)
	if err != nil {
		slog.Error("account binding check failed", "account_id", accountID, "error", err)
		return false
	}
	return bound
}

// Bind links the student with the given email to the account. It returns
// ErrConflict without changing anything when the email is unknown or the
// account or the email is already bound elsewhere, and ErrUnavailable when
// storage failed.
func (r *Registry) Bind(ctx context.Context, email, accountID string) error {
	err := r.repo.BindStudent(ctx, NormalizeEmail(email), accountID, r.now().UTC())
	switch {
	case err == nil:
		slog.Info("student_bound", "email", email, "account_id", accountID)
		return nil
	case errors.Is(err, repository.ErrAccountBound), errors.Is(err, repository.ErrEmailBound):
		slog.Warn("bind rejected", "email", email, "account_id", accountID, "reason", err)
		return ErrConflict
	case errors.Is(err, repository.ErrNotFound):
		slog.Warn("bind rejected", "email", email, "account_id", accountID, "reason", "unknown email")
		return ErrConflict
	default:
		slog.Error("bind failed", "email", email, "account_id", accountID, "error", err)
		return ErrUnavailable
	}
}

// Unbind clears the binding of the account. It reports success even when no
// student was bound.
func (r *Registry) Unbind(ctx context.Context, accountID string) bool {
	n, err := r.repo.UnbindStudent(ctx, accountID)
	if err != nil {
		slog.Error("unbind failed", "account_id", accountID, "error", err)
		return false
	}
	slog.Info("student_unbound", "account_id", accountID, "changed", n)
	return true
}

// Add registers a new unbound student. Email is lower-cased and the
// university code upper-cased. It returns false if the email exists.
func (r *Registry) Add(ctx context.Context, email, name, course, batch, university string) bool {
	s := newStudent(models.Student{Email: email, Name: name, Course: course, Batch: batch, University: university}, r.now())
	if s.Email == "" {
		return false
	}
	if err := r.repo.CreateStudent(ctx, &s); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			slog.Warn("student already registered", "email", s.Email)
		} else {
			slog.Error("adding student failed", "email", s.Email, "error", err)
		}
		return false
	}
	return true
}

// AddMany registers students in one transaction, normalized like Add.
// Students without an email or with an email already registered, earlier in
// the batch included, are skipped. A storage failure rolls the whole batch
// back and returns ErrUnavailable.
func (r *Registry) AddMany(ctx context.Context, students []models.Student) (added, skipped int, err error) {
	now := r.now()
	err = r.repo.WithTx(ctx, func(tx *repository.Repository) error {
		added, skipped = 0, 0
		for _, in := range students {
			s := newStudent(in, now)
			if s.Email == "" {
				skipped++
				continue
			}
			if err := tx.CreateStudent(ctx, &s); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					skipped++
					continue
				}
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		slog.Error("adding students failed", "count", len(students), "error", err)
		return 0, 0, ErrUnavailable
	}
	slog.Info("students_added", "added", added, "skipped", skipped)
	return added, skipped, nil
}

func newStudent(in models.Student, now time.Time) models.Student {
	return models.Student{
		Email:      NormalizeEmail(in.Email),
		Name:       strings.TrimSpace(in.Name),
		University: strings.ToUpper(strings.TrimSpace(in.University)),
		Course:     strings.TrimSpace(in.Course),
		Batch:      strings.TrimSpace(in.Batch),
		CreatedAt:  now.UTC(),
	}
}

// ListAll returns up to limit students, newest first.
func (r *Registry) ListAll(ctx context.Context, limit int) []models.Student {
	students, err := r.repo.ListStudents(ctx, limit)
	if err != nil {
		slog.Error("listing students failed", "error", err)
		return []models.Student{}
	}
	return students
}

// ListVerified returns every bound student.
func (r *Registry) ListVerified(ctx context.Context) []models.Student {
	students, err := r.repo.ListVerifiedStudents(ctx)
	if err != nil {
		slog.Error("listing verified students failed", "error", err)
		return []models.Student{}
	}
	return students
}

// Stats returns registry counters, or nil on storage failure.
func (r *Registry) Stats(ctx context.Context) *models.Stats {
	stats, err := r.repo.GetStats(ctx)
	if err != nil {
		slog.Error("loading stats failed", "error", err)
		return nil
	}
	return stats
}
