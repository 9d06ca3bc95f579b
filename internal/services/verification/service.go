// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification is the verification state machine. It moves an
// account from unverified through an issued OTP to verified, and back via
// admin unverify. Every operation ends in exactly one Outcome with a
// localized message and one audit entry.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/i18n"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/metrics"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/audit"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/cooldown"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/email"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/otp"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/provision"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/registry"
)

// DefaultCooldown is the wait between two OTP dispatches for one account.
const DefaultCooldown = 60 * time.Second

// Operation names used in metrics.
const (
	OpRequest     = "request"
	OpSubmit      = "submit"
	OpReverify    = "reverify"
	OpForceVerify = "force_verify"
	OpUnverify    = "unverify"
	OpAddStudent  = "add_student"
)

// Mailer delivers a message and reports success.
type Mailer interface {
	Send(ctx context.Context, msg email.Message) bool
}

// Publisher receives verification events. Delivery is best effort.
type Publisher interface {
	Publish(event, accountID string, payload any) error
}

// Config holds the optional collaborators and settings of a Service.
type Config struct {
	Cooldown time.Duration
	// Cooldowns defaults to a MemoryStore owned by the service.
	Cooldowns cooldown.Store
	Events    Publisher
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Service runs the verification state machine.
type Service struct {
	registry  *registry.Registry
	ledger    *otp.Ledger
	resolver  *provision.Resolver
	mailer    Mailer
	audit     *audit.Log
	cooldowns cooldown.Store
	cooldown  time.Duration
	events    Publisher
	metrics   *metrics.Metrics
}

// New creates a service. Close releases its cooldown store.
func New(reg *registry.Registry, ledger *otp.Ledger, resolver *provision.Resolver, mailer Mailer, log *audit.Log, cfg Config) *Service {
	s := &Service{
		registry:  reg,
		ledger:    ledger,
		resolver:  resolver,
		mailer:    mailer,
		audit:     log,
		cooldowns: cfg.Cooldowns,
		cooldown:  cfg.Cooldown,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
	}
	if s.cooldown <= 0 {
		s.cooldown = DefaultCooldown
	}
	if s.cooldowns == nil {
		s.cooldowns = cooldown.NewMemoryStore(cfg.Now)
	}
	return s
}

// Close releases the cooldown store.
func (s *Service) Close() error {
	return s.cooldowns.Close()
}

// RequestVerification starts verification of accountID with a registered
// email and mails an OTP.
func (s *Service) RequestVerification(ctx context.Context, accountID, address string) Outcome {
	accountID = strings.TrimSpace(accountID)
	address = registry.NormalizeEmail(address)
	fail := func(code Code, o Outcome) Outcome {
		return s.fail(ctx, OpRequest, models.ActionVerifyRequest, address, accountID, code, o)
	}

	switch {
	case accountID == "":
		return fail(CodeAccountRequired, Outcome{})
	case address == "":
		return fail(CodeEmailRequired, Outcome{})
	}

	if left := s.remaining(ctx, accountID); left > 0 {
		return fail(CodeRateLimited, Outcome{RetryAfter: left})
	}

	if bound := s.registry.FindByAccountID(ctx, accountID); bound != nil && bound.Verified {
		out := s.succeed(ctx, OpRequest, CodeAlreadyVerified, Outcome{State: StateVerified, Email: bound.Email}, nil)
		s.audit.Success(ctx, models.ActionVerifyRequest, address, accountID, string(CodeAlreadyVerified))
		return out
	}

	student := s.registry.FindByEmail(ctx, address)
	if student == nil {
		return fail(CodeEmailNotFound, Outcome{})
	}
	if student.Verified && !student.IsBoundTo(accountID) {
		return fail(CodeEmailAlreadyLinked, Outcome{})
	}

	return s.issue(ctx, OpRequest, accountID, student, models.ActionOTPSent)
}

// SubmitOTP checks a code and, when valid, binds the account and provisions
// its grants. Provisioning problems do not undo the binding.
func (s *Service) SubmitOTP(ctx context.Context, accountID, code string) Outcome {
	accountID = strings.TrimSpace(accountID)
	code = otp.NormalizeCode(code)
	fail := func(address string, c Code, o Outcome) Outcome {
		return s.fail(ctx, OpSubmit, models.ActionOTPVerify, address, accountID, c, o)
	}

	switch {
	case accountID == "":
		return fail("", CodeAccountRequired, Outcome{})
	case code == "":
		return fail("", CodeCodeRequired, Outcome{})
	}

	res := s.ledger.Validate(ctx, accountID, code)
	s.metrics.OTPValidation(string(res.Kind))
	if !res.Valid {
		switch res.Kind {
		case otp.KindNotFound:
			return fail(res.Email, CodeOTPNotFound, Outcome{})
		case otp.KindExpired:
			return fail(res.Email, CodeOTPExpired, Outcome{})
		case otp.KindTooManyAttempts:
			return fail(res.Email, CodeTooManyAttempts, Outcome{})
		case otp.KindWrongCode:
			remaining := res.AttemptsRemaining
			return fail(res.Email, CodeWrongCode, Outcome{State: StateOTPIssued, AttemptsRemaining: &remaining})
		default:
			return fail(res.Email, CodeStorageFailure, Outcome{})
		}
	}

	if err := s.registry.Bind(ctx, res.Email, accountID); err != nil {
		return fail(res.Email, bindFailure(err), Outcome{})
	}

	student := s.registry.FindByEmail(ctx, res.Email)
	if student == nil {
		student = &models.Student{Email: res.Email}
	}
	prov := s.resolver.Provision(ctx, accountID, student)

	out := s.succeed(ctx, OpSubmit, CodeVerified, Outcome{
		State:    StateVerified,
		Email:    student.Email,
		Grants:   prov.Granted,
		Problems: prov.Problems,
	}, map[string]any{"Name": student.DisplayName()})
	s.audit.Success(ctx, models.ActionVerificationComplete, student.Email, accountID, completionDetail(student, prov))
	s.publish("verified", accountID, out)
	return out
}

// Reverify mails a fresh code for the account's pending, unexpired challenge.
func (s *Service) Reverify(ctx context.Context, accountID string) Outcome {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return s.fail(ctx, OpReverify, models.ActionReverify, "", accountID, CodeAccountRequired, Outcome{})
	}

	pending := s.ledger.Peek(ctx, accountID)
	if pending == nil || pending.Expired {
		return s.fail(ctx, OpReverify, models.ActionReverify, "", accountID, CodeNoPending, Outcome{})
	}
	if left := s.remaining(ctx, accountID); left > 0 {
		return s.fail(ctx, OpReverify, models.ActionReverify, pending.Email, accountID, CodeRateLimited, Outcome{RetryAfter: left})
	}

	student := s.registry.FindByEmail(ctx, pending.Email)
	if student == nil {
		student = &models.Student{Email: pending.Email}
	}
	return s.issue(ctx, OpReverify, accountID, student, models.ActionReverify)
}

// issue stores a new challenge, mails it and starts the cooldown. The
// cooldown only starts when the mail went out.
func (s *Service) issue(ctx context.Context, op, accountID string, student *models.Student, action string) Outcome {
	code, err := s.ledger.Issue(ctx, student.Email, accountID)
	if err != nil {
		return s.fail(ctx, op, action, student.Email, accountID, CodeStorageFailure, Outcome{})
	}

	msg, err := email.OTPMessage(ctx, student.Email, student.DisplayName(), code, s.ledger.TTL())
	if err != nil {
		slog.Error("building otp mail failed", "account_id", accountID, "error", err)
		return s.fail(ctx, op, action, student.Email, accountID, CodeMailFailed, Outcome{})
	}
	if !s.mailer.Send(ctx, msg) {
		return s.fail(ctx, op, action, student.Email, accountID, CodeMailFailed, Outcome{})
	}

	if err := s.cooldowns.Start(ctx, accountID, s.cooldown); err != nil {
		slog.Error("starting cooldown failed", "account_id", accountID, "error", err)
	}

	key := "outcome_otp_sent"
	if op == OpReverify {
		key = "outcome_reverify_sent"
	}
	out := Outcome{
		State:   StateOTPIssued,
		Code:    CodeOTPSent,
		Email:   student.Email,
		Message: i18n.TData(ctx, key, map[string]any{"Email": student.Email, "Minutes": int(s.ledger.TTL().Minutes())}),
	}
	s.metrics.Outcome(op, string(out.Code))
	s.audit.Success(ctx, action, student.Email, accountID, "")
	s.publish("otp_sent", accountID, out)
	return out
}

// remaining returns the account's cooldown. A failing store lets the
// request through.
func (s *Service) remaining(ctx context.Context, accountID string) time.Duration {
	left, err := s.cooldowns.Remaining(ctx, accountID)
	if err != nil {
		slog.Error("reading cooldown failed", "account_id", accountID, "error", err)
		return 0
	}
	return left
}

func bindFailure(err error) Code {
	if errors.Is(err, registry.ErrConflict) {
		return CodeBindConflict
	}
	return CodeStorageFailure
}

// fail completes o as a failure, records it and returns it.
func (s *Service) fail(ctx context.Context, op, action, address, accountID string, code Code, o Outcome) Outcome {
	o.Code = code
	o.Category = code.Category()
	if o.State == "" {
		o.State = StateUnverified
	}
	if o.RetryAfter > 0 {
		o.RetryAfterSeconds = seconds(o.RetryAfter)
	}
	o.Message = message(ctx, o)

	s.metrics.Outcome(op, string(code))
	s.audit.Failure(ctx, action, address, accountID, string(o.Category))
	slog.Info("verification_rejected", "operation", op, "account_id", accountID, "code", string(code))
	return o
}

// succeed completes o as a success. The caller writes the audit entry.
func (s *Service) succeed(ctx context.Context, op string, code Code, o Outcome, data map[string]any) Outcome {
	o.Code = code
	key := successKeys[code]
	if code == CodeVerified && len(o.Problems) > 0 {
		key = "outcome_verified_partial"
	}
	o.Message = i18n.TData(ctx, key, data)
	s.metrics.Outcome(op, string(code))
	return o
}

func (s *Service) publish(event, accountID string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(event, accountID, payload); err != nil {
		slog.Warn("publishing event failed", "event", event, "error", err)
	}
}

var successKeys = map[Code]string{
	CodeVerified:        "outcome_verified",
	CodeAlreadyVerified: "outcome_already_verified",
	CodeForceVerified:   "outcome_force_verified",
	CodeUnverified:      "outcome_unverified",
	CodeStudentAdded:    "outcome_student_added",
}

var failureKeys = map[Code]string{
	CodeAccountRequired:    "outcome_account_required",
	CodeEmailRequired:      "outcome_email_required",
	CodeCodeRequired:       "outcome_code_required",
	CodeEmailNotFound:      "outcome_email_not_found",
	CodeOTPNotFound:        "outcome_otp_not_found",
	CodeNoPending:          "outcome_no_pending",
	CodeNotBound:           "outcome_not_bound",
	CodeEmailAlreadyLinked: "outcome_email_already_linked",
	CodeBindConflict:       "outcome_bind_conflict",
	CodeStudentExists:      "outcome_student_exists",
	CodeOTPExpired:         "outcome_otp_expired",
	CodeTooManyAttempts:    "outcome_otp_too_many_attempts",
	CodeMailFailed:         "outcome_mail_failed",
	CodeStorageFailure:     "outcome_storage_failure",
}

func message(ctx context.Context, o Outcome) string {
	switch o.Code {
	case CodeWrongCode:
		n := 0
		if o.AttemptsRemaining != nil {
			n = *o.AttemptsRemaining
		}
		return i18n.TPlural(ctx, "outcome_otp_wrong_code", n)
	case CodeRateLimited:
		return i18n.TData(ctx, "outcome_rate_limited", map[string]any{"Seconds": o.RetryAfterSeconds})
	}
	return i18n.T(ctx, failureKeys[o.Code])
}

func completionDetail(st *models.Student, prov provision.Outcome) string {
	problems := "none"
	if len(prov.Problems) > 0 {
		problems = strings.Join(prov.Problems, "; ")
	}
	return fmt.Sprintf("university=%s course=%s batch=%s roles=[%s] problems=%s",
		st.University, st.Course, st.Batch, strings.Join(prov.Granted, ", "), problems)
}
