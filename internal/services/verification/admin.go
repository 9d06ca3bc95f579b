// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package verification

import (
	"context"
	"strings"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/provision"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/registry"
)

// ForceVerify binds accountID to a registered email without an OTP and
// provisions the student's grants.
func (s *Service) ForceVerify(ctx context.Context, accountID, address string) Outcome {
	accountID = strings.TrimSpace(accountID)
	address = registry.NormalizeEmail(address)
	fail := func(code Code) Outcome {
		return s.fail(ctx, OpForceVerify, models.ActionForceVerify, address, accountID, code, Outcome{})
	}

	switch {
	case accountID == "":
		return fail(CodeAccountRequired)
	case address == "":
		return fail(CodeEmailRequired)
	}

	student := s.registry.FindByEmail(ctx, address)
	switch {
	case student == nil:
		return fail(CodeEmailNotFound)
	case student.IsBoundTo(accountID):
		out := s.succeed(ctx, OpForceVerify, CodeAlreadyVerified, Outcome{State: StateVerified, Email: address}, nil)
		s.audit.Success(ctx, models.ActionForceVerify, address, accountID, string(CodeAlreadyVerified))
		return out
	case student.Verified:
		return fail(CodeEmailAlreadyLinked)
	}

	if err := s.registry.Bind(ctx, address, accountID); err != nil {
		return fail(bindFailure(err))
	}
	if bound := s.registry.FindByEmail(ctx, address); bound != nil {
		student = bound
	}

	prov := s.resolver.Provision(ctx, accountID, student)
	out := s.succeed(ctx, OpForceVerify, CodeForceVerified, Outcome{
		State:    StateVerified,
		Email:    address,
		Grants:   prov.Granted,
		Problems: prov.Problems,
	}, nil)
	s.audit.Success(ctx, models.ActionForceVerify, address, accountID, completionDetail(student, prov))
	s.publish("verified", accountID, out)
	return out
}

// Unverify clears the account's binding and revokes its grants. Failing to
// revoke grants is reported but does not restore the binding.
func (s *Service) Unverify(ctx context.Context, accountID string) Outcome {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return s.fail(ctx, OpUnverify, models.ActionUnverify, "", accountID, CodeAccountRequired, Outcome{})
	}

	student := s.registry.FindByAccountID(ctx, accountID)
	if student == nil {
		return s.fail(ctx, OpUnverify, models.ActionUnverify, "", accountID, CodeNotBound, Outcome{})
	}
	if !s.registry.Unbind(ctx, accountID) {
		return s.fail(ctx, OpUnverify, models.ActionUnverify, student.Email, accountID, CodeStorageFailure, Outcome{})
	}

	var problems []string
	revoked, err := s.resolver.Revoke(ctx, accountID, student)
	if err != nil {
		problems = append(problems, provision.Problem(provision.KindMember, accountID, err))
	}

	out := s.succeed(ctx, OpUnverify, CodeUnverified, Outcome{
		State:    StateUnverified,
		Email:    student.Email,
		Grants:   revoked,
		Problems: problems,
	}, nil)
	detail := "revoked=[" + strings.Join(revoked, ", ") + "]"
	if err != nil {
		detail += " problems=" + err.Error()
	}
	s.audit.Success(ctx, models.ActionUnverify, student.Email, accountID, detail)
	s.publish("unverified", accountID, out)
	return out
}

// AddStudent registers a new student.
func (s *Service) AddStudent(ctx context.Context, address, name, course, batch, university string) Outcome {
	address = registry.NormalizeEmail(address)
	if address == "" {
		return s.fail(ctx, OpAddStudent, models.ActionAddStudent, "", "", CodeEmailRequired, Outcome{})
	}

	if !s.registry.Add(ctx, address, name, course, batch, university) {
		code := CodeStorageFailure
		if s.registry.FindByEmail(ctx, address) != nil {
			code = CodeStudentExists
		}
		return s.fail(ctx, OpAddStudent, models.ActionAddStudent, address, "", code, Outcome{})
	}

	out := s.succeed(ctx, OpAddStudent, CodeStudentAdded, Outcome{State: StateUnverified, Email: address},
		map[string]any{"Email": address})
	s.audit.Success(ctx, models.ActionAddStudent, address, "", "course="+course+" batch="+batch+" university="+strings.ToUpper(university))
	return out
}
