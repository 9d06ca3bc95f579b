// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package provision resolves the chat roles, groups and channels a verified
// student needs and assigns them. Every step looks up before it creates, so
// repeated or concurrent calls converge on one set of resources.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/chat"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/metrics"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"golang.org/x/sync/singleflight"
)

// Resource kinds used in logs and metrics.
const (
	KindRole    = "role"
	KindGroup   = "group"
	KindChannel = "channel"
	KindMember  = "membership"
)

// Resolver ensures chat resources exist.
type Resolver struct {
	gw           chat.Gateway
	metrics      *metrics.Metrics
	verifiedRole string
	flight       singleflight.Group
}

// Config holds optional resolver settings.
type Config struct {
	// VerifiedRole is granted to every verified student when set. It is
	// looked up by name and never created.
	VerifiedRole string
	Metrics      *metrics.Metrics
}

// NewResolver creates a resolver on top of gw.
func NewResolver(gw chat.Gateway, cfg Config) *Resolver {
	return &Resolver{
		gw:           gw,
		metrics:      cfg.Metrics,
		verifiedRole: cfg.VerifiedRole,
	}
}

// CourseResources is the result of EnsureCourseGrant. Grant and Group are
// nil when they could not be resolved; Failures describes each failed step.
type CourseResources struct {
	Grant    *chat.Role
	Group    *chat.Group
	Failures []string
}

// Outcome is the result of Provision.
type Outcome struct {
	Granted  []string
	Problems []string
}

// Partial reports whether any step failed.
func (o Outcome) Partial() bool {
	return len(o.Problems) > 0
}

// EnsureCourseGrant resolves the course role, its group and the two course
// channels. An empty course yields an empty result.
func (r *Resolver) EnsureCourseGrant(ctx context.Context, university, course string) CourseResources {
	var res CourseResources
	if course == "" {
		return res
	}
	what := label(university, course)

	role, err := r.ensureRole(ctx, chat.RoleSpec{
		Name:        CourseGrantName(university, course),
		Mentionable: true,
		Reason:      "Auto-created for " + what,
	})
	if err != nil {
		res.Failures = append(res.Failures, r.failure(KindRole, CourseGrantName(university, course), err))
		return res
	}
	res.Grant = role

	group, err := r.ensureGroup(ctx, chat.GroupSpec{
		Name: GroupName(university, course),
		Overwrites: []chat.Overwrite{
			{Target: chat.TargetEveryone, Deny: chat.PermView},
			{Target: chat.TargetRole, RoleID: role.ID, Allow: chat.PermView},
			{Target: chat.TargetSelf, Allow: chat.PermView | chat.PermManage},
		},
		Reason: "Auto-created for " + what,
	})
	if err != nil {
		res.Failures = append(res.Failures, r.failure(KindGroup, GroupName(university, course), err))
		return res
	}
	res.Group = group

	channels := []chat.ChannelSpec{
		{
			Name:    AnnouncementChannelName(university, course),
			GroupID: group.ID,
			Topic:   "Official announcements for " + what + ". Only admins can post.",
			Overwrites: []chat.Overwrite{
				{Target: chat.TargetEveryone, Deny: chat.PermView},
				{Target: chat.TargetRole, RoleID: role.ID, Allow: chat.PermView, Deny: chat.PermSend},
				{Target: chat.TargetSelf, Allow: chat.PermView | chat.PermSend},
			},
		},
		{
			Name:    DiscussionChannelName(university, course),
			GroupID: group.ID,
			Topic:   "Discussion forum for all " + what + " students",
			Overwrites: []chat.Overwrite{
				{Target: chat.TargetEveryone, Deny: chat.PermView},
				{Target: chat.TargetRole, RoleID: role.ID, Allow: chat.PermView | chat.PermSend},
				{Target: chat.TargetSelf, Allow: chat.PermView | chat.PermSend},
			},
		},
	}
	for _, spec := range channels {
		if _, err := r.ensureChannel(ctx, spec, group.ID); err != nil {
			res.Failures = append(res.Failures, r.failure(KindChannel, spec.Name, err))
		}
	}
	return res
}

// EnsureBatchGrant resolves the batch role and, when group is known, the
// batch's private channel inside it. It returns nil for an empty batch or
// when the role cannot be resolved.
func (r *Resolver) EnsureBatchGrant(ctx context.Context, university, course, batch string, group *chat.Group) *chat.Role {
	role, _ := r.ensureBatch(ctx, university, course, batch, group)
	return role
}

func (r *Resolver) ensureBatch(ctx context.Context, university, course, batch string, group *chat.Group) (*chat.Role, []string) {
	if batch == "" {
		return nil, nil
	}
	what := label(university, batch)

	role, err := r.ensureRole(ctx, chat.RoleSpec{
		Name:        BatchGrantName(university, batch),
		Mentionable: true,
		Reason:      "Auto-created for batch " + what,
	})
	if err != nil {
		return nil, []string{r.failure(KindRole, BatchGrantName(university, batch), err)}
	}

	name := BatchChannelName(university, batch)
	if group == nil {
		slog.Warn("batch channel skipped without group", "channel", name, "course", course)
		return role, nil
	}
	_, err = r.ensureChannel(ctx, chat.ChannelSpec{
		Name:    name,
		GroupID: group.ID,
		Topic:   "Private channel for " + what + " batch only",
		Overwrites: []chat.Overwrite{
			{Target: chat.TargetEveryone, Deny: chat.PermView},
			{Target: chat.TargetRole, RoleID: role.ID, Allow: chat.PermView | chat.PermSend},
			{Target: chat.TargetSelf, Allow: chat.PermView | chat.PermSend},
		},
	}, "")
	if err != nil {
		return role, []string{r.failure(KindChannel, name, err)}
	}
	return role, nil
}

// Provision resolves the student's grants and assigns them to the account.
// Failures never abort the call; they are reported in Outcome.Problems.
func (r *Resolver) Provision(ctx context.Context, accountID string, student *models.Student) Outcome {
	var (
		out   Outcome
		roles []chat.Role
	)

	if r.verifiedRole != "" {
		role, err := r.gw.FindRoleByName(ctx, r.verifiedRole)
		switch {
		case err != nil:
			out.Problems = append(out.Problems, r.failure(KindRole, r.verifiedRole, err))
		case role == nil:
			slog.Warn("verified role not found", "role", r.verifiedRole)
			out.Problems = append(out.Problems, fmt.Sprintf("role %q not found", r.verifiedRole))
		default:
			roles = append(roles, *role)
		}
	}

	if student.Course == "" {
		slog.Warn("student has no course", "email", student.Email)
	} else {
		course := r.EnsureCourseGrant(ctx, student.University, student.Course)
		out.Problems = append(out.Problems, course.Failures...)
		if course.Grant != nil {
			roles = append(roles, *course.Grant)
		}

		batch, failures := r.ensureBatch(ctx, student.University, student.Course, student.Batch, course.Group)
		out.Problems = append(out.Problems, failures...)
		if batch != nil {
			roles = append(roles, *batch)
		}
	}

	if len(roles) == 0 {
		slog.Warn("no roles to assign", "account_id", accountID)
		return out
	}
	if err := r.gw.GrantMembership(ctx, accountID, roles...); err != nil {
		out.Problems = append(out.Problems, r.failure(KindMember, accountID, err))
		return out
	}
	for _, role := range roles {
		out.Granted = append(out.Granted, role.Name)
	}
	slog.Info("roles assigned", "account_id", accountID, "roles", out.Granted)
	return out
}

// Revoke removes the verified, course and batch roles of the student from
// the account. Roles that do not exist are skipped. It returns the names of
// the revoked roles.
func (r *Resolver) Revoke(ctx context.Context, accountID string, student *models.Student) ([]string, error) {
	var names []string
	if r.verifiedRole != "" {
		names = append(names, r.verifiedRole)
	}
	if student != nil && student.Course != "" {
		names = append(names, CourseGrantName(student.University, student.Course))
	}
	if student != nil && student.Batch != "" {
		names = append(names, BatchGrantName(student.University, student.Batch))
	}

	var roles []chat.Role
	for _, name := range names {
		role, err := r.gw.FindRoleByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("finding role %q: %w", name, err)
		}
		if role != nil {
			roles = append(roles, *role)
		}
	}
	if len(roles) == 0 {
		return nil, nil
	}
	if err := r.gw.RevokeMembership(ctx, accountID, roles...); err != nil {
		r.metrics.ResolveFailed(KindMember)
		return nil, fmt.Errorf("revoking roles: %w", err)
	}

	revoked := make([]string, len(roles))
	for i, role := range roles {
		revoked[i] = role.Name
	}
	return revoked, nil
}

func (r *Resolver) failure(kind, name string, err error) string {
	r.metrics.ResolveFailed(kind)
	return Problem(kind, name, err)
}

// Problem logs err and describes the failed step without its error text.
func Problem(kind, name string, err error) string {
	if errors.Is(err, chat.ErrForbidden) {
		slog.Error("missing permissions", "kind", kind, "name", name)
		return fmt.Sprintf("%s %q: missing permissions", kind, name)
	}
	slog.Error("resolving resource failed", "kind", kind, "name", name, "error", err)
	return fmt.Sprintf("%s %q: unavailable", kind, name)
}
