// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package provision_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/chat"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/metrics"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCourseGrant_Idempotent(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})
	ctx := context.Background()

	first := r.EnsureCourseGrant(ctx, "VTU", "Android App Development")
	second := r.EnsureCourseGrant(ctx, "VTU", "Android App Development")

	require.NotNil(t, first.Grant)
	require.NotNil(t, first.Group)
	assert.Empty(t, first.Failures)
	assert.Equal(t, first.Grant.ID, second.Grant.ID)
	assert.Equal(t, first.Group.ID, second.Group.ID)

	assert.Equal(t, []string{"VTU-Android App Development Intern"}, gw.RoleNames())
	assert.Equal(t, []string{"VTU - Android App Development"}, gw.GroupNames())
	assert.Equal(t, []string{
		"announcements-vtu-android-app-development",
		"discussions-vtu-android-app-development",
	}, gw.ChannelNames())
}

func TestEnsureCourseGrant_EmptyCourse(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})

	res := r.EnsureCourseGrant(context.Background(), "VTU", "")

	assert.Nil(t, res.Grant)
	assert.Nil(t, res.Group)
	assert.Empty(t, gw.RoleNames())
}

func TestEnsureCourseGrant_ChannelPermissions(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})

	res := r.EnsureCourseGrant(context.Background(), "GTU", "Data")
	require.NotNil(t, res.Grant)

	roleRule := func(name string) chat.Overwrite {
		for _, o := range gw.ChannelOverwrites(name) {
			if o.Target == chat.TargetRole {
				return o
			}
		}
		t.Fatalf("no role overwrite on %s", name)
		return chat.Overwrite{}
	}

	announce := roleRule("announcements-gtu-data")
	assert.Equal(t, res.Grant.ID, announce.RoleID)
	assert.True(t, announce.Allow.Has(chat.PermView))
	assert.True(t, announce.Deny.Has(chat.PermSend))

	discuss := roleRule("discussions-gtu-data")
	assert.True(t, discuss.Allow.Has(chat.PermView|chat.PermSend))
	assert.Zero(t, discuss.Deny)
}

func TestEnsureCourseGrant_ConvergesAfterPartialFailure(t *testing.T) {
	gw := chat.NewMemoryGateway()
	gw.Deny(chat.OpCreateChannel)
	r := provision.NewResolver(gw, provision.Config{})
	ctx := context.Background()

	partial := r.EnsureCourseGrant(ctx, "GTU", "Data")
	assert.NotNil(t, partial.Grant)
	assert.NotNil(t, partial.Group)
	assert.Len(t, partial.Failures, 2)
	assert.Empty(t, gw.ChannelNames())

	gw.Allow(chat.OpCreateChannel)
	full := r.EnsureCourseGrant(ctx, "GTU", "Data")
	assert.Empty(t, full.Failures)
	assert.Equal(t, partial.Grant.ID, full.Grant.ID)
	assert.Len(t, gw.RoleNames(), 1)
	assert.Len(t, gw.GroupNames(), 1)
	assert.Len(t, gw.ChannelNames(), 2)
}

func TestEnsureCourseGrant_GroupForbidden(t *testing.T) {
	gw := chat.NewMemoryGateway()
	gw.Deny(chat.OpCreateGroup)
	r := provision.NewResolver(gw, provision.Config{})

	res := r.EnsureCourseGrant(context.Background(), "GTU", "Data")

	assert.NotNil(t, res.Grant)
	assert.Nil(t, res.Group)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0], "missing permissions")
}

func TestEnsureCourseGrant_RoleForbidden(t *testing.T) {
	gw := chat.NewMemoryGateway()
	gw.Deny(chat.OpCreateRole)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := provision.NewResolver(gw, provision.Config{Metrics: m})

	res := r.EnsureCourseGrant(context.Background(), "GTU", "Data")

	assert.Nil(t, res.Grant)
	assert.Nil(t, res.Group)
	assert.Len(t, res.Failures, 1)
	assert.Empty(t, gw.GroupNames())
	assert.InDelta(t, 1, testutil.ToFloat64(m.ResolveFailures.WithLabelValues(provision.KindRole)), 0)
}

func TestEnsureCourseGrant_Concurrent(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.EnsureCourseGrant(context.Background(), "GTU", "Data")
		}()
	}
	wg.Wait()

	assert.Len(t, gw.RoleNames(), 1)
	assert.Len(t, gw.GroupNames(), 1)
	assert.Len(t, gw.ChannelNames(), 2)
}

// racingGateway hides a role from the first lookup, as if another process
// created it between lookup and create.
type racingGateway struct {
	*chat.MemoryGateway
	mu     sync.Mutex
	hidden bool
}

func (g *racingGateway) FindRoleByName(ctx context.Context, name string) (*chat.Role, error) {
	g.mu.Lock()
	hide := !g.hidden
	g.hidden = true
	g.mu.Unlock()
	if hide {
		return nil, nil
	}
	return g.MemoryGateway.FindRoleByName(ctx, name)
}

func TestEnsureCourseGrant_AlreadyExistsIsLookup(t *testing.T) {
	mem := chat.NewMemoryGateway()
	mem.UniqueNames = true
	existing, err := mem.CreateRole(context.Background(), chat.RoleSpec{Name: "GTU-Data Intern"})
	require.NoError(t, err)
	r := provision.NewResolver(&racingGateway{MemoryGateway: mem}, provision.Config{})

	res := r.EnsureCourseGrant(context.Background(), "GTU", "Data")

	require.NotNil(t, res.Grant)
	assert.Equal(t, existing.ID, res.Grant.ID)
	assert.Empty(t, res.Failures)
	assert.Len(t, mem.RoleNames(), 1)
}

// unreachableGateway fails role creation with a transport error.
type unreachableGateway struct {
	*chat.MemoryGateway
}

func (g *unreachableGateway) CreateRole(context.Context, chat.RoleSpec) (*chat.Role, error) {
	return nil, errors.New("POST /roles: dial tcp 10.0.0.5:8080: connect: connection refused")
}

func TestProvision_ProblemsHideErrorText(t *testing.T) {
	r := provision.NewResolver(&unreachableGateway{MemoryGateway: chat.NewMemoryGateway()}, provision.Config{})

	out := r.Provision(context.Background(), "1", &models.Student{University: "GTU", Course: "Data", Batch: "B1"})

	require.NotEmpty(t, out.Problems)
	assert.Contains(t, out.Problems, `role "GTU-Data Intern": unavailable`)
	for _, p := range out.Problems {
		assert.NotContains(t, p, "dial tcp")
		assert.NotContains(t, p, "10.0.0.5")
	}
}

// cancelAwareGateway fails every create when its context is done.
type cancelAwareGateway struct {
	*chat.MemoryGateway
}

func (g *cancelAwareGateway) CreateRole(ctx context.Context, spec chat.RoleSpec) (*chat.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.MemoryGateway.CreateRole(ctx, spec)
}

func TestEnsureCourseGrant_IgnoresCallerCancellation(t *testing.T) {
	mem := chat.NewMemoryGateway()
	r := provision.NewResolver(&cancelAwareGateway{MemoryGateway: mem}, provision.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.EnsureCourseGrant(ctx, "GTU", "Data")

	require.NotNil(t, res.Grant)
	assert.Equal(t, []string{"GTU-Data Intern"}, mem.RoleNames())
}

func TestEnsureBatchGrant(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})
	ctx := context.Background()

	course := r.EnsureCourseGrant(ctx, "VTU", "Android App Development")
	role := r.EnsureBatchGrant(ctx, "VTU", "Android App Development", "Nomads", course.Group)
	again := r.EnsureBatchGrant(ctx, "VTU", "Android App Development", "Nomads", course.Group)

	require.NotNil(t, role)
	assert.Equal(t, "VTU-Nomads", role.Name)
	assert.Equal(t, role.ID, again.ID)
	assert.Equal(t, 1, countOf(gw.ChannelNames(), "vtu-nomads-official"))

	assert.Nil(t, r.EnsureBatchGrant(ctx, "VTU", "Android App Development", "", course.Group))
}

func TestEnsureBatchGrant_NoGroup(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})

	role := r.EnsureBatchGrant(context.Background(), "", "Data", "B1", nil)

	require.NotNil(t, role)
	assert.Equal(t, "B1", role.Name)
	assert.Empty(t, gw.ChannelNames())
}

func TestEnsureBatchGrant_Forbidden(t *testing.T) {
	gw := chat.NewMemoryGateway()
	gw.Deny(chat.OpCreateRole)
	r := provision.NewResolver(gw, provision.Config{})

	assert.Nil(t, r.EnsureBatchGrant(context.Background(), "GTU", "Data", "B1", nil))
}

func TestProvision(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})
	student := &models.Student{Email: "a@x.com", University: "GTU", Course: "Data", Batch: "B1"}

	out := r.Provision(context.Background(), "1", student)

	assert.Equal(t, []string{"GTU-Data Intern", "GTU-B1"}, out.Granted)
	assert.False(t, out.Partial())
	assert.ElementsMatch(t, []string{"GTU-Data Intern", "GTU-B1"}, gw.MemberRoles("1"))
	assert.Contains(t, gw.ChannelNames(), "gtu-b1-official")
}

func TestProvision_VerifiedRole(t *testing.T) {
	gw := chat.NewMemoryGateway()
	_, err := gw.CreateRole(context.Background(), chat.RoleSpec{Name: "Verified"})
	require.NoError(t, err)
	r := provision.NewResolver(gw, provision.Config{VerifiedRole: "Verified"})

	out := r.Provision(context.Background(), "1", &models.Student{Course: "Data"})

	assert.Equal(t, []string{"Verified", "Data Intern"}, out.Granted)
}

func TestProvision_MissingVerifiedRole(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{VerifiedRole: "Verified"})

	out := r.Provision(context.Background(), "1", &models.Student{Course: "Data"})

	assert.Equal(t, []string{"Data Intern"}, out.Granted)
	assert.True(t, out.Partial())
	assert.NotContains(t, gw.RoleNames(), "Verified")
}

func TestProvision_GrantForbidden(t *testing.T) {
	gw := chat.NewMemoryGateway()
	gw.Deny(chat.OpGrant)
	r := provision.NewResolver(gw, provision.Config{})

	out := r.Provision(context.Background(), "1", &models.Student{University: "GTU", Course: "Data", Batch: "B1"})

	assert.Empty(t, out.Granted)
	assert.True(t, out.Partial())
	assert.Len(t, gw.RoleNames(), 2, "resources are still created")
}

func TestProvision_NoCourse(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})

	out := r.Provision(context.Background(), "1", &models.Student{Email: "a@x.com"})

	assert.Empty(t, out.Granted)
	assert.False(t, out.Partial())
}

func TestRevoke(t *testing.T) {
	gw := chat.NewMemoryGateway()
	r := provision.NewResolver(gw, provision.Config{})
	ctx := context.Background()
	student := &models.Student{University: "GTU", Course: "Data", Batch: "B1"}
	r.Provision(ctx, "1", student)

	revoked, err := r.Revoke(ctx, "1", student)

	require.NoError(t, err)
	assert.Equal(t, []string{"GTU-Data Intern", "GTU-B1"}, revoked)
	assert.Empty(t, gw.MemberRoles("1"))
}

func TestRevoke_UnknownRoles(t *testing.T) {
	r := provision.NewResolver(chat.NewMemoryGateway(), provision.Config{})

	revoked, err := r.Revoke(context.Background(), "1", &models.Student{Course: "Nope"})

	require.NoError(t, err)
	assert.Empty(t, revoked)
}

func countOf(names []string, name string) int {
	n := 0
	for _, v := range names {
		if v == name {
			n++
		}
	}
	return n
}
