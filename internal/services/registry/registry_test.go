// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package registry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/registry"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	return registry.New(repo, testutil.NewClock().Now)
}

func TestAdd_Normalizes(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	require.True(t, reg.Add(ctx, "  Asha@X.com ", "Asha", "Data", "B1", "gtu"))

	s := reg.FindByEmail(ctx, "asha@x.com")
	require.NotNil(t, s)
	assert.Equal(t, "asha@x.com", s.Email)
	assert.Equal(t, "GTU", s.University)
}

func TestAdd_DuplicateReturnsFalse(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()

	require.True(t, reg.Add(ctx, "a@x.com", "A", "Data", "B1", "GTU"))

	assert.False(t, reg.Add(ctx, "A@x.com", "A", "Data", "B1", "GTU"))
	assert.False(t, reg.Add(ctx, "  ", "A", "Data", "B1", "GTU"))
}

func TestFindByEmail_Missing(t *testing.T) {
	reg := newRegistry(t)

	assert.Nil(t, reg.FindByEmail(context.Background(), "nobody@x.com"))
	assert.Nil(t, reg.FindByAccountID(context.Background(), "1"))
}

func TestAddMany(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	require.True(t, reg.Add(ctx, "a@x.com", "A", "Data", "B1", "GTU"))

	added, skipped, err := reg.AddMany(ctx, []models.Student{
		{Email: "A@X.com", Name: "A again", Course: "Data"},
		{Email: " b@x.com ", Name: "B", Course: "Data", Batch: "B1", University: "gtu"},
		{Email: "c@x.com", Name: "C", Course: "Data"},
		{Email: "B@x.com", Name: "B twice", Course: "Data"},
		{Email: "  ", Name: "Nobody"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 3, skipped)
	b := reg.FindByEmail(ctx, "b@x.com")
	require.NotNil(t, b)
	assert.Equal(t, "GTU", b.University)
	assert.Equal(t, "B", b.Name)
	assert.Equal(t, "A", reg.FindByEmail(ctx, "a@x.com").Name)
	assert.Len(t, reg.ListAll(ctx, 10), 3)
}

func TestAddMany_StorageFailureRollsBack(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	reg := registry.New(repo, testutil.NewClock().Now)
	ctx := context.Background()
	_, err := db.Exec(`CREATE TRIGGER students_insert_fails BEFORE INSERT ON students
		WHEN NEW.email = 'c@x.com' BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	added, skipped, err := reg.AddMany(ctx, []models.Student{
		{Email: "a@x.com", Course: "Data"},
		{Email: "c@x.com", Course: "Data"},
	})

	assert.ErrorIs(t, err, registry.ErrUnavailable)
	assert.Zero(t, added)
	assert.Zero(t, skipped)
	assert.Nil(t, reg.FindByEmail(ctx, "a@x.com"))
}

func TestBind_Properties(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	require.True(t, reg.Add(ctx, "a@x.com", "A", "Data", "B1", "GTU"))
	require.True(t, reg.Add(ctx, "b@x.com", "B", "Data", "B1", "GTU"))

	require.NoError(t, reg.Bind(ctx, "A@X.COM", "1"))

	s := reg.FindByAccountID(ctx, "1")
	require.NotNil(t, s)
	assert.Equal(t, "a@x.com", s.Email)
	assert.True(t, s.Verified)
	assert.True(t, reg.IsEmailBound(ctx, "a@x.com"))
	assert.True(t, reg.IsAccountBound(ctx, "1"))

	assert.ErrorIs(t, reg.Bind(ctx, "a@x.com", "2"), registry.ErrConflict, "email held by account 1")
	assert.ErrorIs(t, reg.Bind(ctx, "b@x.com", "1"), registry.ErrConflict, "account 1 already bound")
	assert.False(t, reg.IsEmailBound(ctx, "b@x.com"))
	assert.ErrorIs(t, reg.Bind(ctx, "nobody@x.com", "3"), registry.ErrConflict)
}

func TestBind_StorageFailureIsNotConflict(t *testing.T) {
	db, repo := testutil.NewTestDB(t)
	reg := registry.New(repo, testutil.NewClock().Now)
	ctx := context.Background()
	require.True(t, reg.Add(ctx, "a@x.com", "A", "Data", "B1", "GTU"))
	_, err := db.Exec(`CREATE TRIGGER students_bind_fails BEFORE UPDATE OF account_id ON students
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	err = reg.Bind(ctx, "a@x.com", "1")

	assert.ErrorIs(t, err, registry.ErrUnavailable)
	assert.NotErrorIs(t, err, registry.ErrConflict)
}

func TestBind_ConcurrentSingleWinner(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	require.True(t, reg.Add(ctx, "a@x.com", "A", "Data", "B1", "GTU"))

	const n = 8
	results := make(chan bool, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- reg.Bind(ctx, "a@x.com", string(rune('1'+i))) == nil
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestUnbind(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	require.True(t, reg.Add(ctx, "a@x.com", "A", "Data", "B1", "GTU"))
	require.NoError(t, reg.Bind(ctx, "a@x.com", "1"))

	assert.True(t, reg.Unbind(ctx, "1"))

	assert.False(t, reg.IsAccountBound(ctx, "1"))
	assert.Nil(t, reg.FindByAccountID(ctx, "1"))
	assert.NoError(t, reg.Bind(ctx, "a@x.com", "2"), "email is free again")
	assert.True(t, reg.Unbind(ctx, "unknown"))
}

func TestListAllAndVerified(t *testing.T) {
	reg := newRegistry(t)
	ctx := context.Background()
	require.True(t, reg.Add(ctx, "a@x.com", "A", "Data", "B1", "GTU"))
	require.True(t, reg.Add(ctx, "b@x.com", "B", "Data", "B1", "GTU"))
	require.NoError(t, reg.Bind(ctx, "b@x.com", "2"))

	assert.Len(t, reg.ListAll(ctx, 10), 2)
	assert.Len(t, reg.ListAll(ctx, 1), 1)

	verified := reg.ListVerified(ctx)
	require.Len(t, verified, 1)
	assert.Equal(t, "b@x.com", verified[0].Email)

	stats := reg.Stats(ctx)
	require.NotNil(t, stats)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Verified)
}
