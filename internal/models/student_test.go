// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestStudent_IsBoundTo(t *testing.T) {
	acct := "42"
	bound := &models.Student{AccountID: &acct, Verified: true}
	unbound := &models.Student{}

	assert.True(t, bound.IsBoundTo("42"))
	assert.False(t, bound.IsBoundTo("43"))
	assert.False(t, unbound.IsBoundTo("42"))
}

func TestStudent_DisplayName(t *testing.T) {
	assert.Equal(t, "Asha", (&models.Student{Name: "Asha"}).DisplayName())
	assert.Equal(t, "Student", (&models.Student{}).DisplayName())
}

func TestOTPChallenge_Expired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ch := &models.OTPChallenge{ExpiresAt: now}

	assert.False(t, ch.Expired(now), "expiry equal to now is still valid")
	assert.True(t, ch.Expired(now.Add(time.Nanosecond)))
	assert.False(t, ch.Expired(now.Add(-time.Minute)))
}
