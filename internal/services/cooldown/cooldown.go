// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package cooldown tracks per-account waits between OTP dispatches.
package cooldown

import (
	"context"
	"sync"
	"time"
)

// Store records when an account may request another code.
type Store interface {
	// Remaining returns how long the account still has to wait, or zero.
	Remaining(ctx context.Context, accountID string) (time.Duration, error)
	// Start begins a cooldown of length d for the account.
	Start(ctx context.Context, accountID string, d time.Duration) error
	Close() error
}

// MemoryStore keeps cooldowns in process memory. They are lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

// NewMemoryStore creates an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		until: make(map[string]time.Time),
		now:   now,
	}
}

// Remaining implements Store.
func (s *MemoryStore) Remaining(_ context.Context, accountID string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.until[accountID]
	if !ok {
		return 0, nil
	}
	left := until.Sub(s.now())
	if left <= 0 {
		delete(s.until, accountID)
		return 0, nil
	}
	return left, nil
}

// Start implements Store.
func (s *MemoryStore) Start(_ context.Context, accountID string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, until := range s.until {
		if !until.After(now) {
			delete(s.until, id)
		}
	}
	s.until[accountID] = now.Add(d)
	return nil
}

// Len returns the number of tracked accounts, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.until)
}

// Close drops all cooldowns.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.until)
	return nil
}
