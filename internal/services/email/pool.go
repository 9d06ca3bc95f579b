// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"errors"
	"fmt"
)

// DefaultRotationThreshold is the number of sends before the pool moves on
// to the next sender.
const DefaultRotationThreshold = 1900

// Credential is an SMTP login that also serves as the From address.
type Credential struct {
	Address  string
	Password string
}

// SenderPool rotates through sender credentials by send count. It is not
// safe for concurrent use; the Dispatcher serializes access.
type SenderPool struct {
	credentials            []Credential
	currentIndex           int
	sendCountSinceRotation int
	threshold              int
}

// NewSenderPool builds a pool from parallel address and password lists.
func NewSenderPool(addresses, passwords []string, threshold int) (*SenderPool, error) {
	if len(addresses) == 0 {
		return nil, errors.New("sender pool needs at least one address")
	}
	if len(addresses) != len(passwords) {
		return nil, fmt.Errorf("sender pool has %d addresses but %d passwords", len(addresses), len(passwords))
	}
	if threshold <= 0 {
		threshold = DefaultRotationThreshold
	}

	creds := make([]Credential, len(addresses))
	for i := range addresses {
		creds[i] = Credential{Address: addresses[i], Password: passwords[i]}
	}
	return &SenderPool{credentials: creds, threshold: threshold}, nil
}

// Current returns the active sender.
func (p *SenderPool) Current() Credential {
	return p.credentials[p.currentIndex]
}

// CurrentIndex returns the position of the active sender.
func (p *SenderPool) CurrentIndex() int {
	return p.currentIndex
}

// SendCount returns the sends recorded for the active sender.
func (p *SenderPool) SendCount() int {
	return p.sendCountSinceRotation
}

// Len returns the number of senders.
func (p *SenderPool) Len() int {
	return len(p.credentials)
}

// RecordSend counts one successful send for the active sender.
func (p *SenderPool) RecordSend() {
	p.sendCountSinceRotation++
}

// RotateIfNeeded moves to the next sender, wrapping around, once the active
// sender reached the threshold. It reports whether it rotated.
func (p *SenderPool) RotateIfNeeded() bool {
	if p.sendCountSinceRotation < p.threshold {
		return false
	}
	p.currentIndex = (p.currentIndex + 1) % len(p.credentials)
	p.sendCountSinceRotation = 0
	return true
}
