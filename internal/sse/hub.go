// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/samber/lo"
)

// All is the filter of subscribers that receive every event.
const All = ""

// Hub fans verification events out to connected subscribers. A subscriber
// either follows every account or a single one. Delivery is best effort:
// a subscriber whose buffer is full misses the event.
type Hub struct {
	clients map[string][]chan string
	mu      sync.RWMutex
	seq     atomic.Uint64
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string][]chan string),
	}
}

// Register adds a subscriber for the given account, or for all accounts
// when accountID is All. Returns the channel to receive events on.
func (h *Hub) Register(accountID string) chan string {
	ch := make(chan string, 16)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[accountID] = append(h.clients[accountID], ch)
	return ch
}

// Unregister removes and closes a subscriber channel.
func (h *Hub) Unregister(accountID string, ch chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[accountID] = lo.Without(h.clients[accountID], ch)
	if len(h.clients[accountID]) == 0 {
		delete(h.clients, accountID)
	}
	close(ch)
}

// Publish sends a named event with a JSON payload to the subscribers of
// accountID and to those following all accounts.
func (h *Hub) Publish(event, accountID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}
	msg := Event{ID: h.seq.Add(1), Name: event, Data: string(data)}.String()

	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := h.clients[All]
	if accountID != All {
		targets = append(append([]chan string(nil), targets...), h.clients[accountID]...)
	}
	for _, ch := range targets {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// ClientCount returns the total number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return lo.SumBy(lo.Values(h.clients), func(clients []chan string) int {
		return len(clients)
	})
}

// FilterCount returns the number of distinct filters in use.
func (h *Hub) FilterCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
