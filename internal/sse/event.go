// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package sse implements a best-effort Server-Sent Events feed.
package sse

import (
	"strconv"
	"strings"
)

// Event is one message of the text/event-stream format.
type Event struct {
	// ID is sent as the "id:" field when non-zero.
	ID   uint64
	Name string
	Data string
}

// String renders the event. Multiline data gets one "data:" field per line.
func (e Event) String() string {
	var sb strings.Builder

	if e.ID != 0 {
		sb.WriteString("id: ")
		sb.WriteString(strconv.FormatUint(e.ID, 10))
		sb.WriteByte('\n')
	}
	if e.Name != "" {
		sb.WriteString("event: ")
		sb.WriteString(e.Name)
		sb.WriteByte('\n')
	}
	for _, line := range strings.Split(e.Data, "\n") {
		sb.WriteString("data: ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	sb.WriteByte('\n')
	return sb.String()
}

// Heartbeat is an SSE comment that keeps the connection alive.
// Comments (lines starting with :) are ignored by SSE clients.
const Heartbeat = ": heartbeat\n\n"
