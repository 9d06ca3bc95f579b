// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/sse"
)

// Events streams verification events. ?account_id= narrows the feed to
// one account.
func (h *Handlers) Events(c echo.Context) error {
	ctx := c.Request().Context()
	w := c.Response()

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	filter := c.QueryParam("account_id")
	ch := h.hub.Register(filter)
	defer h.hub.Unregister(filter, ch)

	if _, err := w.Write([]byte(sse.Event{Name: "connected", Data: "ok"}.String())); err != nil {
		return nil
	}
	w.Flush()

	// Heartbeat ticker to keep connection alive through proxies
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil
			}
			w.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
