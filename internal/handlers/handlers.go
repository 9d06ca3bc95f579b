// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers holds the JSON endpoints used by the chat bot and by
// administrators.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/repository"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/audit"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/registry"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/verification"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/sse"
)

const defaultHeartbeat = 30 * time.Second

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo      *repository.Repository
	svc       *verification.Service
	registry  *registry.Registry
	audit     *audit.Log
	hub       *sse.Hub
	heartbeat time.Duration
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Repo     *repository.Repository
	Service  *verification.Service
	Registry *registry.Registry
	Audit    *audit.Log
	Hub      *sse.Hub
	// Heartbeat is the SSE keep-alive interval. Zero means 30 seconds.
	Heartbeat time.Duration
}

// New creates a new Handlers instance.
func New(d Deps) *Handlers {
	heartbeat := d.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &Handlers{
		repo:      d.Repo,
		svc:       d.Service,
		registry:  d.Registry,
		audit:     d.Audit,
		hub:       d.Hub,
		heartbeat: heartbeat,
	}
}

// Health reports whether the database answers.
func (h *Handlers) Health(c echo.Context) error {
	if h.repo != nil {
		if err := h.repo.DB().PingContext(c.Request().Context()); err != nil {
			slog.Error("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respond writes an outcome with the status code of its category.
func respond(c echo.Context, o verification.Outcome) error {
	if o.Category == verification.CategoryRateLimited && o.RetryAfterSeconds > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(o.RetryAfterSeconds))
	}
	return c.JSON(StatusFor(o), o)
}

// StatusFor maps an outcome to an HTTP status code.
func StatusFor(o verification.Outcome) int {
	switch o.Category {
	case verification.CategoryNone:
		if o.Code == verification.CodeStudentAdded {
			return http.StatusCreated
		}
		return http.StatusOK
	case verification.CategoryValidation:
		return http.StatusBadRequest
	case verification.CategoryNotFound:
		return http.StatusNotFound
	case verification.CategoryConflict:
		return http.StatusConflict
	case verification.CategoryExpired:
		return http.StatusGone
	case verification.CategoryRateLimited, verification.CategoryAttemptsExceeded:
		return http.StatusTooManyRequests
	case verification.CategoryTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}
