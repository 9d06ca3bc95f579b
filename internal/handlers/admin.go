// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/models"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/audit"
	"github.com/samber/lo"
)

const (
	defaultStudentLimit = 50
	defaultAuditLimit   = 100
)

type studentRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Course     string `json:"course"`
	Batch      string `json:"batch"`
	University string `json:"university"`
}

type bulkStudentsRequest struct {
	Students []studentRequest `json:"students"`
}

type bulkStudentsResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Stats returns registry and ledger counters.
func (h *Handlers) Stats(c echo.Context) error {
	stats := h.registry.Stats(c.Request().Context())
	if stats == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "stats unavailable")
	}
	return c.JSON(http.StatusOK, stats)
}

// ListStudents lists students, or only bound ones with ?verified=true.
func (h *Handlers) ListStudents(c echo.Context) error {
	ctx := c.Request().Context()
	if c.QueryParam("verified") == "true" {
		return c.JSON(http.StatusOK, h.registry.ListVerified(ctx))
	}

	limit, err := queryInt(c, "limit", defaultStudentLimit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.registry.ListAll(ctx, limit))
}

// AddStudent registers a student.
func (h *Handlers) AddStudent(c echo.Context) error {
	var req studentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return respond(c, h.svc.AddStudent(c.Request().Context(),
		req.Email, req.Name, req.Course, req.Batch, req.University))
}

// AddStudents registers a batch of students in one transaction. Already
// registered emails are skipped.
func (h *Handlers) AddStudents(c echo.Context) error {
	var req bulkStudentsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Students) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "students is required")
	}

	ctx := c.Request().Context()
	students := lo.Map(req.Students, func(r studentRequest, _ int) models.Student {
		return models.Student{Email: r.Email, Name: r.Name, Course: r.Course, Batch: r.Batch, University: r.University}
	})
	added, skipped, err := h.registry.AddMany(ctx, students)
	if err != nil {
		h.audit.Failure(ctx, models.ActionAddStudents, "", "", fmt.Sprintf("count=%d", len(students)))
		return echo.NewHTTPError(http.StatusInternalServerError, "student registry unavailable")
	}
	h.audit.Success(ctx, models.ActionAddStudents, "", "", fmt.Sprintf("added=%d skipped=%d", added, skipped))
	return c.JSON(http.StatusOK, bulkStudentsResponse{Added: added, Skipped: skipped})
}

// LookupStudent finds a student by ?email= or ?account_id=.
func (h *Handlers) LookupStudent(c echo.Context) error {
	ctx := c.Request().Context()

	var student *models.Student
	switch {
	case c.QueryParam("email") != "":
		student = h.registry.FindByEmail(ctx, c.QueryParam("email"))
	case c.QueryParam("account_id") != "":
		student = h.registry.FindByAccountID(ctx, c.QueryParam("account_id"))
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "email or account_id is required")
	}

	if student == nil {
		return echo.NewHTTPError(http.StatusNotFound, "student not found")
	}
	return c.JSON(http.StatusOK, student)
}

// ForceVerify binds an account to an email without a code.
func (h *Handlers) ForceVerify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return respond(c, h.svc.ForceVerify(c.Request().Context(), req.AccountID, req.Email))
}

// Unverify unbinds an account and revokes its grants.
func (h *Handlers) Unverify(c echo.Context) error {
	var req accountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return respond(c, h.svc.Unverify(c.Request().Context(), req.AccountID))
}

// Audit lists audit entries, newest first, filtered by query parameters.
func (h *Handlers) Audit(c echo.Context) error {
	limit, err := queryInt(c, "limit", defaultAuditLimit)
	if err != nil {
		return err
	}

	entries, err := h.audit.List(c.Request().Context(), audit.Filter{
		AccountID: c.QueryParam("account_id"),
		Email:     c.QueryParam("email"),
		Action:    c.QueryParam("action"),
		Limit:     limit,
	})
	if err != nil {
		slog.Error("listing audit entries failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "audit log unavailable")
	}
	return c.JSON(http.StatusOK, entries)
}
