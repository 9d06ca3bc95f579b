// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type verifyRequest struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

type otpRequest struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
}

type accountRequest struct {
	AccountID string `json:"account_id"`
}

// RequestVerification issues and mails a code for an email.
func (h *Handlers) RequestVerification(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return respond(c, h.svc.RequestVerification(c.Request().Context(), req.AccountID, req.Email))
}

// SubmitOTP checks a code and provisions access on success.
func (h *Handlers) SubmitOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return respond(c, h.svc.SubmitOTP(c.Request().Context(), req.AccountID, req.Code))
}

// Reverify re-sends a code for the pending verification of an account.
func (h *Handlers) Reverify(c echo.Context) error {
	var req accountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return respond(c, h.svc.Reverify(c.Request().Context(), req.AccountID))
}
