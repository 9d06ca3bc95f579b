// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/config"
	appmw "github.com/renukaprasadbs454/discord-edtech-bot/internal/middleware"
)

func setupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(appmw.RequestID())
	e.Use(appmw.RequestLogger())
	e.Use(middleware.Secure())
	if cfg.Server.MaxBodySize > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.Server.MaxBodySize)))
	}
	e.Use(appmw.Locale())
}
