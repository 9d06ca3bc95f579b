// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// NewLogger builds a logger writing to w. Format "json" selects slog's JSON
// handler, anything else tint's colored text output. Unknown levels mean info.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: "15:04:05.000"})
	}
	return slog.New(handler).With("service", "verifyd")
}

// setupLogger configures the global slog logger.
func setupLogger(level, format string) {
	slog.SetDefault(NewLogger(os.Stdout, level, format))
}
