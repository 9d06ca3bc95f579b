// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/chat"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/config"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/database"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/handlers"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/i18n"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/metrics"
	appmw "github.com/renukaprasadbs454/discord-edtech-bot/internal/middleware"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/repository"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/audit"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/cooldown"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/email"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/otp"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/provision"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/registry"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/services/verification"
	"github.com/renukaprasadbs454/discord-edtech-bot/internal/sse"
	"github.com/vinovest/sqlx"
)

// App is the fully wired service behind an echo router.
type App struct {
	Echo    *echo.Echo
	Gateway chat.Gateway

	db      *sqlx.DB
	ledger  *otp.Ledger
	service *verification.Service
}

// New opens the database, builds every service from cfg and registers the
// routes. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if initErr := i18n.Init(); initErr != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to init i18n: %w", initErr)
	}

	repo := repository.New(db)

	promReg := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		promReg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(promReg)
	}

	cooldowns, err := newCooldownStore(ctx, cfg)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	dispatcher, err := newDispatcher(cfg, m)
	if err != nil {
		_ = cooldowns.Close()
		_ = database.Close(db)
		return nil, err
	}

	gateway := newGateway(cfg)
	reg := registry.New(repo, nil)
	ledger := otp.NewLedger(repo, otp.Config{
		TTL:    cfg.Verification.OTPTTL,
		Length: cfg.Verification.OTPLength,
	})
	resolver := provision.NewResolver(gateway, provision.Config{
		VerifiedRole: cfg.Verification.VerifiedRole,
		Metrics:      m,
	})
	log := audit.New(repo, nil)
	hub := sse.NewHub()

	svc := verification.New(reg, ledger, resolver, dispatcher, log, verification.Config{
		Cooldown:  cfg.Verification.Cooldown,
		Cooldowns: cooldowns,
		Events:    hub,
		Metrics:   m,
	})

	h := handlers.New(handlers.Deps{
		Repo:     repo,
		Service:  svc,
		Registry: reg,
		Audit:    log,
		Hub:      hub,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, cfg, h, promReg)

	return &App{
		Echo:    e,
		Gateway: gateway,
		db:      db,
		ledger:  ledger,
		service: svc,
	}, nil
}

// Close releases the cooldown store and the database.
func (a *App) Close() error {
	return errors.Join(a.service.Close(), database.Close(a.db))
}

func setupRoutes(e *echo.Echo, cfg *config.Config, h *handlers.Handlers, promReg *prometheus.Registry) {
	e.GET("/health", h.Health)
	if cfg.Metrics.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api/v1/verifications", appmw.RequireToken(cfg.API.Token))
	api.POST("", h.RequestVerification)
	api.POST("/otp", h.SubmitOTP)
	api.POST("/reverify", h.Reverify)

	admin := e.Group("/api/v1/admin", appmw.RequireToken(cfg.API.AdminToken))
	admin.GET("/stats", h.Stats)
	admin.GET("/students", h.ListStudents)
	admin.POST("/students", h.AddStudent)
	admin.POST("/students/bulk", h.AddStudents)
	admin.GET("/students/lookup", h.LookupStudent)
	admin.POST("/force-verify", h.ForceVerify)
	admin.POST("/unverify", h.Unverify)
	admin.GET("/audit", h.Audit)
	admin.GET("/events", h.Events)
}

func newCooldownStore(ctx context.Context, cfg *config.Config) (cooldown.Store, error) {
	if cfg.Redis.URL == "" {
		return cooldown.NewMemoryStore(nil), nil
	}
	store, err := cooldown.NewRedisStore(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("cooldowns stored in redis")
	return store, nil
}

func newDispatcher(cfg *config.Config, m *metrics.Metrics) (*email.Dispatcher, error) {
	var pool *email.SenderPool
	if len(cfg.SMTP.Senders) > 0 {
		p, err := email.NewSenderPool(cfg.SMTP.Senders, cfg.SMTP.Passwords, cfg.SMTP.RotationThreshold)
		if err != nil {
			return nil, fmt.Errorf("failed to build sender pool: %w", err)
		}
		pool = p
	}

	var fallback *email.Credential
	if cfg.SMTP.Username != "" {
		fallback = &email.Credential{Address: cfg.SMTP.Username, Password: cfg.SMTP.Password}
	}

	transport := &email.SMTPTransport{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		TLS:      cfg.SMTP.TLS,
		FromName: cfg.SMTP.FromName,
	}

	d := email.NewDispatcher(transport, pool, fallback, m)
	if !d.Configured() {
		slog.Warn("no smtp credentials configured, codes cannot be mailed")
	}
	return d, nil
}

func newGateway(cfg *config.Config) chat.Gateway {
	if cfg.Chat.Gateway == config.GatewayHTTP {
		return chat.NewHTTPGateway(cfg.Chat.URL, cfg.Chat.Token)
	}
	slog.Warn("using the in-memory chat gateway, grants are not persisted")
	return chat.NewMemoryGateway()
}

// purgeLoop deletes expired challenges every interval until ctx ends.
func (a *App) purgeLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purge(ctx)
		}
	}
}

func (a *App) purge(ctx context.Context) {
	n, err := a.ledger.PurgeExpired(ctx)
	if err != nil {
		slog.Error("purging expired challenges failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("otp_purged", "count", n)
	}
}
