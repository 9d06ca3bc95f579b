// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package config collects the service settings from flags, environment
// variables and config.toml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

// Chat gateway kinds.
const (
	GatewayMemory = "memory"
	GatewayHTTP   = "http"
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server       ServerConfig
	Log          LogConfig
	Database     DatabaseConfig
	SMTP         SMTPConfig
	Verification VerificationConfig
	Chat         ChatConfig
	Redis        RedisConfig
	API          APIConfig
	Metrics      MetricsConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host string
	Port int
	TLS  bool
	// Senders and Passwords form the rotating pool, matched by position.
	Senders           []string
	Passwords         []string
	RotationThreshold int
	// Username and Password are the single fallback credential.
	Username string
	Password string
	FromName string
}

type VerificationConfig struct { //nolint:govet // fieldalignment not critical for config structs
	OTPTTL        time.Duration
	OTPLength     int
	Cooldown      time.Duration
	VerifiedRole  string
	PurgeInterval time.Duration
}

type ChatConfig struct {
	Gateway string // memory, http
	URL     string
	Token   string
}

type RedisConfig struct {
	URL string // empty keeps cooldowns in memory
}

type APIConfig struct {
	Token      string
	AdminToken string
}

type MetricsConfig struct {
	Enabled bool
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:              cmd.String("smtp-host"),
			Port:              int(cmd.Int("smtp-port")),
			TLS:               cmd.Bool("smtp-tls"),
			Senders:           cmd.StringSlice("smtp-senders"),
			Passwords:         cmd.StringSlice("smtp-passwords"),
			RotationThreshold: int(cmd.Int("smtp-rotation-threshold")),
			Username:          cmd.String("smtp-username"),
			Password:          cmd.String("smtp-password"),
			FromName:          cmd.String("smtp-from-name"),
		},
		Verification: VerificationConfig{
			OTPTTL:        cmd.Duration("otp-ttl"),
			OTPLength:     int(cmd.Int("otp-length")),
			Cooldown:      cmd.Duration("cooldown"),
			VerifiedRole:  cmd.String("verified-role"),
			PurgeInterval: cmd.Duration("purge-interval"),
		},
		Chat: ChatConfig{
			Gateway: strings.ToLower(cmd.String("chat-gateway")),
			URL:     cmd.String("chat-url"),
			Token:   cmd.String("chat-token"),
		},
		Redis: RedisConfig{
			URL: cmd.String("redis-url"),
		},
		API: APIConfig{
			Token:      cmd.String("api-token"),
			AdminToken: cmd.String("admin-token"),
		},
		Metrics: MetricsConfig{
			Enabled: cmd.Bool("metrics"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Chat.Gateway {
	case GatewayMemory:
	case GatewayHTTP:
		if c.Chat.URL == "" {
			errs = append(errs, errors.New("chat-url is required for the http gateway"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown chat gateway %q", c.Chat.Gateway))
	}

	if len(c.SMTP.Senders) != len(c.SMTP.Passwords) {
		errs = append(errs, fmt.Errorf("smtp-senders has %d entries but smtp-passwords has %d",
			len(c.SMTP.Senders), len(c.SMTP.Passwords)))
	}
	if c.SMTP.Username != "" && c.SMTP.Password == "" {
		errs = append(errs, errors.New("smtp-password is required with smtp-username"))
	}
	if c.Verification.OTPLength < 4 || c.Verification.OTPLength > 10 {
		errs = append(errs, fmt.Errorf("otp-length must be between 4 and 10, got %d", c.Verification.OTPLength))
	}

	return errors.Join(errs...)
}

func buildBaseURL(cfg *Config) string {
	if cfg.Server.Port == 80 {
		return fmt.Sprintf("http://%s", cfg.Server.Host)
	}
	return fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

// DatabaseFlags are the flags needed by commands that only touch the database.
func DatabaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/verify.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
	}
}

func Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Value:   "smtp.gmail.com",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP (implicit TLS on port 465, STARTTLS otherwise)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "smtp-senders",
			Usage:   "Sender addresses of the rotating pool",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_SENDERS"), toml.TOML("smtp.senders", configFile)),
		},
		&cli.StringSliceFlag{
			Name:    "smtp-passwords",
			Usage:   "Passwords of the rotating pool, in sender order",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORDS"), toml.TOML("smtp.passwords", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-rotation-threshold",
			Value:   1900,
			Usage:   "Sends per pool sender before rotating to the next",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_ROTATION_THRESHOLD"), toml.TOML("smtp.rotation_threshold", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "Fallback sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "Fallback sender password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Student Verification",
			Usage:   "Display name of outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		// Verification flags
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   5 * time.Minute,
			Usage:   "Lifetime of a verification code",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_TTL"), toml.TOML("verification.otp_ttl", configFile)),
		},
		&cli.IntFlag{
			Name:    "otp-length",
			Value:   6,
			Usage:   "Number of digits in a verification code",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_LENGTH"), toml.TOML("verification.otp_length", configFile)),
		},
		&cli.DurationFlag{
			Name:    "cooldown",
			Value:   60 * time.Second,
			Usage:   "Wait between two code requests of one account",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_COOLDOWN"), toml.TOML("verification.cooldown", configFile)),
		},
		&cli.StringFlag{
			Name:    "verified-role",
			Usage:   "Name of an existing role granted to every verified student",
			Sources: cli.NewValueSourceChain(cli.EnvVar("VERIFIED_ROLE"), toml.TOML("verification.verified_role", configFile)),
		},
		&cli.DurationFlag{
			Name:    "purge-interval",
			Value:   10 * time.Minute,
			Usage:   "Interval for deleting expired codes (0 disables)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PURGE_INTERVAL"), toml.TOML("verification.purge_interval", configFile)),
		},
		// Chat flags
		&cli.StringFlag{
			Name:    "chat-gateway",
			Value:   GatewayMemory,
			Usage:   "Chat gateway (memory, http)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CHAT_GATEWAY"), toml.TOML("chat.gateway", configFile)),
		},
		&cli.StringFlag{
			Name:    "chat-url",
			Usage:   "Base URL of the chat bot API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CHAT_URL"), toml.TOML("chat.url", configFile)),
		},
		&cli.StringFlag{
			Name:    "chat-token",
			Usage:   "Bearer token for the chat bot API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CHAT_TOKEN"), toml.TOML("chat.token", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for shared cooldowns (empty keeps them in memory)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_URL"), toml.TOML("redis.url", configFile)),
		},
		// API flags
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "Bearer token for the verification API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("API_TOKEN"), toml.TOML("api.token", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "Bearer token for the admin API",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_TOKEN"), toml.TOML("api.admin_token", configFile)),
		},
		&cli.BoolFlag{
			Name:    "metrics",
			Value:   true,
			Usage:   "Expose Prometheus metrics on /metrics",
			Sources: cli.NewValueSourceChain(cli.EnvVar("METRICS_ENABLED"), toml.TOML("metrics.enabled", configFile)),
		},
	}
	return append(DatabaseFlags(), flags...)
}
