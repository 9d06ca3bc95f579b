// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host     string
		expected bool
	}{
		{"", true},
		{"localhost", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"app.localhost", true},
		{"example.com", false},
		{"192.168.1.1", false},
		{"localhost.com", false}, // not a real localhost
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsLocalhost(tt.host))
		})
	}
}

func TestBuildBaseURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *Config
		expected string
	}{
		{
			name:     "default port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 80}},
			expected: "http://localhost",
		},
		{
			name:     "custom port",
			cfg:      &Config{Server: ServerConfig{Host: "localhost", Port: 8080}},
			expected: "http://localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildBaseURL(tt.cfg))
		})
	}
}

func validConfig() *Config {
	return &Config{
		Chat:         ChatConfig{Gateway: GatewayMemory},
		Verification: VerificationConfig{OTPLength: 6},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown gateway", func(c *Config) { c.Chat.Gateway = "carrier-pigeon" }, "unknown chat gateway"},
		{"http gateway without url", func(c *Config) { c.Chat.Gateway = GatewayHTTP }, "chat-url is required"},
		{"http gateway with url", func(c *Config) {
			c.Chat.Gateway = GatewayHTTP
			c.Chat.URL = "http://bot:9000"
		}, ""},
		{"pool mismatch", func(c *Config) {
			c.SMTP.Senders = []string{"a@x.com", "b@x.com"}
			c.SMTP.Passwords = []string{"pw"}
		}, "smtp-senders has 2 entries"},
		{"fallback without password", func(c *Config) { c.SMTP.Username = "a@x.com" }, "smtp-password is required"},
		{"short otp", func(c *Config) { c.Verification.OTPLength = 3 }, "otp-length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlags(t *testing.T) {
	flags := Flags()

	flagNames := make(map[string]bool)
	for _, f := range flags {
		for _, name := range f.Names() {
			flagNames[name] = true
		}
	}

	for _, name := range []string{
		"host", "port", "log-level", "database-dsn",
		"smtp-host", "smtp-senders", "smtp-passwords", "smtp-rotation-threshold",
		"otp-ttl", "cooldown", "verified-role", "chat-gateway", "redis-url",
		"api-token", "admin-token", "metrics",
	} {
		assert.True(t, flagNames[name], "should have %s flag", name)
	}
}

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "./data/verify.db", cfg.Database.DSN)
			assert.Equal(t, 1900, cfg.SMTP.RotationThreshold)
			assert.Equal(t, 5*time.Minute, cfg.Verification.OTPTTL)
			assert.Equal(t, 6, cfg.Verification.OTPLength)
			assert.Equal(t, 60*time.Second, cfg.Verification.Cooldown)
			assert.Equal(t, GatewayMemory, cfg.Chat.Gateway)
			assert.True(t, cfg.Metrics.Enabled)
			assert.NoError(t, cfg.Validate())

			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.SMTP.Senders)
			assert.Equal(t, 2*time.Minute, cfg.Verification.Cooldown)
			assert.Equal(t, GatewayHTTP, cfg.Chat.Gateway)
			assert.Equal(t, "Verified", cfg.Verification.VerifiedRole)

			return nil
		},
	}

	args := []string{
		"test",
		"--port", "9000",
		"--smtp-senders", "a@x.com,b@x.com",
		"--cooldown", "2m",
		"--chat-gateway", "HTTP",
		"--verified-role", "Verified",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}
