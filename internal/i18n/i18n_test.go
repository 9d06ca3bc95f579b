// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"github.com/renukaprasadbs454/discord-edtech-bot/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	err := i18n.Init()
	require.NoError(t, err)
}

func TestT(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	// Should translate known key
	result := i18n.T(ctx, "app_name")
	assert.NotEqual(t, "app_name", result) // Should be translated
}

func TestT_German(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.German)

	// Should use German translation
	result := i18n.T(ctx, "app_name")
	assert.NotEqual(t, "app_name", result)
}

func TestT_UnknownKey(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	// Should return the key itself for unknown messages
	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestT_NoLocaleContext(t *testing.T) {
	require.NoError(t, i18n.Init())

	// Without WithLocale, should fallback to English
	ctx := context.Background()

	result := i18n.T(ctx, "app_name")
	assert.NotEmpty(t, result)
}

func TestTData(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.TData(ctx, "outcome_rate_limited", map[string]any{"Seconds": 42})
	assert.Equal(t, "Please wait 42 seconds before requesting another code.", result)
}

func TestTPlural(t *testing.T) {
	require.NoError(t, i18n.Init())

	en := i18n.WithLocale(context.Background(), language.English)
	de := i18n.WithLocale(context.Background(), language.German)

	assert.Equal(t, "Wrong code. 2 attempts remaining.", i18n.TPlural(en, "outcome_otp_wrong_code", 2))
	assert.Equal(t, "Wrong code. 1 attempt remaining.", i18n.TPlural(en, "outcome_otp_wrong_code", 1))
	assert.Equal(t, "Wrong code. 0 attempts remaining.", i18n.TPlural(en, "outcome_otp_wrong_code", 0))
	assert.Equal(t, "Falscher Code. Noch 2 Versuche.", i18n.TPlural(de, "outcome_otp_wrong_code", 2))
}

func TestCatalogsMatch(t *testing.T) {
	require.NoError(t, i18n.Init())

	en := i18n.WithLocale(context.Background(), language.English)
	de := i18n.WithLocale(context.Background(), language.German)

	for _, id := range []string{
		"otp_email_subject", "otp_email_intro", "otp_email_ignore",
		"outcome_already_verified", "outcome_email_not_found", "outcome_email_already_linked",
		"outcome_otp_not_found", "outcome_otp_expired", "outcome_otp_too_many_attempts",
		"outcome_bind_conflict", "outcome_no_pending", "outcome_mail_failed", "outcome_storage_failure",
	} {
		t.Run(id, func(t *testing.T) {
			assert.NotEqual(t, id, i18n.T(en, id))
			assert.NotEqual(t, id, i18n.T(de, id))
			assert.NotEqual(t, i18n.T(en, id), i18n.T(de, id))
		})
	}
}

func TestLanguages(t *testing.T) {
	require.NoError(t, i18n.Init())

	langs := i18n.Languages()
	require.Len(t, langs, 2)
	assert.Equal(t, language.English, langs[0])
	assert.Contains(t, langs, language.German)
}

func TestMatchLanguage(t *testing.T) {
	require.NoError(t, i18n.Init())

	tests := []struct {
		expected       language.Tag
		acceptLanguage string
	}{
		{language.English, "en"},
		{language.English, "en-US"},
		{language.German, "de"},
		{language.German, "de-DE"},
		{language.German, "de-AT"},
		{language.English, "fr"}, // fallback to English
		{language.English, ""},   // empty defaults to English
		{language.German, "de, en;q=0.9"},
		{language.English, "en, de;q=0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.acceptLanguage, func(t *testing.T) {
			tag := i18n.MatchLanguage(tt.acceptLanguage)
			// Compare base language (ignore region)
			assert.Equal(t, tt.expected.String()[:2], tag.String()[:2])
		})
	}
}

func TestWithLocale(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.German)

	locale := i18n.GetLocale(ctx)
	assert.Equal(t, "de", locale)
}

func TestGetLocale(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "en", i18n.GetLocale(ctx))
}

func TestGetLocale_Default(t *testing.T) {
	ctx := context.Background()

	// Without WithLocale, should return "en"
	assert.Equal(t, "en", i18n.GetLocale(ctx))
}
