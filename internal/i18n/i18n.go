// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n localizes user-facing outcome messages and mail texts.
package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	mu      sync.RWMutex
	bundle  *i18n.Bundle
	matcher language.Matcher
)

type localeContextKey struct{}

// Init loads every embedded translations/active.*.toml file. English is the
// fallback language.
func Init() error {
	files, err := fs.Glob(translationFS, "translations/active.*.toml")
	if err != nil {
		return err
	}

	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, file := range files {
		if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
			return fmt.Errorf("loading %s: %w", file, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	// The bundle lists its default language first, so unmatched headers
	// fall back to English.
	matcher = language.NewMatcher(b.LanguageTags())
	return nil
}

// Languages returns the loaded languages, English first.
func Languages() []language.Tag {
	mu.RLock()
	defer mu.RUnlock()
	if bundle == nil {
		return []language.Tag{language.English}
	}
	return bundle.LanguageTags()
}

// WithLocale adds the locale to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	return context.WithValue(ctx, localeContextKey{}, lang.String())
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(localeContextKey{}).(string); ok {
		return locale
	}
	return "en"
}

// T translates a message by ID.
func T(ctx context.Context, messageID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: messageID})
}

// TData translates a message with template data.
func TData(ctx context.Context, messageID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
}

// TPlural translates a message with plural support. The count is available
// to the template as .Count.
func TPlural(ctx context.Context, messageID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    messageID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

// MatchLanguage matches the best loaded language from an Accept-Language
// header.
func MatchLanguage(acceptLanguage string) language.Tag {
	mu.RLock()
	m := matcher
	mu.RUnlock()
	if m == nil {
		return language.English
	}
	tag, _ := language.MatchStrings(m, acceptLanguage)
	return tag
}

// localize returns the message ID itself when Init has not run or the
// message is unknown.
func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	mu.RLock()
	b := bundle
	mu.RUnlock()
	if b == nil {
		return cfg.MessageID
	}

	msg, err := i18n.NewLocalizer(b, GetLocale(ctx)).Localize(cfg)
	if err != nil {
		return cfg.MessageID
	}
	return msg
}
