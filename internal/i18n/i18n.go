package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders message ids in one of the embedded locales.
type Translator struct {
	bundle        *i18n.Bundle
	defaultLocale string
}

// New loads every embedded locale file.
func New(defaultLocale string) (*Translator, error) {
	if defaultLocale == "" {
		defaultLocale = "en"
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
	}

	return &Translator{bundle: bundle, defaultLocale: defaultLocale}, nil
}

// T translates messageID. Unknown ids come back unchanged.
func (t *Translator) T(locale, messageID string, data map[string]any) string {
	if locale == "" {
		locale = t.defaultLocale
	}
	l := i18n.NewLocalizer(t.bundle, locale, t.defaultLocale)

	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: messageID, TemplateData: data})
	if err != nil {
		return messageID
	}
	return msg
}

// Default translates in the configured default locale.
func (t *Translator) Default(messageID string, data map[string]any) string {
	return t.T(t.defaultLocale, messageID, data)
}
