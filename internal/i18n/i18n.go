// internal/i18n/i18n.go
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

//go:embed locales/*.json
var embeddedLocales embed.FS

// SupportedLanguages are the locales shipped with the service.
var SupportedLanguages = []string{"es", "en"}

type I18n struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	defaultLang  string
}

var (
	instance   *I18n
	instanceMu sync.RWMutex
)

// Initialize loads the locale files. An empty or missing localesPath falls
// back to the locales compiled into the binary.
func Initialize(localesPath, defaultLang string) error {
	if defaultLang == "" {
		defaultLang = "es"
	}

	var source fs.FS
	if sub, err := fs.Sub(embeddedLocales, "locales"); err == nil {
		source = sub
	}
	if localesPath != "" {
		if info, err := os.Stat(localesPath); err == nil && info.IsDir() {
			source = os.DirFS(localesPath)
		}
	}

	i := &I18n{
		translations: make(map[string]map[string]string),
		defaultLang:  defaultLang,
	}
	if err := i.LoadTranslations(source); err != nil {
		return err
	}

	instanceMu.Lock()
	instance = i
	instanceMu.Unlock()
	return nil
}

func (i *I18n) LoadTranslations(source fs.FS) error {
	for _, lang := range SupportedLanguages {
		file := lang + ".json"

		data, err := fs.ReadFile(source, file)
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", file, err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", file, err)
		}

		i.mu.Lock()
		i.translations[lang] = translations
		i.mu.Unlock()
	}

	return nil
}

func (i *I18n) T(lang, key string, args ...interface{}) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if text, ok := i.lookup(lang, key); ok {
		return format(text, args...)
	}

	// Fallback to default language
	if lang != i.defaultLang {
		if text, ok := i.lookup(i.defaultLang, key); ok {
			return format(text, args...)
		}
	}

	// Return key if no translation found
	return key
}

func (i *I18n) lookup(lang, key string) (string, bool) {
	translations, ok := i.translations[lang]
	if !ok {
		return "", false
	}
	text, ok := translations[key]
	return text, ok
}

func format(text string, args ...interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// Global functions
func T(lang, key string, args ...interface{}) string {
	instanceMu.RLock()
	i := instance
	instanceMu.RUnlock()

	if i != nil {
		return i.T(lang, key, args...)
	}
	return key
}

func DefaultLanguage() string {
	instanceMu.RLock()
	defer instanceMu.RUnlock()
	if instance == nil {
		return "es"
	}
	return instance.defaultLang
}

// ParseAcceptLanguage picks the first supported language from an
// Accept-Language header such as "es-ES,es;q=0.9,en;q=0.8".
func ParseAcceptLanguage(header string) (string, bool) {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		subtags := strings.FieldsFunc(tag, func(r rune) bool { return r == '-' || r == '_' })
		if len(subtags) == 0 {
			continue
		}
		base := strings.ToLower(subtags[0])
		for _, lang := range SupportedLanguages {
			if base == lang {
				return lang, true
			}
		}
	}
	return "", false
}
