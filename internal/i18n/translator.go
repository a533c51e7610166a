// Package i18n provides the per-language message tables used for every
// user-facing string in results and explanations.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/opensource-finance/harrier/internal/domain"
)

//go:embed locales/*.json
var locales embed.FS

// Translator resolves dotted keys against flattened per-language tables.
// Tables are read-only between reloads.
type Translator struct {
	defaultLang domain.Language
	overrideDir string

	mu     sync.RWMutex
	tables map[domain.Language]map[string]string
}

// New loads the embedded tables and layers any <lang>.json files found in
// cfg.OverrideDir on top of them.
func New(cfg domain.I18nConfig) (*Translator, error) {
	def := cfg.DefaultLanguage
	if def == "" {
		def = domain.LanguageEnglish
	}

	t := &Translator{
		defaultLang: def,
		overrideDir: cfg.OverrideDir,
	}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustNew is New for the embedded tables only, which cannot fail once built.
func MustNew() *Translator {
	t, err := New(domain.I18nConfig{DefaultLanguage: domain.LanguageEnglish})
	if err != nil {
		panic(err)
	}
	return t
}

// Reload rebuilds every table from the embedded files and the override
// directory, then swaps them in atomically.
func (t *Translator) Reload() error {
	tables := make(map[domain.Language]map[string]string, len(domain.Languages))

	for _, lang := range domain.Languages {
		data, err := locales.ReadFile("locales/" + string(lang) + ".json")
		if err != nil {
			return fmt.Errorf("failed to read embedded locale %s: %w", lang, err)
		}
		table, err := parse(data)
		if err != nil {
			return fmt.Errorf("failed to parse embedded locale %s: %w", lang, err)
		}
		tables[lang] = table
	}

	if t.overrideDir != "" {
		files, err := filepath.Glob(filepath.Join(t.overrideDir, "*.json"))
		if err != nil {
			return fmt.Errorf("failed to list locale overrides: %w", err)
		}
		for _, file := range files {
			lang := domain.Language(strings.TrimSuffix(filepath.Base(file), ".json"))
			base, ok := tables[lang]
			if !ok {
				slog.Warn("ignoring locale override for unsupported language", "file", file)
				continue
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read locale override %s: %w", file, err)
			}
			override, err := parse(data)
			if err != nil {
				// keep serving the embedded table for this language
				slog.Warn("invalid locale override", "file", file, "error", err)
				continue
			}
			for k, v := range override {
				base[k] = v
			}
		}
	}

	t.mu.Lock()
	t.tables = tables
	t.mu.Unlock()
	return nil
}

// Translate resolves key for lang, falling back to the default language and
// then to the key itself. Placeholders of the form {name} are replaced from
// vars; a malformed template or a missing variable returns the raw template.
func (t *Translator) Translate(key string, lang domain.Language, vars map[string]any) string {
	t.mu.RLock()
	tmpl, ok := t.tables[lang][key]
	if !ok {
		tmpl, ok = t.tables[t.defaultLang][key]
	}
	t.mu.RUnlock()

	if !ok {
		return key
	}
	return Format(tmpl, vars)
}

// Has reports whether key exists for lang without fallback.
func (t *Translator) Has(key string, lang domain.Language) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.tables[lang][key]
	return ok
}

// Watch reloads the tables whenever a file in the override directory
// changes. It blocks until ctx is done.
func (t *Translator) Watch(ctx context.Context) error {
	if t.overrideDir == "" {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create locale watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(t.overrideDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", t.overrideDir, err)
	}
	slog.Info("watching locale overrides", "dir", t.overrideDir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := t.Reload(); err != nil {
				slog.Error("locale reload failed", "error", err)
				continue
			}
			slog.Info("locale tables reloaded", "file", ev.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("locale watcher error", "error", err)
		}
	}
}

// Format substitutes {name} placeholders. Unbalanced braces or a missing
// variable return tmpl unchanged.
func Format(tmpl string, vars map[string]any) string {
	if !strings.ContainsAny(tmpl, "{}") {
		return tmpl
	}

	var b strings.Builder
	for i := 0; i < len(tmpl); {
		switch tmpl[i] {
		case '{':
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return tmpl
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" || strings.ContainsAny(name, "{ ") {
				return tmpl
			}
			v, ok := vars[name]
			if !ok {
				return tmpl
			}
			b.WriteString(fmt.Sprint(v))
			i += end + 2
		case '}':
			return tmpl
		default:
			b.WriteByte(tmpl[i])
			i++
		}
	}
	return b.String()
}

// parse flattens a nested JSON object into dotted keys.
func parse(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case map[string]any:
			flatten(key, val, out)
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}
