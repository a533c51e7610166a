package domain

// Translator resolves dotted message keys per language.
// Missing keys fall back to the default language, then to the key itself.
type Translator interface {
	Translate(key string, lang Language, vars map[string]any) string
}
