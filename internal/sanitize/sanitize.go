// Package sanitize strips control characters, markup and injection patterns
// from untrusted shipment input.
package sanitize

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxLength is the rune limit applied to every string before cleaning.
const MaxLength = 10000

// maxDepth bounds recursion into nested containers.
const maxDepth = 64

var sqlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|UNION)\b`),
	regexp.MustCompile(`--[^\n]*`),
	regexp.MustCompile(`(?s)/\*.*?\*/`),
	regexp.MustCompile(`(?i)\b(?:OR|AND)\s+1\s*=\s*1\b`),
}

var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`),
	regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`),
	regexp.MustCompile(`(?is)<object\b[^>]*>.*?</object\s*>`),
	regexp.MustCompile(`(?is)<embed\b[^>]*>(?:.*?</embed\s*>)?`),
	regexp.MustCompile(`(?is)<form\b[^>]*>.*?</form\s*>`),
	// unterminated openers left over after block removal
	regexp.MustCompile(`(?i)</?(?:script|iframe|object|embed|form)\b[^>]*>?`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon[a-z]+\s*=`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bexpression\s*\(`),
}

// String cleans a single string.
func String(s string) string {
	if utf8.RuneCountInString(s) > MaxLength {
		s = string([]rune(s)[:MaxLength])
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)

	for _, re := range sqlPatterns {
		s = re.ReplaceAllString(s, "")
	}
	for _, re := range scriptPatterns {
		s = re.ReplaceAllString(s, "")
	}

	return html.EscapeString(s)
}

// Value returns a structurally identical copy of v with every string key and
// leaf cleaned. Non-string scalars pass through unchanged. It never panics:
// a subtree that fails to traverse is replaced by what was cleaned so far.
func Value(v any) any {
	return value(v, 0)
}

// Map cleans a decoded JSON object.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out, _ := value(m, 0).(map[string]any)
	if out == nil {
		return map[string]any{}
	}
	return out
}

func value(v any, depth int) (out any) {
	if depth > maxDepth {
		slog.Warn("sanitizer depth limit reached", "depth", depth)
		return nil
	}

	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return String(t)
	case map[string]any:
		return cleanMap(t, depth)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return cleanMap(m, depth)
	case []any:
		return cleanSlice(t, depth)
	case []string:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = e
		}
		return cleanSlice(s, depth)
	default:
		return v
	}
}

func cleanMap(m map[string]any, depth int) (out map[string]any) {
	out = make(map[string]any, len(m))
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("sanitizer recovered from map traversal", "error", fmt.Sprint(r))
		}
	}()

	// sorted so colliding cleaned keys resolve the same way every run
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		out[String(k)] = value(m[k], depth+1)
	}
	return out
}

func cleanSlice(s []any, depth int) (out []any) {
	out = make([]any, 0, len(s))
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("sanitizer recovered from sequence traversal", "error", fmt.Sprint(r))
		}
	}()

	for _, e := range s {
		out = append(out, value(e, depth+1))
	}
	return out
}
