package wordext

import (
	"strings"
	"unicode"
)

// punctuation stripped from token edges before a token counts as a word.
// Covers both ASCII and the full-width forms that show up in mixed
// German/Japanese study material.
const edgePunct = ".,!?;:\"“”„()[]{}<>/\\|—–-+*=~_^`…，。！？；：『』「」【】（）«»'’‘"

// Normalizer converts a raw token into its canonical word form.
// Returning "" drops the token.
type Normalizer func(token string) string

// Extractor turns submitted sentences into an ordered list of distinct
// vocabulary words. The normalization policy is pluggable; the default
// matches the study-word convention of upper-casing the first letter.
type Extractor struct {
	Normalize Normalizer
}

// NewExtractor returns an Extractor using DefaultNormalize.
func NewExtractor() *Extractor {
	return &Extractor{Normalize: DefaultNormalize}
}

// Words splits text on whitespace, normalizes each token and returns the
// distinct results in first-appearance order. Distinctness is
// case-insensitive so "Hund" and "hund," collapse into one word.
func (e *Extractor) Words(text string) []string {
	norm := e.Normalize
	if norm == nil {
		norm = DefaultNormalize
	}
	seen := make(map[string]struct{})
	var ordered []string
	for _, tok := range strings.Fields(text) {
		w := norm(tok)
		if w == "" {
			continue
		}
		key := strings.ToLower(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ordered = append(ordered, w)
	}
	return ordered
}

// DefaultNormalize strips edge punctuation and renders the word with an
// upper-case first letter and lower-case remainder, the form used for
// store lookups and flash display.
func DefaultNormalize(token string) string {
	w := strings.Trim(token, edgePunct)
	if w == "" {
		return ""
	}
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// SanitizeSentence removes embedded line breaks from submitted text so a
// sentence always occupies a single display line and a single archive row.
func SanitizeSentence(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(text), " "))
}
