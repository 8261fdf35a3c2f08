package translate

import (
	"regexp"
	"strings"
)

// Some chat models emit channel-routing markers around the actual answer
// ("<|channel|>final<|message|>..."). CleanResponse keeps only the text after
// the last final-message marker and strips any leading control tokens.

var finalMarkers = []string{
	"<|start|>assistant<|channel|>final<|message|>",
	"<|channel|>final<|message|>",
	"final<|message|>",
}

var leadingControlTokens = regexp.MustCompile(`^\s*(?:<\|[^|]+\|>)+`)

// CleanResponse extracts the usable answer from raw model output.
func CleanResponse(raw string) string {
	out := raw
	lastIdx := -1
	lastLen := 0
	for _, m := range finalMarkers {
		if i := strings.LastIndex(raw, m); i > lastIdx {
			lastIdx = i
			lastLen = len(m)
		}
	}
	if lastIdx != -1 {
		out = raw[lastIdx+lastLen:]
	}
	out = leadingControlTokens.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// SplitCandidates splits a semicolon-separated candidate list into trimmed,
// non-empty candidates.
func SplitCandidates(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if c := strings.TrimSpace(part); c != "" {
			out = append(out, c)
		}
	}
	return out
}
