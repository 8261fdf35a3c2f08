package translate

import (
	"context"
	"errors"
)

// Lang identifies a translation target.
type Lang string

const (
	LangEN Lang = "en"
	LangJA Lang = "ja"
	LangES Lang = "es"
	LangFR Lang = "fr"
)

// Targets is the fixed target set in scheduling order. Disabled members are
// simply never scheduled.
var Targets = []Lang{LangEN, LangJA, LangES, LangFR}

var (
	// ErrUnavailable marks connection failures and timeouts.
	ErrUnavailable = errors.New("translator unavailable")
	// ErrRejected marks backend errors and empty results.
	ErrRejected = errors.New("translator rejected request")
)

// ErrorKind reduces a translation error to its wire-level kind string for
// event payloads.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnavailable):
		return "TranslatorUnavailable"
	case errors.Is(err, ErrRejected):
		return "TranslatorRejected"
	default:
		return "TranslatorRejected"
	}
}

// Translator is the capability the pipeline depends on: given text and a
// target language, return translated text or fail. Implementations may be
// slow; callers bound each call with a context deadline.
type Translator interface {
	Translate(ctx context.Context, text string, target Lang) (string, error)
	// TranslateWord requests candidate translations for a single word.
	// The result is a semicolon-separated candidate list.
	TranslateWord(ctx context.Context, word string, target Lang) (string, error)
	// Ask sends a free-form question and returns the answer.
	Ask(ctx context.Context, question string) (string, error)
}
