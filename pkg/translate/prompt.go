package translate

import "fmt"

// The backend model follows Japanese instructions most reliably, so prompts
// are phrased in Japanese regardless of the target language.

var sentenceInstruction = map[Lang]string{
	LangEN: "簡潔に英語に訳した文だけ記載してください。",
	LangJA: "簡潔に日本語に訳した文だけ記載してください。",
	LangES: "簡潔にスペイン語に訳した文だけ記載してください。",
	LangFR: "簡潔にフランス語に訳した文だけ記載してください。",
}

var wordInstruction = map[Lang]string{
	LangEN: "簡潔にこのドイツ語に最も近い英語をセミコロン区切りの形式で3つ列挙してください。",
	LangJA: "簡潔にこのドイツ語に最も近い日本語をセミコロン区切りの形式で3つ列挙してください。",
	LangES: "簡潔にこのドイツ語に最も近いスペイン語をセミコロン区切りの形式で3つ列挙してください。",
	LangFR: "簡潔にこのドイツ語に最も近いフランス語をセミコロン区切りの形式で3つ列挙してください。",
}

// SentencePrompt builds the prompt for translating a whole sentence.
func SentencePrompt(target Lang, text string) string {
	return fmt.Sprintf("%s\n「%s」", sentenceInstruction[target], text)
}

// WordPrompt builds the prompt requesting semicolon-separated candidate
// translations for a single word.
func WordPrompt(target Lang, word string) string {
	return fmt.Sprintf("%s\n「%s」", wordInstruction[target], word)
}
