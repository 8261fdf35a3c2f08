package pipeline

import "github.com/mtraut/wortflash/pkg/translate"

// Stage tracks a sentence job through the fixed EN-then-JA sequence.
type Stage int

const (
	StagePending Stage = iota
	StageTranslatingEN
	StageTranslatingJA
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageTranslatingEN:
		return "translating-en"
	case StageTranslatingJA:
		return "translating-ja"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SentenceJob is one submitted unit of source text. The coordinator is its
// single writer; jobs are discarded once their terminal event is published.
type SentenceJob struct {
	ID           int64
	Source       string
	Stage        Stage
	Translations map[translate.Lang]string
}

// wordJob is one word fanned out from a processed sentence. Whether it is a
// first occurrence is decided at processing time, against the store state
// just before the upsert this job causes.
type wordJob struct {
	word string
}
