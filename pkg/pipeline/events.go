package pipeline

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mtraut/wortflash/pkg/translate"
)

// Event is a tagged notification published by the coordinator. Display,
// snapshot and listing collaborators consume the stream independently.
type Event interface {
	Kind() string
}

// SentenceReady carries a finished sentence. Partial marks a sentence whose
// Japanese translation failed; the English gate has always passed.
type SentenceReady struct {
	JobID   int64
	Source  string
	EN      string
	JA      string
	Partial bool
}

func (SentenceReady) Kind() string { return "sentence-ready" }

// SentenceFailed reports a sentence dropped at the given stage.
type SentenceFailed struct {
	JobID     int64
	Source    string
	Stage     translate.Lang
	ErrorKind string
	Err       error
}

func (SentenceFailed) Kind() string { return "sentence-failed" }

// WordReady carries the post-upsert state of a processed word. Redisplay
// marks a user-requested re-display rather than an automatic flash; the
// renderer stars the count when Skip is set on a re-display.
type WordReady struct {
	Word      string
	Count     int
	EN        []string
	JA        []string
	Skip      bool
	Redisplay bool
}

func (WordReady) Kind() string { return "word-ready" }

// WordFirstSeen fires exactly once per word, on its count==1 upsert.
type WordFirstSeen struct {
	Word string
}

func (WordFirstSeen) Kind() string { return "word-first-seen" }

// SnapshotRequest asks the external snapshot collaborator to capture the
// current word display. Auto requests happen once per word; manual ones are
// unlimited.
type SnapshotRequest struct {
	Word string
	Auto bool
}

func (SnapshotRequest) Kind() string { return "snapshot-request" }

// QueueDepth is the periodic status readout.
type QueueDepth struct {
	Sentences       int
	Words           int
	CurrentSentence string
	CurrentWord     string
}

func (QueueDepth) Kind() string { return "queue-depth" }

// StoreWarning reports degraded durability: the flush failed after retries
// but in-memory state was kept.
type StoreWarning struct {
	Err error
}

func (StoreWarning) Kind() string { return "store-warning" }

// AnswerReady carries the response to a free-form question. Err is set when
// the backend failed.
type AnswerReady struct {
	Question string
	Answer   string
	Err      error
}

func (AnswerReady) Kind() string { return "answer-ready" }

// Bus fans events out to any number of subscribers. Publishing never blocks
// the pipeline: a subscriber that stops draining loses events (counted and
// logged) instead of stalling the consumers.
type Bus struct {
	mu      sync.Mutex
	subs    []chan Event
	buffer  int
	dropped uint64
	closed  bool

	// Logger is used when events are dropped. nil means no logging.
	Logger *logrus.Logger
}

// NewBus creates a Bus whose subscriber channels buffer up to buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{buffer: buffer}
}

// Subscribe registers a new consumer. The channel is closed when the Bus is.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish delivers e to every subscriber without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped++
			if b.Logger != nil {
				b.Logger.WithField("event", e.Kind()).Warn("subscriber full, event dropped")
			}
		}
	}
}

// Dropped reports how many events were discarded on full subscribers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
