// Package pipeline owns the two ordered work queues and the sequencing rules
// between them: submitted sentences are translated English-then-Japanese by a
// single sequential consumer, their words fan out to a second single-consumer
// queue for per-word translation and store upserts, and everything observable
// leaves through a typed event bus.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtraut/wortflash/pkg/translate"
	"github.com/mtraut/wortflash/pkg/wordext"
	"github.com/mtraut/wortflash/pkg/wordstore"
)

// Archiver appends finished sentences to the durable history.
type Archiver interface {
	Append(at time.Time, german, english, japanese string) error
}

// Options tune the coordinator. Zero values mean: no request timeout, no
// flash pacing, no periodic depth events, default event buffer.
type Options struct {
	RequestTimeout time.Duration
	FlashInterval  time.Duration
	DepthInterval  time.Duration
	EventBuffer    int
	// Disabled target languages are never scheduled. English cannot be
	// disabled; it gates all sentence display.
	Disabled []translate.Lang
	Archiver Archiver
	Logger   *logrus.Logger
}

// Coordinator drives both queues. One consumer goroutine per queue keeps
// per-queue ordering strict while the two queues progress independently.
type Coordinator struct {
	translator translate.Translator
	store      *wordstore.Store
	extractor  *wordext.Extractor
	archiver   Archiver
	bus        *Bus
	snap       *SnapshotTrigger
	pace       *pacer
	logger     *logrus.Logger

	sentences *fifo[*SentenceJob]
	words     *fifo[wordJob]
	nextID    atomic.Int64

	timeout       time.Duration
	depthInterval time.Duration
	disabled      map[translate.Lang]bool

	curMu           sync.Mutex
	currentSentence string
	currentWord     string

	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool

	closeMu sync.Mutex
	closed  bool
}

// New wires a Coordinator around the given translator and store.
func New(tr translate.Translator, store *wordstore.Store, opts Options) *Coordinator {
	disabled := make(map[translate.Lang]bool, len(opts.Disabled))
	for _, l := range opts.Disabled {
		if l == translate.LangEN {
			continue
		}
		disabled[l] = true
	}
	bus := NewBus(opts.EventBuffer)
	bus.Logger = opts.Logger
	return &Coordinator{
		translator:    tr,
		store:         store,
		extractor:     wordext.NewExtractor(),
		archiver:      opts.Archiver,
		bus:           bus,
		snap:          NewSnapshotTrigger(bus),
		pace:          newPacer(opts.FlashInterval),
		logger:        opts.Logger,
		sentences:     newFIFO[*SentenceJob](),
		words:         newFIFO[wordJob](),
		timeout:       opts.RequestTimeout,
		depthInterval: opts.DepthInterval,
		disabled:      disabled,
	}
}

// Events returns a fresh subscription to the coordinator's event stream.
// Subscribe before Start to observe everything.
func (c *Coordinator) Events() <-chan Event { return c.bus.Subscribe() }

// Start launches the queue consumers. Call once.
func (c *Coordinator) Start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true
	c.runCtx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(3)
	go func() {
		defer c.wg.Done()
		c.snap.Run(c.runCtx)
	}()
	go func() {
		defer c.wg.Done()
		c.sentenceLoop(c.runCtx)
	}()
	go func() {
		defer c.wg.Done()
		c.wordLoop(c.runCtx)
	}()

	if c.depthInterval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.depthLoop(c.runCtx)
		}()
	}
}

// Close stops accepting work, stops the consumers and closes the event
// stream. In-flight translator calls are abandoned via context. Commands
// arriving after Close return ErrQueueClosed.
func (c *Coordinator) Close() {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return
	}
	c.closed = true
	c.closeMu.Unlock()

	c.sentences.Close()
	c.words.Close()
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.bus.Close()
}

// Submit sanitizes and enqueues a sentence, returning its job id. Never
// blocks on queue depth.
func (c *Coordinator) Submit(text string) (int64, error) {
	clean := wordext.SanitizeSentence(text)
	if clean == "" {
		return 0, fmt.Errorf("empty sentence")
	}
	job := &SentenceJob{
		ID:           c.nextID.Add(1),
		Source:       clean,
		Stage:        StagePending,
		Translations: make(map[translate.Lang]string, 2),
	}
	if err := c.sentences.Push(job); err != nil {
		return 0, err
	}
	return job.ID, nil
}

// addCommand registers a command goroutine with the shutdown WaitGroup.
// It refuses once Close has begun, so command goroutines never race Wait.
func (c *Coordinator) addCommand() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return false
	}
	c.wg.Add(1)
	return true
}

// Redisplay publishes the stored entry as a word-ready event, regardless of
// its skip flag. The payload carries the flag so the renderer can mark the
// count.
func (c *Coordinator) Redisplay(word string) (wordstore.Entry, error) {
	e, err := c.store.Get(word)
	if err != nil {
		return wordstore.Entry{}, err
	}
	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.addCommand() {
		return wordstore.Entry{}, ErrQueueClosed
	}
	go func() {
		defer c.wg.Done()
		c.pace.wait(ctx)
		c.bus.Publish(WordReady{
			Word:      e.Word,
			Count:     e.Count,
			EN:        e.EN,
			JA:        e.JA,
			Skip:      e.Skip,
			Redisplay: true,
		})
	}()
	return e, nil
}

// ToggleSkip flips the word's skip flag, returning the new value. Flush
// failures degrade to a store-warning event; the flip still takes effect.
func (c *Coordinator) ToggleSkip(word string) (bool, error) {
	e, err := c.store.ToggleSkip(word)
	if err != nil {
		if errors.Is(err, wordstore.ErrNotFound) {
			return false, err
		}
		c.bus.Publish(StoreWarning{Err: err})
	}
	return e.Skip, nil
}

// RequestSnapshot issues a manual snapshot request. No gating.
func (c *Coordinator) RequestSnapshot(word string) {
	c.bus.Publish(SnapshotRequest{Word: word, Auto: false})
}

// Ask sends a free-form question to the backend off-queue and publishes the
// answer when it arrives.
func (c *Coordinator) Ask(question string) {
	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if !c.addCommand() {
		return
	}
	go func() {
		defer c.wg.Done()
		reqCtx, cancel := c.requestContext(ctx)
		defer cancel()
		answer, err := c.translator.Ask(reqCtx, question)
		c.bus.Publish(AnswerReady{Question: question, Answer: answer, Err: err})
	}()
}

// Words returns the read-only saved-word listing in first-seen order.
func (c *Coordinator) Words() []wordstore.Entry { return c.store.List() }

// Depth reports current queue sizes and in-flight items.
func (c *Coordinator) Depth() QueueDepth {
	c.curMu.Lock()
	cs, cw := c.currentSentence, c.currentWord
	c.curMu.Unlock()
	return QueueDepth{
		Sentences:       c.sentences.Len(),
		Words:           c.words.Len(),
		CurrentSentence: cs,
		CurrentWord:     cw,
	}
}

func (c *Coordinator) depthLoop(ctx context.Context) {
	t := time.NewTicker(c.depthInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.bus.Publish(c.Depth())
		}
	}
}

func (c *Coordinator) sentenceLoop(ctx context.Context) {
	for {
		job, ok := c.sentences.Pop(ctx)
		if !ok {
			return
		}
		c.setCurrentSentence(job.Source)
		c.processSentence(ctx, job)
		c.setCurrentSentence("")
	}
}

// processSentence runs the fixed EN-then-JA sequence for one job. An English
// failure drops the sentence (failed event, queue moves on); a Japanese
// failure surfaces a partial result instead.
func (c *Coordinator) processSentence(ctx context.Context, job *SentenceJob) {
	job.Stage = StageTranslatingEN
	en, err := c.translateSentence(ctx, job.Source, translate.LangEN)
	if err != nil {
		if ctx.Err() != nil {
			return // shutting down, no failure event
		}
		job.Stage = StageFailed
		c.warn(err, logrus.Fields{"job": job.ID, "stage": "en"}, "sentence translation failed")
		c.bus.Publish(SentenceFailed{
			JobID:     job.ID,
			Source:    job.Source,
			Stage:     translate.LangEN,
			ErrorKind: translate.ErrorKind(err),
			Err:       err,
		})
		return
	}
	job.Translations[translate.LangEN] = en

	var ja string
	partial := false
	if c.disabled[translate.LangJA] {
		partial = true
	} else {
		job.Stage = StageTranslatingJA
		ja, err = c.translateSentence(ctx, job.Source, translate.LangJA)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			partial = true
			c.warn(err, logrus.Fields{"job": job.ID, "stage": "ja"}, "partial sentence result")
		} else {
			job.Translations[translate.LangJA] = ja
		}
	}

	job.Stage = StageDone
	c.bus.Publish(SentenceReady{
		JobID:   job.ID,
		Source:  job.Source,
		EN:      en,
		JA:      ja,
		Partial: partial,
	})

	if c.archiver != nil {
		if err := c.archiver.Append(time.Now(), job.Source, en, ja); err != nil {
			c.warn(err, logrus.Fields{"job": job.ID}, "archive append failed")
			c.bus.Publish(StoreWarning{Err: err})
		}
	}

	for _, w := range c.extractor.Words(job.Source) {
		if err := c.words.Push(wordJob{word: w}); err != nil {
			return
		}
	}
}

func (c *Coordinator) wordLoop(ctx context.Context) {
	for {
		wj, ok := c.words.Pop(ctx)
		if !ok {
			return
		}
		c.setCurrentWord(wj.word)
		c.processWord(ctx, wj)
		c.setCurrentWord("")
	}
}

// processWord translates one word for each active target, upserts the store
// and emits the word events. Translator failures leave that target's
// candidates unchanged; the occurrence is counted regardless.
func (c *Coordinator) processWord(ctx context.Context, wj wordJob) {
	first := !c.store.Has(wj.word)

	var enCands, jaCands []string
	if raw, err := c.translateWord(ctx, wj.word, translate.LangEN); err != nil {
		if ctx.Err() != nil {
			return // shutting down before the upsert: the occurrence is not counted
		}
		c.warn(err, logrus.Fields{"word": wj.word, "target": "en"}, "word translation failed")
	} else {
		enCands = translate.SplitCandidates(raw)
	}
	if !c.disabled[translate.LangJA] {
		if raw, err := c.translateWord(ctx, wj.word, translate.LangJA); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.warn(err, logrus.Fields{"word": wj.word, "target": "ja"}, "word translation failed")
		} else {
			jaCands = translate.SplitCandidates(raw)
		}
	}

	entry, err := c.store.Upsert(wj.word, enCands, jaCands)
	if err != nil {
		c.warn(err, logrus.Fields{"word": wj.word}, "word store flush degraded")
		c.bus.Publish(StoreWarning{Err: err})
	}

	if !entry.Skip {
		c.pace.wait(ctx)
	}
	c.bus.Publish(WordReady{
		Word:  entry.Word,
		Count: entry.Count,
		EN:    entry.EN,
		JA:    entry.JA,
		Skip:  entry.Skip,
	})
	if first {
		c.bus.Publish(WordFirstSeen{Word: entry.Word})
	}
}

func (c *Coordinator) translateSentence(ctx context.Context, text string, target translate.Lang) (string, error) {
	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()
	return c.translator.Translate(reqCtx, text, target)
}

func (c *Coordinator) translateWord(ctx context.Context, word string, target translate.Lang) (string, error) {
	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()
	return c.translator.TranslateWord(reqCtx, word, target)
}

func (c *Coordinator) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func (c *Coordinator) setCurrentSentence(s string) {
	c.curMu.Lock()
	c.currentSentence = s
	c.curMu.Unlock()
}

func (c *Coordinator) setCurrentWord(w string) {
	c.curMu.Lock()
	c.currentWord = w
	c.curMu.Unlock()
}

func (c *Coordinator) warn(err error, fields logrus.Fields, msg string) {
	if c.logger != nil {
		c.logger.WithFields(fields).WithError(err).Warn(msg)
	}
}
