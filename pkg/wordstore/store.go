// Package wordstore owns the durable vocabulary table: one row per word with
// accumulated translation candidates, an exposure count and a skip flag.
// The table is a flat CSV file; older column layouts are upgraded on load.
package wordstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// header is the current on-disk schema. Legacy 2- and 4-column files are
// accepted on load and rewritten in this layout on the next save.
var header = []string{"word", "en", "ja", "count", "skip"}

var (
	// ErrNotFound is returned when an operation references an unknown word.
	ErrNotFound = errors.New("word not found")
	// ErrStoreIO marks durable read/write failures.
	ErrStoreIO = errors.New("word store io")
)

// Entry is a snapshot of one vocabulary record. Candidate slices preserve
// insertion order; earlier-discovered translations always sort first.
type Entry struct {
	Word  string
	EN    []string
	JA    []string
	Count int
	Skip  bool
}

func (e Entry) clone() Entry {
	e.EN = append([]string(nil), e.EN...)
	e.JA = append([]string(nil), e.JA...)
	return e
}

// Store is the single writer of vocabulary state. All mutations are
// serialized internally and flushed to disk before the caller proceeds, so
// observers only ever see durably committed state.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]*Entry
	order   []string // first-seen order of keys

	// Logger is used for flush diagnostics. nil means no logging.
	Logger *logrus.Logger

	// FlushRetries bounds how often a failed flush is retried with backoff
	// before the error is surfaced. In-memory state is kept either way.
	FlushRetries  uint64
	FlushInterval time.Duration

	// writeFile is swappable so tests can simulate storage failures.
	writeFile func(path string, data []byte) error
}

// Open loads the table at path. A missing file yields an empty store; an
// unparseable file is a startup error.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	s := &Store{
		path:          path,
		entries:       make(map[string]*Entry),
		Logger:        logger,
		FlushRetries:  3,
		FlushInterval: 100 * time.Millisecond,
		writeFile:     atomicWriteFile,
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreIO, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrStoreIO, path, err)
	}
	if err := s.loadRows(rows); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreIO, path, err)
	}
	return s, nil
}

func key(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func (s *Store) loadRows(rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	head := lo.Map(rows[0], func(c string, _ int) string {
		return strings.ToLower(strings.TrimSpace(c))
	})
	if len(head) == 0 || head[0] != "word" {
		return fmt.Errorf("unrecognized header %v", rows[0])
	}
	// Oldest layout stored only word+count; every other legacy layout keeps
	// translations in columns 2 and 3.
	countOnly := len(head) == 2 && head[1] == "count"

	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		word := strings.TrimSpace(row[0])
		if word == "" {
			continue
		}
		e := &Entry{Word: word, Count: 1}
		if countOnly {
			if len(row) > 1 {
				e.Count = parseCount(row[1])
			}
		} else {
			if len(row) > 1 {
				e.EN = splitJoined(row[1])
			}
			if len(row) > 2 {
				e.JA = splitJoined(row[2])
			}
			if len(row) > 3 {
				e.Count = parseCount(row[3])
			}
			if len(row) > 4 {
				e.Skip = parseFlag(row[4])
			}
		}
		k := key(word)
		if _, dup := s.entries[k]; dup {
			continue
		}
		s.entries[k] = e
		s.order = append(s.order, k)
	}
	return nil
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseFlag(s string) bool {
	return strings.TrimSpace(s) == "1" || strings.EqualFold(strings.TrimSpace(s), "true")
}

func splitJoined(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if c := strings.TrimSpace(part); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Has reports whether the word already exists. Used to detect first
// occurrences before the upsert that records them.
func (s *Store) Has(word string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key(word)]
	return ok
}

// Upsert records one processing of word. A new word starts at count 1; an
// existing one is incremented by exactly 1 and any previously unseen
// candidates are appended (exact-string dedup, insertion order kept).
// The returned Entry reflects the post-upsert state even when the flush
// failed; a non-nil error then reports the degraded durability.
func (s *Store) Upsert(word string, en, ja []string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trimmed := strings.TrimSpace(word)
	if trimmed == "" {
		return Entry{}, fmt.Errorf("word must be non-empty")
	}
	k := key(trimmed)
	e, ok := s.entries[k]
	if !ok {
		e = &Entry{Word: trimmed, Count: 0}
		s.entries[k] = e
		s.order = append(s.order, k)
	}
	e.Count++
	e.EN = mergeCandidates(e.EN, en)
	e.JA = mergeCandidates(e.JA, ja)

	return e.clone(), s.flushLocked()
}

func mergeCandidates(existing, incoming []string) []string {
	for _, c := range incoming {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !lo.Contains(existing, c) {
			existing = append(existing, c)
		}
	}
	return existing
}

// SetSkip sets the skip flag without touching count or candidates.
func (s *Store) SetSkip(word string, value bool) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key(word)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Skip == value {
		return e.clone(), nil
	}
	e.Skip = value
	return e.clone(), s.flushLocked()
}

// ToggleSkip flips the skip flag and returns the updated entry.
func (s *Store) ToggleSkip(word string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key(word)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Skip = !e.Skip
	return e.clone(), s.flushLocked()
}

// Get returns a snapshot of the entry for word.
func (s *Store) Get(word string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key(word)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e.clone(), nil
}

// List returns snapshots of all entries in stable first-seen order.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.order, func(k string, _ int) Entry {
		return s.entries[k].clone()
	})
}

// Len returns the number of stored words.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// flushLocked rewrites the whole table, retrying with backoff. Assumes s.mu
// is held. The file is written in first-seen order so List stays stable
// across restarts.
func (s *Store) flushLocked() error {
	rows := make([][]string, 0, len(s.order)+1)
	rows = append(rows, header)
	for _, k := range s.order {
		e := s.entries[k]
		rows = append(rows, []string{
			e.Word,
			strings.Join(e.EN, ";"),
			strings.Join(e.JA, ";"),
			strconv.Itoa(e.Count),
			boolFlag(e.Skip),
		})
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStoreIO, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.FlushInterval
	op := func() error {
		return s.writeFile(s.path, []byte(buf.String()))
	}
	notify := func(err error, next time.Duration) {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("retry_in", next).Warn("word table flush failed")
		}
	}
	if err := backoff.RetryNotify(op, backoff.WithMaxRetries(bo, s.FlushRetries), notify); err != nil {
		return fmt.Errorf("%w: flush %s: %v", ErrStoreIO, s.path, err)
	}
	return nil
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// atomicWriteFile writes via a temp file and rename so a crash mid-write
// never corrupts the table.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
