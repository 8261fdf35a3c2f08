package wordstore

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "word.csv")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.FlushInterval = time.Millisecond
	return s
}

func writeTable(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "word.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestUpsertCreatesWithCountOne(t *testing.T) {
	s := tempStore(t)
	e, err := s.Upsert("Hund", []string{"dog", "hound"}, []string{"犬"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if e.Count != 1 {
		t.Fatalf("expected count 1, got %d", e.Count)
	}
	if e.Skip {
		t.Fatalf("new entry must not be skipped")
	}
	if !reflect.DeepEqual(e.EN, []string{"dog", "hound"}) {
		t.Fatalf("unexpected EN candidates %v", e.EN)
	}
	if !reflect.DeepEqual(e.JA, []string{"犬"}) {
		t.Fatalf("unexpected JA candidates %v", e.JA)
	}
}

func TestUpsertIncrementsAndMerges(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Upsert("Hund", []string{"dog"}, []string{"犬"}); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	e, err := s.Upsert("Hund", []string{"dog", "hound"}, []string{"犬", "イヌ"})
	if err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if e.Count != 2 {
		t.Fatalf("expected count 2, got %d", e.Count)
	}
	if !reflect.DeepEqual(e.EN, []string{"dog", "hound"}) {
		t.Fatalf("expected deduped ordered EN, got %v", e.EN)
	}
	if !reflect.DeepEqual(e.JA, []string{"犬", "イヌ"}) {
		t.Fatalf("expected deduped ordered JA, got %v", e.JA)
	}
}

func TestUpsertSamePairTwiceDoesNotDuplicate(t *testing.T) {
	s := tempStore(t)
	s.Upsert("Hund", []string{"dog"}, []string{"犬"})
	e, _ := s.Upsert("Hund", []string{"dog"}, []string{"犬"})
	if len(e.EN) != 1 || len(e.JA) != 1 {
		t.Fatalf("expected no duplicates, got EN=%v JA=%v", e.EN, e.JA)
	}
}

func TestUpsertKeyIsCaseInsensitive(t *testing.T) {
	s := tempStore(t)
	s.Upsert("Hund", nil, nil)
	e, err := s.Upsert("hund", nil, nil)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if e.Count != 2 {
		t.Fatalf("expected case-insensitive match, count=%d", e.Count)
	}
	if e.Word != "Hund" {
		t.Fatalf("canonical form should be first-seen casing, got %q", e.Word)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestUpsertIgnoresBlankCandidates(t *testing.T) {
	s := tempStore(t)
	e, _ := s.Upsert("Hund", []string{"", "  ", "dog"}, []string{" "})
	if !reflect.DeepEqual(e.EN, []string{"dog"}) {
		t.Fatalf("blank candidates must be dropped, got %v", e.EN)
	}
	if e.JA != nil {
		t.Fatalf("expected no JA candidates, got %v", e.JA)
	}
}

func TestUpsertEmptyWord(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Upsert("   ", nil, nil); err == nil {
		t.Fatalf("expected error for empty word")
	}
}

func TestToggleSkipRoundTrip(t *testing.T) {
	s := tempStore(t)
	s.Upsert("Hund", []string{"dog"}, nil)

	e, err := s.ToggleSkip("Hund")
	if err != nil {
		t.Fatalf("toggle 1: %v", err)
	}
	if !e.Skip {
		t.Fatalf("expected skip=true after first toggle")
	}
	e, err = s.ToggleSkip("Hund")
	if err != nil {
		t.Fatalf("toggle 2: %v", err)
	}
	if e.Skip {
		t.Fatalf("expected skip=false after second toggle")
	}
	if e.Count != 1 || !reflect.DeepEqual(e.EN, []string{"dog"}) {
		t.Fatalf("toggling must not change count or candidates: %+v", e)
	}
}

func TestToggleSkipUnknownWord(t *testing.T) {
	s := tempStore(t)
	if _, err := s.ToggleSkip("Katze"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetSkipIdempotent(t *testing.T) {
	s := tempStore(t)
	s.Upsert("Hund", nil, nil)
	flushes := 0
	inner := s.writeFile
	s.writeFile = func(path string, data []byte) error {
		flushes++
		return inner(path, data)
	}
	if _, err := s.SetSkip("Hund", false); err != nil {
		t.Fatalf("set skip: %v", err)
	}
	if flushes != 0 {
		t.Fatalf("no-op flag write must not flush")
	}
	if _, err := s.SetSkip("Hund", true); err != nil {
		t.Fatalf("set skip: %v", err)
	}
	if flushes != 1 {
		t.Fatalf("expected exactly one flush, got %d", flushes)
	}
}

func TestGetNotFound(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Get("Katze"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFirstSeenOrder(t *testing.T) {
	s := tempStore(t)
	for _, w := range []string{"Der", "Hund", "Läuft", "Schnell"} {
		s.Upsert(w, nil, nil)
	}
	s.Upsert("Hund", nil, nil) // count bump must not reorder

	var words []string
	for _, e := range s.List() {
		words = append(words, e.Word)
	}
	want := []string{"Der", "Hund", "Läuft", "Schnell"}
	if !reflect.DeepEqual(words, want) {
		t.Fatalf("expected %v, got %v", want, words)
	}
}

func TestLegacyTwoColumnUpgrade(t *testing.T) {
	path := writeTable(t, "word,translation\nhund,dog\n")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open legacy store: %v", err)
	}
	e, err := s.Get("hund")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e.Count != 1 || e.Skip || !reflect.DeepEqual(e.EN, []string{"dog"}) || e.JA != nil {
		t.Fatalf("unexpected migrated entry %+v", e)
	}

	// Any write persists the current 5-column layout.
	if _, err := s.ToggleSkip("hund"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "word,en,ja,count,skip" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "hund,dog,,1,1" {
		t.Fatalf("unexpected row %q", lines[1])
	}

	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	e2, _ := s2.Get("Hund")
	if e2.Count != 1 || !e2.Skip || !reflect.DeepEqual(e2.EN, []string{"dog"}) {
		t.Fatalf("round-trip mismatch %+v", e2)
	}
}

func TestLegacyWordCountUpgrade(t *testing.T) {
	path := writeTable(t, "word,count\nHund,7\nKatze,0\n")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, _ := s.Get("Hund")
	if e.Count != 7 || len(e.EN) != 0 || len(e.JA) != 0 {
		t.Fatalf("unexpected entry %+v", e)
	}
	// A zero count is clamped to the invariant minimum.
	e, _ = s.Get("Katze")
	if e.Count != 1 {
		t.Fatalf("expected clamped count 1, got %d", e.Count)
	}
}

func TestLegacyFourColumnUpgrade(t *testing.T) {
	path := writeTable(t, "word,en,ja,count\nHund,dog;hound,犬,3\nKurz\n")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	e, _ := s.Get("Hund")
	if e.Count != 3 || e.Skip {
		t.Fatalf("unexpected entry %+v", e)
	}
	if !reflect.DeepEqual(e.EN, []string{"dog", "hound"}) {
		t.Fatalf("expected split candidates, got %v", e.EN)
	}
	// Short row gets full defaults.
	e, _ = s.Get("Kurz")
	if e.Count != 1 || e.Skip || e.EN != nil || e.JA != nil {
		t.Fatalf("unexpected defaulted entry %+v", e)
	}
}

func TestCurrentSchemaRoundTrip(t *testing.T) {
	s := tempStore(t)
	s.Upsert("Hund", []string{"dog", "hound"}, []string{"犬"})
	s.Upsert("Katze", []string{"cat"}, nil)
	s.ToggleSkip("Katze")

	s2, err := Open(s.path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reflect.DeepEqual(s.List(), s2.List()) {
		t.Fatalf("round trip mismatch:\n%v\n%v", s.List(), s2.List())
	}
}

func TestOpenCorruptTable(t *testing.T) {
	path := writeTable(t, "id,value\n1,2\n")
	if _, err := Open(path, nil); !errors.Is(err, ErrStoreIO) {
		t.Fatalf("expected ErrStoreIO for bad header, got %v", err)
	}
	path = writeTable(t, "word,en,ja,count,skip\n\"unterminated\n")
	if _, err := Open(path, nil); !errors.Is(err, ErrStoreIO) {
		t.Fatalf("expected ErrStoreIO for bad csv, got %v", err)
	}
}

func TestFlushRetriesThenRecovers(t *testing.T) {
	s := tempStore(t)
	failures := 2
	inner := s.writeFile
	s.writeFile = func(path string, data []byte) error {
		if failures > 0 {
			failures--
			return errors.New("disk unhappy")
		}
		return inner(path, data)
	}
	if _, err := s.Upsert("Hund", []string{"dog"}, nil); err != nil {
		t.Fatalf("expected flush to recover within retry budget, got %v", err)
	}
}

func TestFlushFailureKeepsMemoryState(t *testing.T) {
	s := tempStore(t)
	s.FlushRetries = 1
	s.writeFile = func(path string, data []byte) error {
		return errors.New("disk gone")
	}
	e, err := s.Upsert("Hund", []string{"dog"}, nil)
	if !errors.Is(err, ErrStoreIO) {
		t.Fatalf("expected ErrStoreIO, got %v", err)
	}
	if e.Count != 1 {
		t.Fatalf("entry must still be returned, got %+v", e)
	}
	got, err := s.Get("Hund")
	if err != nil {
		t.Fatalf("in-memory state must be retained: %v", err)
	}
	if got.Count != 1 {
		t.Fatalf("unexpected retained entry %+v", got)
	}
}
