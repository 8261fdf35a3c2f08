// Package archive appends finished sentence translations to a flat CSV
// history file, one row per sentence.
package archive

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var header = []string{"time", "german", "japanese", "english"}

// Writer appends sentence rows to a CSV file, writing the header when the
// file is first created.
type Writer struct {
	mu   sync.Mutex
	path string
}

// NewWriter returns a Writer for path. The file is created lazily on the
// first append.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Append writes one sentence row. Safe for concurrent use.
func (w *Writer) Append(at time.Time, german, english, japanese string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("archive dir: %w", err)
	}
	_, statErr := os.Stat(w.path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needHeader {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write archive header: %w", err)
		}
	}
	row := []string{at.Format("20060102150405"), german, japanese, english}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("write archive row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}
