package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one audit record. Fields beyond the fixed ones are carried in
// Extra and flattened into the written object.
type Entry struct {
	Status string
	Extra  map[string]any
}

// Writer appends JSON-lines audit records to a daily file in a fixed
// directory. File names follow publish_YYYY-MM-DD.json, one object per line.
type Writer struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// New returns a Writer rooted at dir, creating the directory if needed.
func New(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

// Append writes one record to today's file. The record carries a timestamp,
// the status token, and every key from extra.
func (w *Writer) Append(status string, extra map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := w.now().UTC()
	record := make(map[string]any, len(extra)+2)
	for key, value := range extra {
		record[key] = value
	}
	record["timestamp"] = ts.Format(time.RFC3339)
	record["status"] = status

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("publish_%s.json", ts.Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}
