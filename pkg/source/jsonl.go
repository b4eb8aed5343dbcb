package source

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/x2605/taskgrid/pkg/debug"
	"github.com/x2605/taskgrid/pkg/model"
)

// maxLineSize bounds a single JSONL line. Task descriptions can be long but
// a multi-megabyte line is corruption, not data.
const maxLineSize = 4 * 1024 * 1024

// JSONLStore reads and mutates tasks stored one-JSON-object-per-line in a
// single file. Every List re-reads the file, because the file is owned by an
// external writer and can change between calls. Mutations rewrite the whole
// file atomically via a temp file and rename.
type JSONLStore struct {
	path string

	mu sync.Mutex // serializes mutations against each other
}

// NewJSONLStore creates a store for the given file path. The file does not
// have to exist yet; List on a missing file reports the source as gone.
func NewJSONLStore(path string) (*JSONLStore, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving jsonl path: %w", err)
	}
	return &JSONLStore{path: abs}, nil
}

// Path returns the absolute path of the backing file.
func (s *JSONLStore) Path() string { return s.path }

// Valid reports whether the backing file currently exists.
func (s *JSONLStore) Valid() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Reacquire re-checks the backing file.
func (s *JSONLStore) Reacquire() error {
	if !s.Valid() {
		return fmt.Errorf("%w: %s", ErrSourceGone, s.path)
	}
	return nil
}

// List returns one handle per line. Lines that are not valid JSON are
// skipped; lines that parse but fail record validation become broken
// handles so the extractor can skip them individually.
func (s *JSONLStore) List() ([]Handle, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceGone, s.path)
		}
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	var handles []Handle
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			debug.Log("jsonl: skipping malformed line %d in %s: %v", lineNo, s.path, err)
			continue
		}
		if err := rec.Validate(); err != nil {
			handles = append(handles, NewBrokenHandle(rec, err))
			continue
		}
		handles = append(handles, NewHandle(rec))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return handles, nil
}

// records loads all valid records, for mutation rewrites.
func (s *JSONLStore) records() ([]model.Record, error) {
	handles, err := s.List()
	if err != nil {
		return nil, err
	}
	recs := make([]model.Record, 0, len(handles))
	for _, h := range handles {
		rec, err := h.Record()
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// rewrite writes the full record set back atomically.
func (s *JSONLStore) rewrite(recs []model.Record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".taskgrid-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

// update applies fn to the record with the given id and rewrites the file.
func (s *JSONLStore) update(id string, fn func(*model.Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.records()
	if err != nil {
		return err
	}
	found := false
	for i := range recs {
		if recs[i].ID == id {
			fn(&recs[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.rewrite(recs)
}

// Assign sets the assignee display name.
func (s *JSONLStore) Assign(id, assignee string) error {
	return s.update(id, func(r *model.Record) { r.Assignee = assignee })
}

// Schedule sets the due date. A zero time clears it.
func (s *JSONLStore) Schedule(id string, due time.Time) error {
	return s.update(id, func(r *model.Record) { r.Due = due })
}

// SetCompleted flips the done flag.
func (s *JSONLStore) SetCompleted(id string, done bool) error {
	return s.update(id, func(r *model.Record) { r.Completed = done })
}

// Delete removes the record entirely.
func (s *JSONLStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.records()
	if err != nil {
		return err
	}
	kept := recs[:0]
	found := false
	for _, rec := range recs {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.rewrite(kept)
}
