package source

import (
	"fmt"
	"sync"
	"time"

	"github.com/x2605/taskgrid/pkg/model"
)

// MemoryStore is an in-process Store used by tests and the demo seed mode.
// It supports the same mutation set as the real backends and can simulate a
// vanished container via SetValid.
type MemoryStore struct {
	mu    sync.Mutex
	recs  []model.Record
	valid bool

	// ListErr, when set, is returned by the next List call. Lets tests
	// exercise the detector's error recovery.
	ListErr error
}

// NewMemoryStore creates a store seeded with the given records.
func NewMemoryStore(recs ...model.Record) *MemoryStore {
	m := &MemoryStore{valid: true}
	m.recs = append(m.recs, recs...)
	return m
}

// SetValid toggles the simulated container validity.
func (m *MemoryStore) SetValid(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = v
}

// SetRecords replaces the whole record set, simulating external edits.
func (m *MemoryStore) SetRecords(recs []model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append([]model.Record(nil), recs...)
}

// Records returns a copy of the current record set.
func (m *MemoryStore) Records() []model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Record(nil), m.recs...)
}

// Valid reports the simulated container validity.
func (m *MemoryStore) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Reacquire restores validity, mimicking a re-found container.
func (m *MemoryStore) Reacquire() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valid = true
	return nil
}

// List returns handles over the current records.
func (m *MemoryStore) List() ([]Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		err := m.ListErr
		m.ListErr = nil
		return nil, err
	}
	if !m.valid {
		return nil, ErrSourceGone
	}
	handles := make([]Handle, 0, len(m.recs))
	for _, rec := range m.recs {
		handles = append(handles, NewHandle(rec))
	}
	return handles, nil
}

func (m *MemoryStore) update(id string, fn func(*model.Record)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			fn(&m.recs[i])
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Assign sets the assignee display name.
func (m *MemoryStore) Assign(id, assignee string) error {
	return m.update(id, func(r *model.Record) { r.Assignee = assignee })
}

// Schedule sets the due date.
func (m *MemoryStore) Schedule(id string, due time.Time) error {
	return m.update(id, func(r *model.Record) { r.Due = due })
}

// SetCompleted flips the done flag.
func (m *MemoryStore) SetCompleted(id string, done bool) error {
	return m.update(id, func(r *model.Record) { r.Completed = done })
}

// Delete removes the record.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.recs {
		if m.recs[i].ID == id {
			m.recs = append(m.recs[:i], m.recs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
