// Package source defines the boundary to the external task store taskgrid
// observes and mutates. The engine never touches a backend directly; it goes
// through the Handle/Source/Mutator contracts so backends (JSONL file, SQLite
// database, in-memory fake) are interchangeable.
package source

import (
	"errors"
	"time"

	"github.com/x2605/taskgrid/pkg/model"
)

// Common errors.
var (
	// ErrNotFound is returned by mutations targeting an id the source no
	// longer contains.
	ErrNotFound = errors.New("record not found in source")
	// ErrSourceGone is returned when the backing store has vanished
	// entirely (file deleted, database unreachable).
	ErrSourceGone = errors.New("external source is gone")
)

// Handle is a lightweight accessor for one record as currently present in
// the external source. The cheap text accessors never fail; the full parse
// may, in which case the extractor skips the record.
type Handle interface {
	// ID returns the source-assigned identifier, empty when the source
	// did not expose one.
	ID() string
	// Title returns the display title.
	Title() string
	// Completed reports the done flag.
	Completed() bool
	// DateText returns the due date as displayed, empty when unscheduled.
	DateText() string
	// AssigneeText returns the assignee display name, empty when
	// unassigned.
	AssigneeText() string
	// Record performs the full parse.
	Record() (model.Record, error)
}

// Source lists the records currently visible in the external store.
type Source interface {
	// List returns one handle per visible record, in source order.
	List() ([]Handle, error)
	// Valid reports whether the backing store is still reachable.
	Valid() bool
	// Reacquire re-establishes the connection to the backing store after
	// Valid has gone false. It is a no-op when the store is healthy.
	Reacquire() error
}

// Mutator performs the externally-verified mutations. Every method returns
// once the mutation has been issued; whether it actually took effect is the
// verifier's business, observed through a fresh List.
type Mutator interface {
	Assign(id, assignee string) error
	Schedule(id string, due time.Time) error
	SetCompleted(id string, done bool) error
	Delete(id string) error
}

// Store combines reading and mutating, which every real backend supports.
type Store interface {
	Source
	Mutator
}

// recordHandle adapts an already-parsed record (plus its parse error, if
// any) to the Handle interface. Both file-backed backends parse eagerly at
// List time and hand out these.
type recordHandle struct {
	rec model.Record
	err error
}

func (h recordHandle) ID() string { return h.rec.ID }

func (h recordHandle) Title() string { return h.rec.Title }

func (h recordHandle) Completed() bool { return h.rec.Completed }

func (h recordHandle) DateText() string { return h.rec.DueLabel() }

func (h recordHandle) AssigneeText() string { return h.rec.Assignee }

func (h recordHandle) Record() (model.Record, error) {
	if h.err != nil {
		return model.Record{}, h.err
	}
	return h.rec, nil
}

// NewHandle wraps a parsed record as a Handle. Exposed for tests and for
// backends living outside this package.
func NewHandle(rec model.Record) Handle {
	return recordHandle{rec: rec}
}

// NewBrokenHandle wraps a record whose full parse failed. The cheap
// accessors still serve whatever partial data was recovered.
func NewBrokenHandle(rec model.Record, err error) Handle {
	return recordHandle{rec: rec, err: err}
}
