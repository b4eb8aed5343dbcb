package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/x2605/taskgrid/pkg/debug"
)

// Candidate names probed by Discover, in priority order when timestamps tie.
var (
	sqliteNames = []string{"tasks.db", "tasks.sqlite"}
	jsonlNames  = []string{"tasks.jsonl"}
)

// Candidate describes a discovered backing store before it is opened.
type Candidate struct {
	Path     string
	SQLite   bool
	ModTime  time.Time
	Priority int // higher wins when ModTime ties
}

// Open opens a Store for the given path, choosing the backend by extension.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	case ".jsonl", ".ndjson":
		return NewJSONLStore(path)
	default:
		return nil, fmt.Errorf("unrecognized source file type: %s", path)
	}
}

// Discover probes a directory for known store files and opens the freshest
// one. SQLite wins ties because it is the authoritative store when both are
// kept in sync by the external writer.
func Discover(dir string) (Store, error) {
	var candidates []Candidate
	for _, name := range sqliteNames {
		if c, ok := probe(filepath.Join(dir, name), true); ok {
			candidates = append(candidates, c)
		}
	}
	for _, name := range jsonlNames {
		if c, ok := probe(filepath.Join(dir, name), false); ok {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no task store found in %s", dir)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.ModTime.After(best.ModTime) ||
			(c.ModTime.Equal(best.ModTime) && c.Priority > best.Priority) {
			best = c
		}
	}
	debug.Log("source: selected %s (sqlite=%v, mod=%s)", best.Path, best.SQLite, best.ModTime.Format(time.RFC3339))

	if best.SQLite {
		return OpenSQLite(best.Path)
	}
	return NewJSONLStore(best.Path)
}

func probe(path string, sqlite bool) (Candidate, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Candidate{}, false
	}
	c := Candidate{Path: path, SQLite: sqlite, ModTime: info.ModTime(), Priority: 50}
	if sqlite {
		c.Priority = 100
	}
	return c, true
}
