package source

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/x2605/taskgrid/pkg/model"
)

// schema is applied by InitSQLite for fresh databases. Existing databases
// created by the external writer are used as-is.
const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	description   TEXT,
	categories    TEXT,
	completed     INTEGER NOT NULL DEFAULT 0,
	due           TIMESTAMP,
	assignee      TEXT,
	assignee_icon TEXT,
	color         TEXT,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	position      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tasks_position ON tasks(position);
`

// SQLiteStore reads and mutates tasks in a SQLite database written by an
// external process. List order follows the position column, which is the
// order the external source displays.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens a task database. Busy timeout and WAL keep reads from
// blocking the external writer.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// InitSQLite opens the database and ensures the tasks table exists. Used by
// tests and the demo seeder; real deployments already have the table.
func InitSQLite(path string) (*SQLiteStore, error) {
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(schema); err != nil {
		s.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Valid reports whether the database answers a trivial query.
func (s *SQLiteStore) Valid() bool {
	if s.db == nil {
		return false
	}
	var one int
	return s.db.QueryRow("SELECT 1").Scan(&one) == nil
}

// Reacquire pings the database and reports failure as ErrSourceGone.
func (s *SQLiteStore) Reacquire() error {
	if !s.Valid() {
		return fmt.Errorf("%w: %s", ErrSourceGone, s.path)
	}
	return nil
}

// List reads all tasks in display order. Rows that fail to scan are skipped
// rather than failing the whole listing.
func (s *SQLiteStore) List() ([]Handle, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, categories, completed, due,
		       assignee, assignee_icon, color
		FROM tasks
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying tasks: %v", ErrSourceGone, err)
	}
	defer rows.Close()

	var handles []Handle
	for rows.Next() {
		var rec model.Record
		var description, categoriesJSON, assignee, icon, color sql.NullString
		var due sql.NullTime
		var completed int

		if err := rows.Scan(&rec.ID, &rec.Title, &description, &categoriesJSON,
			&completed, &due, &assignee, &icon, &color); err != nil {
			continue
		}

		rec.Completed = completed != 0
		if description.Valid {
			rec.Description = description.String
		}
		if assignee.Valid {
			rec.Assignee = assignee.String
		}
		if icon.Valid {
			rec.AssigneeIcon = icon.String
		}
		if color.Valid {
			rec.Color = color.String
		}
		if due.Valid {
			rec.Due = due.Time
		}
		if categoriesJSON.Valid && categoriesJSON.String != "" {
			if err := json.Unmarshal([]byte(categoriesJSON.String), &rec.Categories); err != nil {
				handles = append(handles, NewBrokenHandle(rec, fmt.Errorf("parsing categories for %s: %w", rec.ID, err)))
				continue
			}
		}

		if err := rec.Validate(); err != nil {
			handles = append(handles, NewBrokenHandle(rec, err))
			continue
		}
		handles = append(handles, NewHandle(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return handles, nil
}

// Insert adds a task. Position defaults to the end.
func (s *SQLiteStore) Insert(rec model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	cats, err := json.Marshal(rec.Categories)
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	var due any
	if !rec.Due.IsZero() {
		due = rec.Due
	}
	_, err = s.db.Exec(`
		INSERT INTO tasks (id, title, description, categories, completed, due,
		                   assignee, assignee_icon, color, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
		        (SELECT COALESCE(MAX(position), 0) + 1 FROM tasks))
	`, rec.ID, rec.Title, rec.Description, string(cats), boolToInt(rec.Completed),
		due, rec.Assignee, rec.AssigneeIcon, rec.Color)
	if err != nil {
		return fmt.Errorf("inserting %s: %w", rec.ID, err)
	}
	return nil
}

// Assign sets the assignee display name.
func (s *SQLiteStore) Assign(id, assignee string) error {
	return s.exec("UPDATE tasks SET assignee = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id, assignee, id)
}

// Schedule sets the due date. A zero time clears it.
func (s *SQLiteStore) Schedule(id string, due time.Time) error {
	var v any
	if !due.IsZero() {
		v = due
	}
	return s.exec("UPDATE tasks SET due = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id, v, id)
}

// SetCompleted flips the done flag.
func (s *SQLiteStore) SetCompleted(id string, done bool) error {
	return s.exec("UPDATE tasks SET completed = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id, boolToInt(done), id)
}

// Delete removes the task row.
func (s *SQLiteStore) Delete(id string) error {
	return s.exec("DELETE FROM tasks WHERE id = ?", id, id)
}

// exec runs a single-row statement and maps zero affected rows to
// ErrNotFound.
func (s *SQLiteStore) exec(query, id string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("mutating %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mutating %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
