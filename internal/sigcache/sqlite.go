package sigcache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"geminibridge/internal/logger"
)

const (
	// durableCap bounds the on-disk table. When an insert would exceed it,
	// the oldest decile is evicted first.
	durableCap = 10000

	createTableSQL = `
CREATE TABLE IF NOT EXISTS signatures (
	tool_call_id TEXT PRIMARY KEY,
	signature    TEXT NOT NULL,
	thought_text TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signatures_created_at ON signatures(created_at);
`
)

// SQLiteStore persists signature records in a local SQLite database so that
// reasoning continuity survives proxy restarts.
type SQLiteStore struct {
	db *sql.DB
}

// DefaultPath returns the on-disk location of the signature database.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve home directory: %w", err)
	}
	return filepath.Join(home, ".gemini", "signature-cache.db"), nil
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("could not create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("could not open signature database: %w", err)
	}
	// modernc.org/sqlite is happiest with a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize signature schema: %w", err)
	}

	logger.Get().Debug().Str("path", path).Msg("Opened signature database")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(rec Record) error {
	if err := s.evictIfFull(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO signatures (tool_call_id, signature, thought_text, created_at) VALUES (?, ?, ?, ?)`,
		rec.ToolCallID, rec.Signature, rec.ThoughtText, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("could not store signature: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(toolCallID string) (Record, bool, error) {
	var rec Record
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT tool_call_id, signature, thought_text, created_at FROM signatures WHERE tool_call_id = ?`,
		toolCallID,
	).Scan(&rec.ToolCallID, &rec.Signature, &rec.ThoughtText, &createdAt)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("could not load signature: %w", err)
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	return rec, true, nil
}

func (s *SQLiteStore) DeleteBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM signatures WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("could not sweep signatures: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLiteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM signatures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("could not count signatures: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM signatures`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// evictIfFull drops the oldest tenth of the table once it reaches the cap.
func (s *SQLiteStore) evictIfFull() error {
	n, err := s.Count()
	if err != nil {
		return err
	}
	if n < durableCap {
		return nil
	}
	_, err = s.db.Exec(
		`DELETE FROM signatures WHERE tool_call_id IN (
			SELECT tool_call_id FROM signatures ORDER BY created_at ASC LIMIT ?
		)`, durableCap/10,
	)
	if err != nil {
		return fmt.Errorf("could not evict old signatures: %w", err)
	}
	logger.Get().Debug().Int("evicted", durableCap/10).Msg("Evicted oldest signature decile")
	return nil
}
