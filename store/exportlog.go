// Package store provides SQLite-backed persistence for the export log:
// a record of every PNG the studio has handed out. The current encoding
// request itself is transient and never stored.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Export represents a single completed PNG export.
type Export struct {
	ID         string `json:"id"`
	Payload    string `json:"payload"`
	Size       int    `json:"size"`
	Level      string `json:"level"`
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	ByteSize   int    `json:"byte_size"`
	CreatedAt  int64  `json:"created_at"`
}

// ExportLog manages SQLite storage for export records.
type ExportLog struct {
	db *sql.DB
}

const createExportsTable = `
CREATE TABLE IF NOT EXISTS exports (
    id TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    size INTEGER NOT NULL,
    level TEXT NOT NULL,
    foreground TEXT NOT NULL DEFAULT '',
    background TEXT NOT NULL DEFAULT '',
    byte_size INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
`

const createExportsIndex = `
CREATE INDEX IF NOT EXISTS idx_exports_created_at ON exports(created_at);
`

// OpenExportLog opens (or creates) the SQLite database at dbPath,
// initialises the schema, and returns a ready-to-use ExportLog.
func OpenExportLog(dbPath string) (*ExportLog, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, stmt := range []string{createExportsTable, createExportsIndex} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec schema statement: %w", err)
		}
	}

	return &ExportLog{db: db}, nil
}

// Record inserts an export record and returns it with its generated ID
// and timestamp filled in.
func (l *ExportLog) Record(exp Export) (Export, error) {
	exp.ID = uuid.NewString()
	exp.CreatedAt = time.Now().Unix()

	const query = `
		INSERT INTO exports
			(id, payload, size, level, foreground, background, byte_size, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.Exec(query,
		exp.ID,
		exp.Payload,
		exp.Size,
		exp.Level,
		exp.Foreground,
		exp.Background,
		exp.ByteSize,
		exp.CreatedAt,
	)
	if err != nil {
		return Export{}, fmt.Errorf("record export: %w", err)
	}
	return exp, nil
}

// Recent returns the most recent export records, newest first.
func (l *ExportLog) Recent(limit int) ([]Export, error) {
	const query = `
		SELECT id, payload, size, level, foreground, background, byte_size, created_at
		FROM exports
		ORDER BY created_at DESC, id
		LIMIT ?
	`

	rows, err := l.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	defer rows.Close()

	var exports []Export
	for rows.Next() {
		var e Export
		if err := rows.Scan(
			&e.ID, &e.Payload, &e.Size, &e.Level,
			&e.Foreground, &e.Background, &e.ByteSize, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		exports = append(exports, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate export rows: %w", err)
	}

	return exports, nil
}

// Count returns the total number of recorded exports.
func (l *ExportLog) Count() (int64, error) {
	var n int64
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM exports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count exports: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (l *ExportLog) Close() error {
	return l.db.Close()
}
