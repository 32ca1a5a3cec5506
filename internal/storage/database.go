package storage

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// New opens a SQLite database connection at the given path.
// Foreign keys are enabled on every pooled connection through the DSN.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			mode TEXT NOT NULL,
			layout TEXT NOT NULL,
			chunk_count INTEGER NOT NULL,
			image_count INTEGER NOT NULL DEFAULT 0,
			built_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_name TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			section_title TEXT NOT NULL,
			page_id TEXT NOT NULL,
			content_type TEXT NOT NULL,
			char_count INTEGER NOT NULL,
			oversized INTEGER NOT NULL DEFAULT 0,
			images TEXT NOT NULL DEFAULT '[]',
			text TEXT NOT NULL,
			FOREIGN KEY (document_name) REFERENCES documents(name) ON DELETE CASCADE,
			UNIQUE (document_name, chunk_index)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_name, chunk_index);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
