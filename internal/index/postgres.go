package index

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/openpress/openpress/internal/topic"
)

// PostgresStore persists the index in a database instead of a JSON file.
// Same contract as FileStore: load once at run start, save once at commit.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrIndexUnavailable, err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return ps, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		signature VARCHAR(64) PRIMARY KEY,
		title TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		source_refs TEXT,
		article_path TEXT,
		status VARCHAR(20) NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_topics_created_at ON topics(created_at);
	`
	if _, err := ps.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load reads all topic records into a fresh index.
func (ps *PostgresStore) Load() (*Index, error) {
	rows, err := ps.db.Query(`
		SELECT signature, title, created_at, COALESCE(source_refs, ''), COALESCE(article_path, ''), status
		FROM topics
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: query topics: %v", ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var records []topic.Record
	for rows.Next() {
		var rec topic.Record
		var refs, status string
		if err := rows.Scan(&rec.Signature, &rec.Title, &rec.CreatedAt, &refs, &rec.ArticlePath, &status); err != nil {
			return nil, fmt.Errorf("%w: scan topic: %v", ErrIndexUnavailable, err)
		}
		if refs != "" {
			rec.SourceRefs = strings.Split(refs, "\n")
		}
		rec.Status = topic.Status(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read topics: %v", ErrIndexUnavailable, err)
	}

	ix := New()
	ix.ReplaceAll(records)
	return ix, nil
}

// Save replaces the stored record set in a single transaction, matching
// the all-or-nothing swap of the file store.
func (ps *PostgresStore) Save(records []topic.Record) error {
	tx, err := ps.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM topics`); err != nil {
		return fmt.Errorf("failed to clear topics: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO topics (signature, title, created_at, source_refs, article_path, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		refs := strings.Join(rec.SourceRefs, "\n")
		if _, err := stmt.Exec(rec.Signature, rec.Title, rec.CreatedAt, refs, rec.ArticlePath, string(rec.Status)); err != nil {
			return fmt.Errorf("failed to insert topic %s: %w", rec.Signature, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index save: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}
