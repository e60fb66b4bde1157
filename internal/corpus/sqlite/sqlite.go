// Package sqlite keeps the corpus in a single SQLite table so a deployment can
// ship one database file instead of a directory of text files.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"docqa/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
	id   TEXT PRIMARY KEY,
	text TEXT NOT NULL
)`

// Store is a CorpusStore backed by SQLite.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect corpus database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create corpus schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Import replaces the table contents with every document of src in one transaction.
func (s *Store) Import(ctx context.Context, src domain.CorpusStore) (int, error) {
	ids, err := src.IDs(ctx)
	if err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO documents (id, text) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, id := range ids {
		text, err := src.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, id, text); err != nil {
			return 0, fmt.Errorf("insert document %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(ids), nil
}

// IDs lists the stored document ids in ascending order.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM documents ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return ids, nil
}

// Get returns the text of one document.
func (s *Store) Get(ctx context.Context, id string) (string, error) {
	const op = "sqlite.Get"
	var text string
	err := s.db.GetContext(ctx, &text, `SELECT text FROM documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.Errorf(domain.KindMissingDocument, op, "no text stored for document %q", id)
	}
	if err != nil {
		return "", domain.Wrap(domain.KindMissingDocument, op, err)
	}
	return text, nil
}
