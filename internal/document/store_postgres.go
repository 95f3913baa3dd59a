package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists documents in PostgreSQL. Per-key mutation
// serialization comes from the database: the upsert is a single statement, so
// concurrent writers to one ID are ordered by row-level locking.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      JSONB NOT NULL,
			owner      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
	`)
	if err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Document, error) {
	var doc Document
	var value []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, collection, key, value, owner, created_at
		FROM documents WHERE id = $1
	`, id).Scan(&doc.ID, &doc.Collection, &doc.Key, &value, &doc.Owner, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	doc.Value = json.RawMessage(value)
	return doc, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, key string, value json.RawMessage, owner string) (Document, error) {
	id := DocumentID(collection, key)
	query := `
		INSERT INTO documents (id, collection, key, value, owner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			value = EXCLUDED.value,
			owner = EXCLUDED.owner
		RETURNING id, collection, key, value, owner, created_at
	`
	var doc Document
	var stored []byte
	err := s.db.QueryRowContext(ctx, query, id, collection, key, []byte(value), owner, time.Now().UTC()).
		Scan(&doc.ID, &doc.Collection, &doc.Key, &stored, &doc.Owner, &doc.CreatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("set document %s: %w", id, err)
	}
	doc.Value = json.RawMessage(stored)
	return doc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, key, value, owner, created_at
		FROM documents WHERE collection = $1
		ORDER BY created_at, id
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		var doc Document
		var value []byte
		if err := rows.Scan(&doc.ID, &doc.Collection, &doc.Key, &value, &doc.Owner, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Value = json.RawMessage(value)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collection %s: %w", collection, err)
	}
	return out, nil
}
