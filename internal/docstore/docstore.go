// Package docstore is a schemaless per-collection document store backed by
// a single sqlite table. Documents are JSON bodies addressed by
// (collection, id); there are no cross-document transactions.
package docstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Doc is one listed document: its id plus the raw JSON body.
type Doc struct {
	ID   string
	Body json.RawMessage
}

// Get performs a point read and unmarshals the body into dest.
func (s *Store) Get(collection, id string, dest any) error {
	var body []byte
	err := s.db.QueryRow(
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

// Put writes a document, fully overwriting any existing body at that id.
func (s *Store) Put(collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET body = excluded.body`,
		collection, id, string(body),
	)
	return err
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(collection, id string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

// List scans a whole collection in id order. An empty collection yields an
// empty slice, not an error.
func (s *Store) List(collection string) ([]Doc, error) {
	rows, err := s.db.Query(
		`SELECT id, body FROM documents WHERE collection = ? ORDER BY id`, collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Doc
	for rows.Next() {
		var d Doc
		var body []byte
		if err := rows.Scan(&d.ID, &body); err != nil {
			return nil, err
		}
		d.Body = json.RawMessage(body)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateField rewrites a single top-level field of a document in place,
// leaving the rest of the body untouched.
func (s *Store) UpdateField(collection, id, field string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field %s: %w", field, err)
	}
	res, err := s.db.Exec(
		`UPDATE documents SET body = json_set(body, '$.' || ?, json(?))
		 WHERE collection = ? AND id = ?`,
		field, string(encoded), collection, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection,
	).Scan(&count)
	return count, err
}
