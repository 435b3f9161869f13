// Package docstore is the remote document store: keyed JSON documents grouped
// into collections, kept in a single Postgres table.
package docstore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	selectCollectionQuery = `SELECT data FROM documents WHERE collection = $1 ORDER BY id`

	replaceQuery = `
		INSERT INTO documents (collection, id, data, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`

	// jsonb || merges top-level keys, matching a set-with-merge on the old store.
	mergeQuery = `
		INSERT INTO documents (collection, id, data, updated_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = NOW()`
)

type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Connect establishes a new connection to the PostgreSQL database.
func Connect(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	logger.Info("Successfully connected to the document store")
	return NewFromDB(db, logger), nil
}

// NewFromDB wraps an existing connection.
func NewFromDB(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate() error {
	driver, err := postgres.WithInstance(s.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("couldn't get database instance for migrations: %w", err)
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("couldn't open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "reggenie", driver)
	if err != nil {
		return fmt.Errorf("couldn't create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("couldn't run document store migration: %w", err)
	}

	s.logger.Info("Document store migration was run successfully")
	return nil
}

// GetAll returns every document of a collection.
func (s *Store) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	var rows [][]byte
	if err := s.db.SelectContext(ctx, &rows, selectCollectionQuery, collection); err != nil {
		return nil, fmt.Errorf("failed to list collection %q: %w", collection, err)
	}

	docs := make([]json.RawMessage, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, json.RawMessage(r))
	}
	return docs, nil
}

// Upsert writes a document under (collection, id). With merge set, top-level
// fields of an existing document that data does not mention are kept.
func (s *Store) Upsert(ctx context.Context, collection, id string, data json.RawMessage, merge bool) error {
	query := replaceQuery
	if merge {
		query = mergeQuery
	}
	if _, err := s.db.ExecContext(ctx, query, collection, id, []byte(data)); err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
