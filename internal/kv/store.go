// Package kv is a small key-value store with prepend-only lists, backed by SQLite.
package kv

import (
	"context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/sqlite"
	"log/slog"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.NewSentinel("key not found")

// Writer is the set of writes that can be batched in [Store.Update].
type Writer interface {
	Set(ctx context.Context, key, value string) error
	ListPrepend(ctx context.Context, key, value string) error
}

type Store struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewStore(dbs *sqlite.Database, logger *slog.Logger) *Store {
	return &Store{
		dbs:    dbs,
		logger: logger.With("source", "kv.Store"),
	}
}

// Get returns the value stored under key or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.dbs.ReadOnly.GetContext(ctx, &value, `SELECT value FROM kv_values WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.Wrap(ErrNotFound, "get", slog.String("key", key))
	}
	if err != nil {
		return "", errors.Wrap(err, "get", slog.String("key", key))
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return txWriter{tx: s.dbs.ReadWrite}.Set(ctx, key, value)
}

// ListPrepend adds value to the head of the list stored under key.
func (s *Store) ListPrepend(ctx context.Context, key, value string) error {
	return txWriter{tx: s.dbs.ReadWrite}.ListPrepend(ctx, key, value)
}

// ListRange returns the list stored under key from head to tail. A missing list is empty.
func (s *Store) ListRange(ctx context.Context, key string) ([]string, error) {
	var values []string
	if err := s.dbs.ReadOnly.SelectContext(ctx, &values,
		`SELECT value FROM kv_list_items WHERE key = ? ORDER BY position`, key); err != nil {
		return nil, errors.Wrap(err, "list range", slog.String("key", key))
	}
	return values, nil
}

// Update runs fn inside one transaction. Either all writes made through the Writer are committed or none are.
func (s *Store) Update(ctx context.Context, fn func(w Writer) error) error {
	var (
		tx  *sqlx.Tx
		err error
	)
	if tx, err = s.dbs.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if err = tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(err))
		}
	}()

	if err = fn(txWriter{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// txWriter issues writes against either the read-write pool or an open transaction.
type txWriter struct {
	tx sqlx.ExecerContext
}

func (w txWriter) Set(ctx context.Context, key, value string) error {
	stmt := `INSERT INTO kv_values (key, value) VALUES (:key, :value)
ON CONFLICT (key) DO UPDATE SET value = :value, updated_at = STRFTIME('%Y-%m-%dT%H:%M:%fZ')`
	if _, err := w.tx.ExecContext(ctx, stmt, sql.Named("key", key), sql.Named("value", value)); err != nil {
		return errors.Wrap(err, "set", slog.String("key", key))
	}
	return nil
}

func (w txWriter) ListPrepend(ctx context.Context, key, value string) error {
	stmt := `INSERT INTO kv_list_items (key, position, value)
VALUES (:key, (SELECT COALESCE(MIN(position), 0) - 1 FROM kv_list_items WHERE key = :key), :value)`
	if _, err := w.tx.ExecContext(ctx, stmt, sql.Named("key", key), sql.Named("value", value)); err != nil {
		return errors.Wrap(err, "list prepend", slog.String("key", key))
	}
	return nil
}
