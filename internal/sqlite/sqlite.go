// Package sqlite opens the application database as a pair of connection pools and keeps its schema current.
package sqlite

import (
	"context"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/myrjola/verdict/internal/random"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
)

const (
	maxReadConns     = 10
	connMaxLifetime  = time.Hour
	optimizeInterval = time.Hour
	memoryNameLength = 20
)

// Database holds one pool for writes and one for reads. SQLite allows a single writer, so ReadWrite has exactly one
// connection and starts transactions with BEGIN IMMEDIATE. ReadOnly is opened in query-only mode.
//
// See https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995.
type Database struct {
	ReadWrite *sqlx.DB
	ReadOnly  *sqlx.DB
	logger    *slog.Logger
}

// NewDatabase connects to the database at dbURL, applies pending migrations, and optimizes it periodically until
// ctx is done.
//
// dbURL is the path to the SQLite database file or ":memory:" for a private in-memory database.
func NewDatabase(ctx context.Context, dbURL string, logger *slog.Logger) (*Database, error) {
	db, err := connect(dbURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}

	if err = db.migrate(ctx, migrations); err != nil {
		return nil, errors.Join(errors.Wrap(err, "migrate schema"), db.Close())
	}

	go db.optimizePeriodically(ctx, optimizeInterval)

	return db, nil
}

// dsn builds a go-sqlite3 data source name. Keys prefixed with an underscore are pragmas
// (https://www.sqlite.org/pragma.html), the rest are URI parameters (https://www.sqlite.org/uri.html).
func dsn(path string, params url.Values) string {
	return "file:" + path + "?" + params.Encode()
}

func commonParams() url.Values {
	return url.Values{
		// Write-ahead logging lets readers proceed while the writer commits.
		"_journal_mode": {"wal"},
		"_busy_timeout": {"5000"},
		"_synchronous":  {"normal"},
		"_foreign_keys": {"on"},
		"_temp_store":   {"memory"},
	}
}

func connect(dbURL string, logger *slog.Logger) (*Database, error) {
	readParams := commonParams()
	writeParams := commonParams()
	readParams.Set("mode", "ro")
	readParams.Set("_txlock", "deferred")
	readParams.Set("_query_only", "true")
	writeParams.Set("mode", "rwc")
	writeParams.Set("_txlock", "immediate")

	path := dbURL
	if strings.Contains(dbURL, ":memory:") {
		// Both pools must see the same in-memory database, and parallel tests must not, so every in-memory database
		// gets a random name in a shared cache. See https://www.sqlite.org/inmemorydb.html.
		name, err := random.Letters(memoryNameLength)
		if err != nil {
			return nil, errors.Wrap(err, "generate in-memory database name")
		}
		path = name
		readParams.Set("mode", "memory")
		writeParams.Set("mode", "memory")
		readParams.Set("cache", "shared")
		writeParams.Set("cache", "shared")
	}

	readWriteDB, err := sqlx.Open("sqlite3", dsn(path, writeParams))
	if err != nil {
		return nil, errors.Wrap(err, "open read-write database")
	}
	readWriteDB.SetMaxOpenConns(1)
	readWriteDB.SetMaxIdleConns(1)
	readWriteDB.SetConnMaxLifetime(connMaxLifetime)
	readWriteDB.SetConnMaxIdleTime(connMaxLifetime)

	// The writer creates the database, so it has to connect before the reader.
	if err = readWriteDB.Ping(); err != nil {
		return nil, errors.Join(errors.Wrap(err, "ping read-write database"), readWriteDB.Close())
	}

	readDB, err := sqlx.Open("sqlite3", dsn(path, readParams))
	if err != nil {
		return nil, errors.Join(errors.Wrap(err, "open read database"), readWriteDB.Close())
	}
	readDB.SetMaxOpenConns(maxReadConns)
	readDB.SetMaxIdleConns(maxReadConns)
	readDB.SetConnMaxLifetime(connMaxLifetime)
	readDB.SetConnMaxIdleTime(connMaxLifetime)

	return &Database{
		ReadWrite: readWriteDB,
		ReadOnly:  readDB,
		logger:    logger.With("source", "sqlite"),
	}, nil
}

// Ping checks that both pools can reach the database.
func (db *Database) Ping(ctx context.Context) error {
	if err := db.ReadWrite.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping read-write database")
	}
	if err := db.ReadOnly.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping read database")
	}
	return nil
}

// Close closes both connection pools.
func (db *Database) Close() error {
	return errors.Join(db.ReadOnly.Close(), db.ReadWrite.Close())
}
