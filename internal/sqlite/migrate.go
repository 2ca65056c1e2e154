package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"github.com/myrjola/verdict/internal/errors"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations = mustLoadMigrations(migrationFS)

// migration is one schema step. Version is the numeric prefix of the file name, e.g. 0002_history.sql.
type migration struct {
	version int
	name    string
	script  string
}

func mustLoadMigrations(fsys fs.FS) []migration {
	loaded, err := loadMigrations(fsys)
	if err != nil {
		panic(err)
	}
	return loaded
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, errors.Wrap(err, "glob migrations")
	}
	loaded := make([]migration, 0, len(entries))
	for _, entry := range entries {
		name := path.Base(entry)
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, errors.New("migration file name lacks version prefix", slog.String("name", name))
		}
		var version int
		if version, err = strconv.Atoi(prefix); err != nil {
			return nil, errors.Wrap(err, "parse migration version", slog.String("name", name))
		}
		var script []byte
		if script, err = fs.ReadFile(fsys, entry); err != nil {
			return nil, errors.Wrap(err, "read migration", slog.String("name", name))
		}
		loaded = append(loaded, migration{version: version, name: name, script: string(script)})
	}
	slices.SortFunc(loaded, func(a, b migration) int { return a.version - b.version })
	for i := 1; i < len(loaded); i++ {
		if loaded[i].version == loaded[i-1].version {
			return nil, errors.New("duplicate migration version", slog.String("name", loaded[i].name))
		}
	}
	return loaded, nil
}

// migrate applies every migration newer than the database's user_version.
//
// Each migration runs in its own transaction together with the user_version bump so that a failed migration leaves
// the database at the previous version.
func (db *Database) migrate(ctx context.Context, pending []migration) error {
	var (
		current int
		err     error
	)
	if err = db.ReadWrite.GetContext(ctx, &current, "PRAGMA user_version"); err != nil {
		return errors.Wrap(err, "read user_version")
	}

	for _, m := range pending {
		if m.version <= current {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "applying migration",
			slog.String("name", m.name), slog.Int("from", current), slog.Int("to", m.version))
		if err = db.applyMigration(ctx, m); err != nil {
			return errors.Wrap(err, "apply migration", slog.String("name", m.name))
		}
		current = m.version
	}
	return nil
}

func (db *Database) applyMigration(ctx context.Context, m migration) error {
	var (
		tx  *sql.Tx
		err error
	)
	if tx, err = db.ReadWrite.BeginTx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if err = tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(err))
		}
	}()

	if _, err = tx.ExecContext(ctx, m.script); err != nil {
		return errors.Wrap(err, "execute migration script")
	}
	// PRAGMA does not accept bound parameters.
	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return errors.Wrap(err, "bump user_version")
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}
