package history_test

import (
	"context"
	"github.com/myrjola/verdict/internal/sqlite"
	"github.com/myrjola/verdict/internal/testhelpers"
	"io"
	"testing"
)

// newTestDB creates a new migrated in-memory database for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	dbs, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(io.Discard))
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		if err = dbs.Close(); err != nil {
			t.Error(err)
		}
	})
	return dbs
}
