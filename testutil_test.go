package sqlitepg_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/bcomnes/sqlitepg"
)

// postSchema mirrors the table Prisma creates for the Post model in SQLite.
const postSchema = `CREATE TABLE "Post" (
    "id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    "username" TEXT NOT NULL,
    "content" TEXT NOT NULL,
    "image" TEXT,
    "createdAt" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type sourceRow struct {
	id        int64
	username  string
	content   string
	image     any
	createdAt any
}

// exampleRows are inserted out of id order on purpose.
var exampleRows = []sourceRow{
	{2, "bob", "world", "img.png", int64(1700000100000)},
	{1, "alice", "hello", nil, int64(1700000000000)},
}

// newSourceFile creates a SQLite file holding a Post table with rows.
func newSourceFile(t *testing.T, rows ...sourceRow) string {
	t.Helper()
	return newSourceFileWithSchema(t, postSchema, "Post", rows...)
}

func newSourceFileWithSchema(t *testing.T, schema, table string, rows ...sourceRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dev.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(schema)
	require.NoError(t, err)
	for _, r := range rows {
		_, err = db.Exec(
			fmt.Sprintf(`INSERT INTO %q (id, username, content, image, "createdAt") VALUES (?, ?, ?, ?, ?)`, table),
			r.id, r.username, r.content, r.image, r.createdAt,
		)
		require.NoError(t, err)
	}
	return path
}

// fakeDestination records what a run does to the destination table.
type fakeDestination struct {
	rows         []sqlitepg.Record
	truncates    int
	failInsertAt int
	truncateErr  error
	atomicCalls  int
	closed       int
}

func newFakeDestination() *fakeDestination {
	return &fakeDestination{failInsertAt: -1}
}

func (f *fakeDestination) Truncate(ctx context.Context) error {
	if f.truncateErr != nil {
		return fmt.Errorf("%w: %v", sqlitepg.ErrQuery, f.truncateErr)
	}
	f.truncates++
	f.rows = nil
	return nil
}

func (f *fakeDestination) Insert(ctx context.Context, r sqlitepg.Record) error {
	if f.failInsertAt == len(f.rows) {
		return fmt.Errorf("%w: insert id %d: %v", sqlitepg.ErrQuery, r.ID, errors.New("duplicate key"))
	}
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeDestination) Atomic(ctx context.Context, fn func(sqlitepg.TableWriter) error) error {
	f.atomicCalls++
	saved := append([]sqlitepg.Record(nil), f.rows...)
	savedTruncates := f.truncates
	if err := fn(f); err != nil {
		f.rows = saved
		f.truncates = savedTruncates
		return err
	}
	return nil
}

func (f *fakeDestination) Close() {
	f.closed++
}

// dialerFor returns a DestinationDialer handing out dst and counting calls.
func dialerFor(dst sqlitepg.RecordDestination, calls *int) sqlitepg.DestinationDialer {
	return func(ctx context.Context, cfg sqlitepg.Config) (sqlitepg.RecordDestination, error) {
		*calls++
		return dst, nil
	}
}

// fakeSource serves fixed records and counts Close calls.
type fakeSource struct {
	records  []sqlitepg.Record
	fetchErr error
	closed   int
}

func (f *fakeSource) FetchRecords(ctx context.Context) ([]sqlitepg.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.records, nil
}

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func openerFor(src sqlitepg.RecordSource) sqlitepg.SourceOpener {
	return func(ctx context.Context, cfg sqlitepg.Config) (sqlitepg.RecordSource, error) {
		return src, nil
	}
}

func strPtr(s string) *string { return &s }
