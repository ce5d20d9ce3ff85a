package sqlitepg

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Source reads records from a SQLite database file.
type Source struct {
	db    *sql.DB
	table string
}

// OpenSQLite opens the SQLite file at cfg.SourcePath read-only. A missing
// file is an error rather than an empty new database.
func OpenSQLite(ctx context.Context, cfg Config) (RecordSource, error) {
	info, err := os.Stat(cfg.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrSourceConnect, cfg.SourcePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w at %s: path is a directory", ErrSourceConnect, cfg.SourcePath)
	}

	db, err := sql.Open("sqlite3", readOnlyDSN(cfg.SourcePath))
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrSourceConnect, cfg.SourcePath, err)
	}
	db.SetMaxOpenConns(1)

	// sql.Open is lazy and a ping never reads the file; a catalog query makes
	// SQLite validate the header now.
	var tables int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&tables); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w at %s: %v", ErrSourceConnect, cfg.SourcePath, err)
	}

	return &Source{db: db, table: cfg.Table}, nil
}

// uriPathEscaper escapes the characters SQLite treats as URI syntax in a
// file: filename. SQLite decodes %XX in the path before opening it.
var uriPathEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "#", "%23")

// readOnlyDSN builds a go-sqlite3 URI filename that opens path read-only.
func readOnlyDSN(path string) string {
	u := url.URL{Scheme: "file", Opaque: uriPathEscaper.Replace(path)}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Set("_query_only", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchRecords reads every row of the table ordered by id ascending.
func (s *Source) FetchRecords(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`, columnList(), quoteSourceTable(s.table), quoteIdent("id"))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrSourceRead, s.table, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			image     sql.NullString
			createdAt any
		)
		if err := rows.Scan(&rec.ID, &rec.Username, &rec.Content, &image, &createdAt); err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrSourceRead, s.table, err)
		}
		if image.Valid {
			img := image.String
			rec.Image = &img
		}
		rec.CreatedAt, err = NormalizeTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrSourceRead, s.table, err)
	}
	return records, nil
}

// Close closes the underlying database handle.
func (s *Source) Close() error {
	return s.db.Close()
}
