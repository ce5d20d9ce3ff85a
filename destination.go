package sqlitepg

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// execer is satisfied by *pgxpool.Conn and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// pgWriter issues the table statements against a connection or transaction.
type pgWriter struct {
	q     execer
	table string
}

// Truncate removes every row of the table, cascading to dependent tables.
func (w *pgWriter) Truncate(ctx context.Context) error {
	query := fmt.Sprintf(`TRUNCATE TABLE %s CASCADE`, quoteIdent(w.table))
	if _, err := w.q.Exec(ctx, query); err != nil {
		return fmt.Errorf("%w: truncate %s: %v", ErrQuery, w.table, err)
	}
	return nil
}

// Insert writes one record, keeping its id.
func (w *pgWriter) Insert(ctx context.Context, r Record) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5)`, quoteIdent(w.table), columnList())
	if _, err := w.q.Exec(ctx, query, r.ID, r.Username, r.Content, r.Image, r.CreatedAt); err != nil {
		return fmt.Errorf("%w: insert %s id %d: %v", ErrQuery, w.table, r.ID, err)
	}
	return nil
}

// Destination is a PostgreSQL pool holding the single connection a run uses.
type Destination struct {
	pgWriter
	pool      *pgxpool.Pool
	conn      *pgxpool.Conn
	closeOnce sync.Once
}

// ParseDestinationConfig parses a connection string into a pool config
// limited to one connection. A string without an sslmode gets
// sslmode=require. Unless allowInsecure is set, the config must never fall
// back to an unencrypted connection.
func ParseDestinationConfig(connString string, allowInsecure bool) (*pgxpool.Config, error) {
	if !allowInsecure {
		connString = withDefaultSSLMode(connString)
	}
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse connection string: %v", ErrDestinationConnect, err)
	}
	if !allowInsecure && !requiresTLS(poolConfig.ConnConfig.Config) {
		return nil, fmt.Errorf("%w: %w (use sslmode=require or stronger)", ErrDestinationConnect, ErrInsecureTransport)
	}
	poolConfig.MaxConns = 1
	poolConfig.MinConns = 0
	return poolConfig, nil
}

// withDefaultSSLMode adds sslmode=require to a URL or keyword/value
// connection string that does not set one.
func withDefaultSSLMode(connString string) string {
	if strings.HasPrefix(connString, "postgres://") || strings.HasPrefix(connString, "postgresql://") {
		u, err := url.Parse(connString)
		if err != nil {
			// Left for pgxpool.ParseConfig to report.
			return connString
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "require")
			u.RawQuery = q.Encode()
		}
		return u.String()
	}
	if strings.Contains(connString, "sslmode=") {
		return connString
	}
	return strings.TrimSpace(connString + " sslmode=require")
}

// requiresTLS reports whether the primary config and every fallback use TLS.
func requiresTLS(cfg pgconn.Config) bool {
	if cfg.TLSConfig == nil {
		return false
	}
	for _, fb := range cfg.Fallbacks {
		if fb.TLSConfig == nil {
			return false
		}
	}
	return true
}

// DialPostgres creates the destination pool and checks out its connection.
// If the checkout fails the pool is closed before returning.
func DialPostgres(ctx context.Context, cfg Config) (RecordDestination, error) {
	poolConfig, err := ParseDestinationConfig(cfg.DestinationURL, cfg.AllowInsecure)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connection pool: %v", ErrDestinationConnect, err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrDestinationConnect, err)
	}

	return &Destination{
		pgWriter: pgWriter{q: conn, table: cfg.Table},
		pool:     pool,
		conn:     conn,
	}, nil
}

// Atomic runs fn inside a transaction on the checked-out connection.
// The transaction commits only if fn returns nil.
func (d *Destination) Atomic(ctx context.Context, fn func(TableWriter) error) error {
	err := pgx.BeginFunc(ctx, d.conn, func(tx pgx.Tx) error {
		return fn(&pgWriter{q: tx, table: d.table})
	})
	if err != nil && !errors.Is(err, ErrQuery) {
		// begin, commit or rollback failed
		return fmt.Errorf("%w: transaction on %s: %v", ErrQuery, d.table, err)
	}
	return err
}

// Close releases the connection back to the pool and shuts the pool down.
// Later calls are no-ops.
func (d *Destination) Close() {
	d.closeOnce.Do(func() {
		d.conn.Release()
		d.pool.Close()
	})
}
