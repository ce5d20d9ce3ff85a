package sqlitepg

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// RecordSource yields every record of the source table.
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]Record, error)
	Close() error
}

// TableWriter issues the destructive and insert statements for one table.
type TableWriter interface {
	Truncate(ctx context.Context) error
	Insert(ctx context.Context, r Record) error
}

// RecordDestination is a checked-out destination connection.
type RecordDestination interface {
	TableWriter
	Atomic(ctx context.Context, fn func(TableWriter) error) error
	Close()
}

// SourceOpener opens the source named by cfg.
type SourceOpener func(ctx context.Context, cfg Config) (RecordSource, error)

// DestinationDialer connects to the destination named by cfg.
type DestinationDialer func(ctx context.Context, cfg Config) (RecordDestination, error)

// Result summarises a run.
type Result struct {
	Table     string
	Found     int
	Inserted  int
	Truncated bool
	Duration  time.Duration
}

// Option customises a Migrator.
type Option func(*Migrator)

// WithSourceOpener replaces the SQLite source factory.
func WithSourceOpener(open SourceOpener) Option {
	return func(m *Migrator) { m.openSource = open }
}

// WithDestinationDialer replaces the PostgreSQL destination factory.
func WithDestinationDialer(dial DestinationDialer) Option {
	return func(m *Migrator) { m.dialDestination = dial }
}

// WithLogger sets the logger progress is reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Migrator copies one table from a SQLite file into PostgreSQL.
//
// A run opens the source, then the destination, reads every row, clears the
// destination table and inserts the rows in id order. Both connections are
// released on every exit path.
type Migrator struct {
	cfg             Config
	openSource      SourceOpener
	dialDestination DestinationDialer
	logger          *zap.Logger
}

// NewMigrator creates a Migrator. It fails with ErrArgumentMissing before
// anything is opened if no destination URL is configured.
func NewMigrator(cfg Config, opts ...Option) (*Migrator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Migrator{
		cfg:             cfg,
		openSource:      OpenSQLite,
		dialDestination: DialPostgres,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the effective configuration, defaults included.
func (m *Migrator) Config() Config {
	return m.cfg
}

// Run performs the copy. On failure the returned Result still reports how
// many records were found and inserted.
func (m *Migrator) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	res.Table = m.cfg.Table
	defer func() { res.Duration = time.Since(start) }()

	src, err := m.openSource(ctx, m.cfg)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			m.logger.Warn("closing source failed", zap.Error(cerr))
		}
	}()
	m.logger.Info("connected to source", zap.String("path", m.cfg.SourcePath))

	dst, err := m.dialDestination(ctx, m.cfg)
	if err != nil {
		return res, err
	}
	defer dst.Close()
	m.logger.Info("connected to destination")

	m.logger.Info("migrating table", zap.String("table", m.cfg.Table))
	records, err := src.FetchRecords(ctx)
	if err != nil {
		return res, &RunError{Step: "fetch", Err: err}
	}
	res.Found = len(records)
	m.logger.Info("found records in source", zap.Int("count", res.Found))

	if len(records) == 0 {
		m.logger.Info("no records to migrate")
		return res, nil
	}

	copyAll := func(w TableWriter) error {
		if err := w.Truncate(ctx); err != nil {
			return &RunError{Step: "truncate", Err: err}
		}
		res.Truncated = true
		m.logger.Info("cleared existing rows in destination")

		for _, r := range records {
			if err := w.Insert(ctx, r); err != nil {
				return &RunError{Step: "insert", Inserted: res.Inserted, Err: err}
			}
			res.Inserted++
			m.logger.Debug("inserted record", zap.Int64("id", r.ID))
		}
		return nil
	}

	if m.cfg.Atomic {
		err = dst.Atomic(ctx, copyAll)
		if err != nil {
			// Nothing the transaction wrote survives the rollback.
			res.Truncated = false
			res.Inserted = 0
			var runErr *RunError
			if errors.As(err, &runErr) {
				runErr.Inserted = 0
			}
		}
	} else {
		err = copyAll(dst)
	}
	if err != nil {
		return res, err
	}

	m.logger.Info("inserted records into destination", zap.Int("count", res.Inserted))
	return res, nil
}
