package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/turbolytics/harvester/internal/report"
)

// Ledger stores run reports in a Postgres table, one row per invocation.
type Ledger struct {
	Conn  *pgx.Conn
	Table string

	logger *zap.Logger
}

type LedgerOption func(*Ledger)

func WithTable(table string) LedgerOption {
	return func(l *Ledger) {
		l.Table = table
	}
}

func WithLogger(logger *zap.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

func NewLedger(conn *pgx.Conn, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		Conn:   conn,
		Table:  "harvest_runs",
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Connect opens a connection and makes sure the ledger table exists.
func Connect(ctx context.Context, connString string, opts ...LedgerOption) (*Ledger, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}

	l := NewLedger(conn, opts...)
	if err := l.Migrate(ctx); err != nil {
		conn.Close(ctx)
		return nil, err
	}
	return l, nil
}

func (l *Ledger) table() string {
	return pgx.Identifier{l.Table}.Sanitize()
}

func (l *Ledger) Migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id              UUID PRIMARY KEY,
	start_time      TIMESTAMPTZ NOT NULL,
	end_time        TIMESTAMPTZ NOT NULL,
	mode            TEXT NOT NULL,
	watermark       TIMESTAMPTZ,
	bucket          TEXT NOT NULL,
	status_code     INTEGER NOT NULL,
	message         TEXT NOT NULL,
	num_selected    INTEGER NOT NULL,
	num_attempted   INTEGER NOT NULL,
	num_harvested   INTEGER NOT NULL,
	failures        JSONB NOT NULL DEFAULT '[]',
	selection_error TEXT,
	batch_error     TEXT,
	completed       BOOLEAN NOT NULL
)`, l.table())

	_, err := l.Conn.Exec(ctx, stmt)
	return err
}

func (l *Ledger) Save(ctx context.Context, r *report.Report) error {
	failures := r.Failures
	if failures == nil {
		failures = []report.Failure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (
	id, start_time, end_time, mode, watermark, bucket, status_code, message,
	num_selected, num_attempted, num_harvested, failures,
	selection_error, batch_error, completed
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`, l.table())

	_, err = l.Conn.Exec(ctx, stmt,
		pgtype.UUID{Bytes: r.ID, Valid: true},
		r.StartTime,
		r.EndTime,
		r.Mode,
		r.Watermark,
		r.Bucket,
		r.StatusCode,
		r.Message,
		r.NumSelected,
		r.NumAttempted,
		r.NumHarvested,
		failuresJSON,
		nullable(r.SelectionError),
		nullable(r.BatchError),
		r.Completed,
	)
	if err != nil {
		return err
	}

	l.logger.Debug("run report saved",
		zap.String("run_id", r.ID.String()),
		zap.String("table", l.Table),
	)
	return nil
}

func (l *Ledger) Close(ctx context.Context) error {
	return l.Conn.Close(ctx)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
