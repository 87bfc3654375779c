package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Several convertd replicas may start at once.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS conversions (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	source_format TEXT,
	target_format TEXT NOT NULL,
	input_bytes BIGINT NOT NULL DEFAULT 0,
	output_bytes BIGINT NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL,
	error_message TEXT,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_conversions_outcome ON conversions(outcome);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *HistoryRepository) RecordConversion(ctx context.Context, rec domain.ConversionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO conversions (
	id, filename, source_format, target_format, input_bytes, output_bytes, outcome, error_message, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		rec.ID, rec.Filename, nullableString(string(rec.SourceFormat)), string(rec.TargetFormat),
		rec.InputBytes, rec.OutputBytes, string(rec.Outcome), nullableString(rec.ErrorMessage),
		rec.DurationMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListRecentConversions(ctx context.Context, limit int) ([]domain.ConversionRecord, error) {
	if limit <= 0 {
		return []domain.ConversionRecord{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, filename, COALESCE(source_format, ''), target_format, input_bytes, output_bytes, outcome, COALESCE(error_message, ''), duration_ms, created_at
FROM conversions
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversionRecord, 0, limit)
	for rows.Next() {
		var (
			rec                    domain.ConversionRecord
			source, target, status string
		)
		if err := rows.Scan(
			&rec.ID, &rec.Filename, &source, &target, &rec.InputBytes, &rec.OutputBytes,
			&status, &rec.ErrorMessage, &rec.DurationMS, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		rec.SourceFormat = domain.Format(source)
		rec.TargetFormat = domain.Format(target)
		rec.Outcome = domain.ConversionOutcome(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return out, nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
