package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/duuta/ocr-flavors/internal/core/domain"
)

// ResultRepository persists derived extraction results. Source documents are
// never stored here.
type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
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
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ResultRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across cli/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS extraction_results (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	filename TEXT NOT NULL,
	document_type TEXT NOT NULL,
	model_name TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	completeness DOUBLE PRECISION NOT NULL DEFAULT 0,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	score DOUBLE PRECISION NOT NULL DEFAULT 0,
	schema_valid BOOLEAN NOT NULL DEFAULT FALSE,
	from_cache BOOLEAN NOT NULL DEFAULT FALSE,
	processed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_results_fingerprint ON extraction_results(fingerprint);
CREATE INDEX IF NOT EXISTS idx_extraction_results_processed_at ON extraction_results(processed_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ResultRepository) Save(ctx context.Context, res *domain.ExtractionResult) error {
	fieldsJSON, err := json.Marshal(res.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO extraction_results (
	id, fingerprint, filename, document_type, model_name, fields, completeness, confidence, score, schema_valid, from_cache, processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		res.ID, res.Fingerprint, res.Filename, string(res.DocumentType), res.ModelName, fieldsJSON,
		res.Completeness, res.Confidence, res.Score, res.SchemaValid, res.FromCache, res.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("insert extraction result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetByID(ctx context.Context, id string) (*domain.ExtractionResult, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, fingerprint, filename, document_type, model_name, fields, completeness, confidence, score, schema_valid, from_cache, processed_at
FROM extraction_results
WHERE id = $1
`, id)

	res, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "get result", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return res, nil
}

func (r *ResultRepository) ListByFingerprint(ctx context.Context, fingerprint string) ([]domain.ExtractionResult, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, fingerprint, filename, document_type, model_name, fields, completeness, confidence, score, schema_valid, from_cache, processed_at
FROM extraction_results
WHERE fingerprint = $1
ORDER BY processed_at DESC
`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query results by fingerprint: %w", err)
	}
	defer rows.Close()

	return collectResults(rows)
}

func (r *ResultRepository) ListBetween(ctx context.Context, from, to *time.Time) ([]domain.ExtractionResult, error) {
	query := `
SELECT id, fingerprint, filename, document_type, model_name, fields, completeness, confidence, score, schema_valid, from_cache, processed_at
FROM extraction_results
WHERE ($1::timestamptz IS NULL OR processed_at >= $1)
  AND ($2::timestamptz IS NULL OR processed_at <= $2)
ORDER BY processed_at DESC
`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query results by window: %w", err)
	}
	defer rows.Close()

	return collectResults(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*domain.ExtractionResult, error) {
	var res domain.ExtractionResult
	var fieldsRaw []byte
	var docType string

	err := row.Scan(
		&res.ID, &res.Fingerprint, &res.Filename, &docType, &res.ModelName, &fieldsRaw,
		&res.Completeness, &res.Confidence, &res.Score, &res.SchemaValid, &res.FromCache, &res.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fieldsRaw, &res.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	res.DocumentType = domain.DocumentType(docType)
	return &res, nil
}

func collectResults(rows *sql.Rows) ([]domain.ExtractionResult, error) {
	var out []domain.ExtractionResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}
