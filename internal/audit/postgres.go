package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/frothops/testgen/internal/models"
)

// PostgresRecorder stores the audit trail in Postgres, for deployments that
// need durable, queryable history beyond a local file.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder opens the database and ensures the audit table exists.
func NewPostgresRecorder(ctx context.Context, databaseURL string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	r := &PostgresRecorder{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRecorder) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			id BIGSERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			request_hash TEXT NOT NULL,
			status TEXT NOT NULL,
			prompt_tokens INTEGER NOT NULL,
			completion_tokens INTEGER NOT NULL,
			total_tokens INTEGER NOT NULL,
			cost_usd DOUBLE PRECISION NOT NULL,
			processing_time_ms INTEGER NOT NULL,
			was_cached BOOLEAN NOT NULL,
			similarity_score DOUBLE PRECISION NOT NULL,
			source TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_audit_records_user_time
			ON audit_records (user_id, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("creating audit schema: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Append(ctx context.Context, record models.AuditRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			request_id, user_id, timestamp, request_hash, status,
			prompt_tokens, completion_tokens, total_tokens, cost_usd,
			processing_time_ms, was_cached, similarity_score, source, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		record.RequestID, record.UserID, record.Timestamp, record.RequestHash, record.Status,
		record.TokenUsage.PromptTokens, record.TokenUsage.CompletionTokens,
		record.TokenUsage.TotalTokens, record.TokenUsage.CostUSD,
		record.ProcessingTimeMs, record.WasCached, record.SimilarityScore,
		string(record.Source), record.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Records(ctx context.Context, userID string, since time.Time) ([]models.AuditRecord, error) {
	query := `
		SELECT request_id, user_id, timestamp, request_hash, status,
			prompt_tokens, completion_tokens, total_tokens, cost_usd,
			processing_time_ms, was_cached, similarity_score, source, error_message
		FROM audit_records
		WHERE timestamp >= $1`
	args := []any{since}
	if userID != "" {
		query += ` AND user_id = $2`
		args = append(args, userID)
	}
	query += ` ORDER BY timestamp`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var record models.AuditRecord
		var source string
		if err := rows.Scan(
			&record.RequestID, &record.UserID, &record.Timestamp, &record.RequestHash, &record.Status,
			&record.TokenUsage.PromptTokens, &record.TokenUsage.CompletionTokens,
			&record.TokenUsage.TotalTokens, &record.TokenUsage.CostUSD,
			&record.ProcessingTimeMs, &record.WasCached, &record.SimilarityScore,
			&source, &record.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		record.Source = models.ResultSource(source)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}
	return records, nil
}

// Close releases the database connection pool.
func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
