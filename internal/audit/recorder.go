// Package audit records every generation attempt for traceability and
// reporting.
package audit

import (
	"context"
	"time"

	"github.com/frothops/testgen/internal/models"
)

// Recorder is an append-only audit trail of generation attempts.
type Recorder interface {
	// Append writes one record. Records are never updated or deleted.
	Append(ctx context.Context, record models.AuditRecord) error

	// Records returns all records at or after since, optionally filtered
	// to one user. An empty userID matches every user.
	Records(ctx context.Context, userID string, since time.Time) ([]models.AuditRecord, error)
}

// Summarize aggregates records into reporting totals.
func Summarize(records []models.AuditRecord) models.AuditStats {
	var stats models.AuditStats
	for _, r := range records {
		stats.TotalRequests++
		stats.TotalTokens += int64(r.TokenUsage.TotalTokens)
		stats.TotalCostUSD += r.TokenUsage.CostUSD

		switch r.Status {
		case models.StatusSuccess:
			stats.SuccessfulCalls++
		case models.StatusFailed:
			stats.FailedCalls++
		}

		switch r.Source {
		case models.SourceCache:
			stats.CacheHits++
		case models.SourceSemanticIndex:
			stats.SemanticHits++
		}
	}
	return stats
}
