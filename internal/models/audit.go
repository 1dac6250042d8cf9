package models

import "time"

// ResultSource identifies which resolution path produced a response.
type ResultSource string

const (
	SourceModel         ResultSource = "model"
	SourceCache         ResultSource = "cache"
	SourceSemanticIndex ResultSource = "semantic_index"
)

// Request outcome statuses recorded in the audit trail.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// AuditRecord is the append-only trace of one request attempt, written for
// successes and failures alike.
type AuditRecord struct {
	RequestID        string       `json:"request_id"`
	UserID           string       `json:"user_id"`
	Timestamp        time.Time    `json:"timestamp"`
	RequestHash      string       `json:"request_hash"`
	Status           string       `json:"status"` // success, failed
	TokenUsage       TokenUsage   `json:"token_usage"`
	ProcessingTimeMs int          `json:"processing_time_ms"`
	WasCached        bool         `json:"was_cached"`
	SimilarityScore  float64      `json:"similarity_score"` // 0 when not applicable
	Source           ResultSource `json:"source"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}

// AuditStats aggregates audit records for reporting.
type AuditStats struct {
	TotalRequests   int     `json:"total_requests"`
	TotalTokens     int64   `json:"total_tokens"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
	SuccessfulCalls int     `json:"successful_calls"`
	FailedCalls     int     `json:"failed_calls"`
	CacheHits       int     `json:"cache_hits"`
	SemanticHits    int     `json:"semantic_hits"`
}
