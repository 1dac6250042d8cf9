package audit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/frothops/testgen/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(userID string, at time.Time, status string, source models.ResultSource) models.AuditRecord {
	return models.AuditRecord{
		RequestID:   "req-" + userID,
		UserID:      userID,
		Timestamp:   at,
		RequestHash: "abc123",
		Status:      status,
		TokenUsage: models.TokenUsage{
			PromptTokens:     100,
			CompletionTokens: 200,
			TotalTokens:      300,
			CostUSD:          0.0007,
		},
		ProcessingTimeMs: 42,
		WasCached:        source == models.SourceCache,
		Source:           source,
	}
}

func TestFileRecorderAppendAndFilter(t *testing.T) {
	recorder := NewFileRecorder(t.TempDir(), discardLogger())
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	records := []models.AuditRecord{
		record("alice", now.Add(-48*time.Hour), models.StatusSuccess, models.SourceModel),
		record("alice", now.Add(-1*time.Hour), models.StatusSuccess, models.SourceCache),
		record("bob", now.Add(-1*time.Hour), models.StatusFailed, models.SourceModel),
	}
	for _, r := range records {
		if err := recorder.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := recorder.Records(ctx, "alice", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record for alice in window, got %d", len(got))
	}
	if got[0].Source != models.SourceCache {
		t.Errorf("unexpected record: %+v", got[0])
	}

	// Empty userID matches everyone.
	got, err = recorder.Records(ctx, "", now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected all 3 records, got %d", len(got))
	}
}

func TestFileRecorderEmptyTrail(t *testing.T) {
	recorder := NewFileRecorder(t.TempDir(), discardLogger())

	got, err := recorder.Records(context.Background(), "anyone", time.Time{})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestFileRecorderSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	recorder := NewFileRecorder(dir, discardLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	if err := recorder.Append(ctx, record("alice", now, models.StatusSuccess, models.SourceModel)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, "audit_logs.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening audit file: %v", err)
	}
	if _, err := f.WriteString("{torn line\n"); err != nil {
		t.Fatalf("writing corrupt line: %v", err)
	}
	f.Close()

	if err := recorder.Append(ctx, record("bob", now, models.StatusFailed, models.SourceModel)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := recorder.Records(ctx, "", time.Time{})
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected corrupt line to be skipped, got %d records", len(got))
	}
}

func TestSummarize(t *testing.T) {
	now := time.Now().UTC()
	records := []models.AuditRecord{
		record("alice", now, models.StatusSuccess, models.SourceModel),
		record("alice", now, models.StatusSuccess, models.SourceCache),
		record("alice", now, models.StatusSuccess, models.SourceSemanticIndex),
		record("alice", now, models.StatusFailed, models.SourceModel),
	}

	stats := Summarize(records)
	if stats.TotalRequests != 4 {
		t.Errorf("TotalRequests = %d, want 4", stats.TotalRequests)
	}
	if stats.SuccessfulCalls != 3 || stats.FailedCalls != 1 {
		t.Errorf("success/failed = %d/%d, want 3/1", stats.SuccessfulCalls, stats.FailedCalls)
	}
	if stats.CacheHits != 1 || stats.SemanticHits != 1 {
		t.Errorf("cache/semantic hits = %d/%d, want 1/1", stats.CacheHits, stats.SemanticHits)
	}
	if stats.TotalTokens != 1200 {
		t.Errorf("TotalTokens = %d, want 1200", stats.TotalTokens)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil)
	if stats.TotalRequests != 0 || stats.TotalTokens != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}
