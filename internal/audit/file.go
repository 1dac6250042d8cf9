package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/frothops/testgen/internal/models"
)

// FileRecorder appends records to a JSONL file, one JSON object per line.
type FileRecorder struct {
	mu       sync.Mutex
	filePath string
	logger   *slog.Logger
}

// NewFileRecorder writes the audit trail to audit_logs.jsonl under dataDir.
func NewFileRecorder(dataDir string, logger *slog.Logger) *FileRecorder {
	return &FileRecorder{
		filePath: filepath.Join(dataDir, "audit_logs.jsonl"),
		logger:   logger,
	}
}

func (r *FileRecorder) Append(ctx context.Context, record models.AuditRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding audit record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing audit record: %w", err)
	}
	return nil
}

func (r *FileRecorder) Records(ctx context.Context, userID string, since time.Time) ([]models.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	var records []models.AuditRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record models.AuditRecord
		if err := json.Unmarshal(line, &record); err != nil {
			// A torn or corrupt line must not hide the rest of the trail.
			r.logger.Warn("skipping corrupt audit line", "error", err)
			continue
		}
		if userID != "" && record.UserID != userID {
			continue
		}
		if record.Timestamp.Before(since) {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return records, nil
}
