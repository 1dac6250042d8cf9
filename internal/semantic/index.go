package semantic

import (
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

// DefaultThreshold is the minimum cosine similarity for two requirements to
// be treated as near-duplicates.
const DefaultThreshold = 0.8

// Match is a stored requirement judged similar enough to reuse.
type Match struct {
	Record     models.SemanticRecord
	Similarity float64
}

// Index holds embedded requirements and answers nearest-neighbor queries
// with a linear scan. The whole index is mirrored to a JSON file after every
// insert.
type Index struct {
	mu        sync.RWMutex
	records   []models.SemanticRecord
	embedder  Embedder
	threshold float64
	filePath  string
	logger    *slog.Logger

	now func() time.Time
}

// NewIndex loads any existing index from dataDir. A missing file starts an
// empty index; a corrupt file is discarded with a warning.
func NewIndex(dataDir string, embedder Embedder, threshold float64, logger *slog.Logger) (*Index, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	idx := &Index{
		embedder:  embedder,
		threshold: threshold,
		filePath:  filepath.Join(dataDir, "embeddings.json"),
		logger:    logger,
		now:       time.Now,
	}

	data, err := os.ReadFile(idx.filePath)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading embeddings file: %w", err)
	}

	if err := json.Unmarshal(data, &idx.records); err != nil {
		logger.Warn("discarding corrupt embeddings file", "path", idx.filePath, "error", err)
		idx.records = nil
	}
	return idx, nil
}

// FindSimilar embeds the requirement and returns the most similar stored
// record at or above threshold, or nil when nothing qualifies. A threshold
// of zero or less falls back to the index default. An embedding failure is
// reported so the caller can fall back to a fresh generation.
func (idx *Index) FindSimilar(ctx context.Context, requirement string, threshold float64) (*Match, error) {
	if threshold <= 0 {
		threshold = idx.threshold
	}

	vector, err := idx.embedder.Embed(ctx, requirement)
	if err != nil {
		return nil, fmt.Errorf("embedding requirement: %w", err)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var best *Match
	for i := range idx.records {
		score := CosineSimilarity(vector, idx.records[i].Embedding)
		if score < threshold {
			continue
		}
		if best == nil || score > best.Similarity {
			best = &Match{Record: idx.records[i], Similarity: score}
		}
	}
	return best, nil
}

// Insert embeds a requirement and stores it with its generated payload. The
// caller supplies the id, normally the request's cache fingerprint.
func (idx *Index) Insert(ctx context.Context, id, requirement, testCases string) error {
	vector, err := idx.embedder.Embed(ctx, requirement)
	if err != nil {
		return fmt.Errorf("embedding requirement: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.records = append(idx.records, models.SemanticRecord{
		ID:          id,
		Requirement: requirement,
		Embedding:   vector,
		TestCases:   testCases,
		CreatedAt:   idx.now().UTC(),
	})
	return idx.saveLocked()
}

// Len reports the number of indexed requirements.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

func (idx *Index) saveLocked() error {
	data, err := json.Marshal(idx.records)
	if err != nil {
		return fmt.Errorf("encoding embeddings: %w", err)
	}

	tmpPath := idx.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing embeddings: %w", err)
	}
	if err := os.Rename(tmpPath, idx.filePath); err != nil {
		return fmt.Errorf("replacing embeddings: %w", err)
	}
	return nil
}
