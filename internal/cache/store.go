package cache

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

// Store is an exact-match cache keyed by request fingerprint.
type Store interface {
	// Get returns the cached entry for a fingerprint, if present.
	Get(ctx context.Context, fingerprint string) (models.CacheEntry, bool, error)

	// Put stores an entry under a fingerprint, overwriting any previous
	// entry for the same key.
	Put(ctx context.Context, fingerprint string, entry models.CacheEntry) error

	// Cleanup removes entries older than maxAge and returns how many
	// were removed. Entries whose timestamps cannot be parsed count as
	// removed too.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}

// storedEntry is the on-disk shape of a cache entry. CreatedAt is kept as a
// string so that a single corrupt timestamp never poisons the whole file; it
// is parsed lazily and purged by Cleanup when unparseable.
type storedEntry struct {
	TestCases        string `json:"test_cases"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CreatedAt        string `json:"created_at"`
	Model            string `json:"model"`
}

func toStored(entry models.CacheEntry) storedEntry {
	return storedEntry{
		TestCases:        entry.TestCases,
		PromptTokens:     entry.PromptTokens,
		CompletionTokens: entry.CompletionTokens,
		TotalTokens:      entry.TotalTokens,
		CreatedAt:        entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		Model:            entry.Model,
	}
}

func (s storedEntry) toEntry() models.CacheEntry {
	createdAt, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	if err != nil {
		createdAt = time.Time{}
	}
	return models.CacheEntry{
		TestCases:        s.TestCases,
		PromptTokens:     s.PromptTokens,
		CompletionTokens: s.CompletionTokens,
		TotalTokens:      s.TotalTokens,
		CreatedAt:        createdAt,
		Model:            s.Model,
	}
}

// FileStore keeps the cache in memory and mirrors it to a single JSON file.
// The file is rewritten atomically after every mutation.
type FileStore struct {
	mu       sync.RWMutex
	entries  map[string]storedEntry
	filePath string
	logger   *slog.Logger

	now func() time.Time
}

// NewFileStore loads any existing cache file from dataDir. A missing file
// starts an empty cache; a corrupt file is discarded with a warning rather
// than failing startup.
func NewFileStore(dataDir string, logger *slog.Logger) (*FileStore, error) {
	s := &FileStore{
		entries:  make(map[string]storedEntry),
		filePath: filepath.Join(dataDir, "cache.json"),
		logger:   logger,
		now:      time.Now,
	}

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		logger.Warn("discarding corrupt cache file", "path", s.filePath, "error", err)
		s.entries = make(map[string]storedEntry)
	}
	return s, nil
}

func (s *FileStore) Get(ctx context.Context, fingerprint string) (models.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.entries[fingerprint]
	if !ok {
		return models.CacheEntry{}, false, nil
	}
	return stored.toEntry(), true, nil
}

func (s *FileStore) Put(ctx context.Context, fingerprint string, entry models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[fingerprint] = toStored(entry)
	return s.saveLocked()
}

func (s *FileStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for fingerprint, stored := range s.entries {
		createdAt, err := time.Parse(time.RFC3339Nano, stored.CreatedAt)
		if err != nil || createdAt.Before(cutoff) {
			delete(s.entries, fingerprint)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.saveLocked(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Len reports the number of cached entries.
func (s *FileStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// saveLocked rewrites the cache file via a temp file and rename so readers
// never observe a partially written file. Callers must hold mu.
func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache state: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing cache state: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replacing cache state: %w", err)
	}
	return nil
}
