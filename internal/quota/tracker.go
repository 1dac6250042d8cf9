// Package quota enforces per-user daily and monthly token budgets.
package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/frothops/testgen/internal/config"
	"github.com/frothops/testgen/internal/models"
)

// ErrExceeded is returned when a reservation would push a user over either
// budget window. No partial consumption occurs on rejection.
var ErrExceeded = errors.New("user quota exceeded for today/month")

// ErrUserNotFound is returned by Stats for users with no quota record.
var ErrUserNotFound = errors.New("user not found")

// Tracker owns the quota table. Records are created lazily with the
// configured default limits; the daily counter resets lazily at check time
// when the tracked date has advanced, never via a background timer.
//
// The whole table is read from disk at startup and rewritten (atomic
// replace) after every mutation.
type Tracker struct {
	mu       sync.Mutex
	quotas   map[string]*models.UserQuota
	filePath string
	defaults config.QuotaConfig
	logger   *slog.Logger

	// now is swappable so tests can simulate day rollover.
	now func() time.Time
}

// NewTracker loads the quota table from dataDir/quotas.json. A missing file
// starts an empty table; a corrupt file is discarded with a warning rather
// than failing startup.
func NewTracker(dataDir string, defaults config.QuotaConfig, logger *slog.Logger) (*Tracker, error) {
	t := &Tracker{
		quotas:   make(map[string]*models.UserQuota),
		filePath: filepath.Join(dataDir, "quotas.json"),
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}

	if err := t.load(); err != nil {
		logger.Warn("discarding corrupt quota state", "path", t.filePath, "error", err)
		t.quotas = make(map[string]*models.UserQuota)
	}

	return t, nil
}

func (t *Tracker) load() error {
	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &t.quotas)
}

// saveLocked writes the table via a temp file and rename so a crashed flush
// never leaves a partially-written quotas.json. Callers must hold mu.
func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.quotas, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quotas: %w", err)
	}

	tmp := t.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write quotas: %w", err)
	}
	if err := os.Rename(tmp, t.filePath); err != nil {
		return fmt.Errorf("replace quotas: %w", err)
	}
	return nil
}

// recordLocked returns the user's quota record, creating it with default
// limits on first reference and applying the lazy daily reset.
func (t *Tracker) recordLocked(userID string) *models.UserQuota {
	q, ok := t.quotas[userID]
	if !ok {
		q = &models.UserQuota{
			UserID:       userID,
			DailyLimit:   t.defaults.DailyLimit,
			MonthlyLimit: t.defaults.MonthlyLimit,
		}
		t.quotas[userID] = q
	}

	today := t.now().Format(time.DateOnly)
	if q.LastResetDate != today {
		q.DailyUsed = 0
		q.LastResetDate = today
	}

	return q
}

// CheckAndReserve admits a request when the estimated tokens fit both budget
// windows. It returns ErrExceeded otherwise. Nothing is consumed here;
// consumption happens in Commit after the provider reports real usage.
func (t *Tracker) CheckAndReserve(userID string, estimatedTokens int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.recordLocked(userID)

	if q.DailyUsed+estimatedTokens > q.DailyLimit {
		return ErrExceeded
	}
	if q.MonthlyUsed+estimatedTokens > q.MonthlyLimit {
		return ErrExceeded
	}

	return nil
}

// Commit records actual consumption after a successful provider call and
// persists the table before returning. Cache and semantic-index hits commit
// nothing because no new generation occurred.
func (t *Tracker) Commit(userID string, actualTokens int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.recordLocked(userID)
	q.DailyUsed += actualTokens
	q.MonthlyUsed += actualTokens

	return t.saveLocked()
}

// Stats returns a usage snapshot for a known user.
func (t *Tracker) Stats(userID string) (*models.UserStats, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	q, ok := t.quotas[userID]
	if !ok {
		return nil, ErrUserNotFound
	}

	return &models.UserStats{
		UserID: userID,
		Daily: models.QuotaWindow{
			Limit:     q.DailyLimit,
			Used:      q.DailyUsed,
			Remaining: q.DailyLimit - q.DailyUsed,
		},
		Monthly: models.QuotaWindow{
			Limit:     q.MonthlyLimit,
			Used:      q.MonthlyUsed,
			Remaining: q.MonthlyLimit - q.MonthlyUsed,
		},
	}, nil
}
