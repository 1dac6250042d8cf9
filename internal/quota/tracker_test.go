package quota

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/frothops/testgen/internal/config"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(t.TempDir(), config.QuotaConfig{DailyLimit: 1000, MonthlyLimit: 30000}, discardLogger())
	if err != nil {
		t.Fatalf("NewTracker returned error: %v", err)
	}
	return tracker
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.NewFile(0, os.DevNull), nil))
}

func TestCheckAndReserveWithinLimits(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.CheckAndReserve("alice", 600); err != nil {
		t.Fatalf("expected admission, got %v", err)
	}
}

func TestDailyLimitRejection(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.Commit("alice", 600); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	// 600 + 500 > 1000: must be rejected with nothing consumed.
	if err := tracker.CheckAndReserve("alice", 500); !errors.Is(err, ErrExceeded) {
		t.Fatalf("expected ErrExceeded, got %v", err)
	}

	stats, err := tracker.Stats("alice")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Daily.Used != 600 {
		t.Errorf("rejection must not consume quota: daily used = %d, want 600", stats.Daily.Used)
	}

	// 600 + 400 fits exactly.
	if err := tracker.CheckAndReserve("alice", 400); err != nil {
		t.Fatalf("expected admission at the boundary, got %v", err)
	}
}

func TestMonthlyLimitRejection(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.Commit("bob", 29900); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	if err := tracker.CheckAndReserve("bob", 200); !errors.Is(err, ErrExceeded) {
		t.Fatalf("expected monthly rejection, got %v", err)
	}
}

func TestDailyResetOnDateRollover(t *testing.T) {
	tracker := newTestTracker(t)

	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return day1 }

	if err := tracker.Commit("carol", 900); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	if err := tracker.CheckAndReserve("carol", 500); !errors.Is(err, ErrExceeded) {
		t.Fatalf("expected rejection before rollover, got %v", err)
	}

	tracker.now = func() time.Time { return day1.AddDate(0, 0, 1) }

	if err := tracker.CheckAndReserve("carol", 500); err != nil {
		t.Fatalf("expected admission after daily reset, got %v", err)
	}

	stats, err := tracker.Stats("carol")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Daily.Used != 0 {
		t.Errorf("daily used after rollover = %d, want 0", stats.Daily.Used)
	}
	if stats.Monthly.Used != 900 {
		t.Errorf("monthly used must survive rollover: got %d, want 900", stats.Monthly.Used)
	}
}

func TestStatsUnknownUser(t *testing.T) {
	tracker := newTestTracker(t)

	if _, err := tracker.Stats("nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCommitPersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	defaults := config.QuotaConfig{DailyLimit: 1000, MonthlyLimit: 30000}

	tracker, err := NewTracker(dir, defaults, discardLogger())
	if err != nil {
		t.Fatalf("NewTracker returned error: %v", err)
	}
	if err := tracker.Commit("dave", 250); err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}

	reloaded, err := NewTracker(dir, defaults, discardLogger())
	if err != nil {
		t.Fatalf("NewTracker (reload) returned error: %v", err)
	}

	stats, err := reloaded.Stats("dave")
	if err != nil {
		t.Fatalf("Stats after reload returned error: %v", err)
	}
	if stats.Daily.Used != 250 || stats.Monthly.Used != 250 {
		t.Errorf("persisted usage = %d/%d, want 250/250", stats.Daily.Used, stats.Monthly.Used)
	}
}

func TestCorruptStateFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "quotas.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	tracker, err := NewTracker(dir, config.QuotaConfig{DailyLimit: 1000, MonthlyLimit: 30000}, discardLogger())
	if err != nil {
		t.Fatalf("NewTracker must recover from corrupt state, got %v", err)
	}

	if err := tracker.CheckAndReserve("erin", 100); err != nil {
		t.Fatalf("expected clean table after recovery, got %v", err)
	}
}
