// Package api exposes the generation pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/frothops/testgen/internal/generator"
	"github.com/frothops/testgen/internal/provider"
	"github.com/frothops/testgen/internal/quota"
)

const (
	defaultAuditDays   = 7
	defaultCleanupDays = 30
)

type Handler struct {
	gen       *generator.Generator
	logger    *slog.Logger
	startTime time.Time
}

func NewHandler(gen *generator.Generator, logger *slog.Logger) *Handler {
	return &Handler{
		gen:       gen,
		logger:    logger,
		startTime: time.Now(),
	}
}

type generateRequest struct {
	UserID              string  `json:"user_id"`
	Requirement         string  `json:"requirement"`
	Model               string  `json:"model,omitempty"`
	UseSimilarity       *bool   `json:"use_similarity,omitempty"`       // default true
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"` // 0 means server default
}

// GenerateHandler handles POST /api/generate
func (h *Handler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.SimilarityThreshold < 0 || req.SimilarityThreshold > 1 {
		http.Error(w, "similarity_threshold must be between 0 and 1", http.StatusBadRequest)
		return
	}

	result, err := h.gen.Generate(r.Context(), generator.Request{
		UserID:              req.UserID,
		Requirement:         req.Requirement,
		Model:               req.Model,
		SkipSimilarity:      req.UseSimilarity != nil && !*req.UseSimilarity,
		SimilarityThreshold: req.SimilarityThreshold,
	})
	if err != nil {
		h.writeGenerateError(w, req.UserID, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeGenerateError(w http.ResponseWriter, userID string, err error) {
	var callErr *provider.CallError

	switch {
	case errors.Is(err, generator.ErrEmptyRequirement):
		http.Error(w, "requirement is required", http.StatusBadRequest)
	case errors.Is(err, quota.ErrExceeded):
		h.logger.Warn("quota exceeded", "user_id", userID)
		http.Error(w, "User quota exceeded for today/month", http.StatusTooManyRequests)
	case errors.Is(err, provider.ErrUnavailable):
		h.logger.Error("provider unavailable", "user_id", userID, "error", err)
		http.Error(w, "Generation backend unavailable", http.StatusServiceUnavailable)
	case errors.As(err, &callErr):
		h.logger.Error("provider call failed", "user_id", userID, "error", err)
		http.Error(w, "Generation backend error: "+callErr.Message, http.StatusBadGateway)
	default:
		h.logger.Error("generation failed", "user_id", userID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// UserStatsHandler handles GET /api/users/:id/stats
func (h *Handler) UserStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Extract user ID from /api/users/{id}/stats
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) != 5 || parts[3] == "" || parts[4] != "stats" {
		http.Error(w, "User ID required", http.StatusBadRequest)
		return
	}
	userID := parts[3]

	stats, err := h.gen.UserStats(userID)
	if err != nil {
		if errors.Is(err, quota.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get user stats", "user_id", userID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// AuditHandler handles GET /api/audit?user_id=&days=
func (h *Handler) AuditHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.URL.Query().Get("user_id")
	days := defaultAuditDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	summary, err := h.gen.Audit(r.Context(), userID, days)
	if err != nil {
		h.logger.Error("failed to read audit trail", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// CacheCleanupHandler handles POST /api/admin/cache/cleanup?days=
func (h *Handler) CacheCleanupHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	days := defaultCleanupDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		days = parsed
	}

	removed, err := h.gen.CleanupCache(r.Context(), days)
	if err != nil {
		h.logger.Error("cache cleanup failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// HealthHandler handles GET /healthz
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
