package api

import (
	"net/http"

	"log/slog"

	"github.com/frothops/testgen/internal/generator"
)

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, gen *generator.Generator, logger *slog.Logger) {
	handler := NewHandler(gen, logger)

	mux.HandleFunc("/api/generate", handler.GenerateHandler)
	mux.HandleFunc("/api/users/", handler.UserStatsHandler)
	mux.HandleFunc("/api/audit", handler.AuditHandler)
	mux.HandleFunc("/api/admin/cache/cleanup", handler.CacheCleanupHandler)
	mux.HandleFunc("/healthz", handler.HealthHandler)
}
