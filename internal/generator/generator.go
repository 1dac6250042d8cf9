// Package generator orchestrates test case generation: quota admission,
// cache and similarity lookups, model calls, and the audit trail.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/frothops/testgen/internal/audit"
	"github.com/frothops/testgen/internal/cache"
	"github.com/frothops/testgen/internal/models"
	"github.com/frothops/testgen/internal/pricing"
	"github.com/frothops/testgen/internal/provider"
	"github.com/frothops/testgen/internal/quota"
	"github.com/frothops/testgen/internal/semantic"
	"github.com/frothops/testgen/internal/tokenizer"
)

// ErrEmptyRequirement rejects requests with nothing to generate from.
var ErrEmptyRequirement = errors.New("requirement must not be empty")

// Options tune the generation pipeline.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Observer receives pipeline outcomes, normally the Prometheus collector.
type Observer interface {
	ObserveGeneration(source, status string, totalTokens int, costUSD float64)
}

// Generator resolves generation requests through cache, semantic index, and
// the completion provider, in that order.
type Generator struct {
	logger   *slog.Logger
	quotas   *quota.Tracker
	store    cache.Store
	index    *semantic.Index // nil disables similarity lookups
	recorder audit.Recorder
	backend  provider.CompletionProvider // nil means no provider configured
	observer Observer                    // nil disables metrics
	opts     Options

	now func() time.Time
}

// Request is one generation call. Model is optional and falls back to the
// configured default. Similarity matching is on by default; a zero threshold
// uses the index default.
type Request struct {
	UserID              string
	Requirement         string
	Model               string
	SkipSimilarity      bool
	SimilarityThreshold float64
}

// Result is a resolved generation with its provenance.
type Result struct {
	RequestID          string              `json:"request_id"`
	Suite              *models.TestSuite   `json:"suite"`
	Source             models.ResultSource `json:"source"`
	Cached             bool                `json:"cached"`
	SimilarityScore    float64             `json:"similarity_score,omitempty"`
	SimilarRequirement string              `json:"similar_requirement,omitempty"`
	Usage              models.TokenUsage   `json:"token_usage"`
	ProcessingTimeMs   int                 `json:"processing_time_ms"`
}

func New(logger *slog.Logger, quotas *quota.Tracker, store cache.Store, index *semantic.Index,
	recorder audit.Recorder, backend provider.CompletionProvider, observer Observer, opts Options) *Generator {
	return &Generator{
		logger:   logger,
		quotas:   quotas,
		store:    store,
		index:    index,
		recorder: recorder,
		backend:  backend,
		observer: observer,
		opts:     opts,
		now:      time.Now,
	}
}

// Generate resolves one request. Every attempt is audited, including quota
// rejections and provider failures.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Requirement == "" {
		return nil, ErrEmptyRequirement
	}
	model := req.Model
	if model == "" {
		model = g.opts.Model
	}

	requestID := uuid.NewString()
	startTime := g.now()
	fingerprint := cache.Fingerprint(req.Requirement, model)

	log := g.logger.With("request_id", requestID, "user_id", req.UserID)
	log.Info("generating test cases", "model", model)

	estimated := tokenizer.EstimateRequest(req.Requirement)
	if err := g.quotas.CheckAndReserve(req.UserID, estimated); err != nil {
		g.audit(ctx, models.AuditRecord{
			RequestID:    requestID,
			UserID:       req.UserID,
			RequestHash:  fingerprint,
			Status:       models.StatusFailed,
			Source:       models.SourceModel,
			ErrorMessage: err.Error(),
		}, startTime)
		g.observe(models.SourceModel, models.StatusFailed, models.TokenUsage{})
		return nil, fmt.Errorf("admitting request: %w", err)
	}

	if result := g.fromCache(ctx, log, requestID, fingerprint, req, startTime); result != nil {
		return result, nil
	}
	if result := g.fromIndex(ctx, log, requestID, fingerprint, req, startTime); result != nil {
		return result, nil
	}
	return g.fromProvider(ctx, log, requestID, fingerprint, req, model, startTime)
}

// fromCache resolves an exact-match hit. Cache hits consume no quota.
func (g *Generator) fromCache(ctx context.Context, log *slog.Logger, requestID, fingerprint string, req Request, startTime time.Time) *Result {
	entry, ok, err := g.store.Get(ctx, fingerprint)
	if err != nil {
		log.Warn("cache lookup failed", "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	suite := models.ParseTestSuite(entry.TestCases)
	if suite == nil {
		// Malformed stored payload: drop back to a fresh generation.
		log.Warn("cached payload unparseable, regenerating", "fingerprint", fingerprint)
		return nil
	}

	log.Info("cache hit", "fingerprint", fingerprint)
	usage := entry.Usage()
	g.audit(ctx, models.AuditRecord{
		RequestID:   requestID,
		UserID:      req.UserID,
		RequestHash: fingerprint,
		Status:      models.StatusSuccess,
		TokenUsage:  usage,
		WasCached:   true,
		Source:      models.SourceCache,
	}, startTime)
	g.observe(models.SourceCache, models.StatusSuccess, models.TokenUsage{})

	return &Result{
		RequestID:        requestID,
		Suite:            suite,
		Source:           models.SourceCache,
		Cached:           true,
		Usage:            usage,
		ProcessingTimeMs: g.elapsedMs(startTime),
	}
}

// fromIndex resolves a near-duplicate by rewriting a stored suite for the
// new requirement. Similarity hits consume no quota.
func (g *Generator) fromIndex(ctx context.Context, log *slog.Logger, requestID, fingerprint string, req Request, startTime time.Time) *Result {
	if g.index == nil || req.SkipSimilarity {
		return nil
	}

	match, err := g.index.FindSimilar(ctx, req.Requirement, req.SimilarityThreshold)
	if err != nil {
		// Similarity is an optimization; a lookup failure falls through
		// to the provider.
		log.Warn("similarity lookup failed", "error", err)
		return nil
	}
	if match == nil {
		return nil
	}

	payload := substitute(match.Record.TestCases, match.Record.Requirement, req.Requirement)
	suite := models.ParseTestSuite(payload)
	if suite == nil {
		log.Warn("similar payload unparseable, regenerating", "match_id", match.Record.ID)
		return nil
	}

	log.Info("similarity hit", "match_id", match.Record.ID, "score", match.Similarity)
	g.audit(ctx, models.AuditRecord{
		RequestID:       requestID,
		UserID:          req.UserID,
		RequestHash:     fingerprint,
		Status:          models.StatusSuccess,
		SimilarityScore: match.Similarity,
		Source:          models.SourceSemanticIndex,
	}, startTime)
	g.observe(models.SourceSemanticIndex, models.StatusSuccess, models.TokenUsage{})

	return &Result{
		RequestID:          requestID,
		Suite:              suite,
		Source:             models.SourceSemanticIndex,
		SimilarityScore:    match.Similarity,
		SimilarRequirement: match.Record.Requirement,
		ProcessingTimeMs:   g.elapsedMs(startTime),
	}
}

func (g *Generator) fromProvider(ctx context.Context, log *slog.Logger, requestID, fingerprint string, req Request, model string, startTime time.Time) (*Result, error) {
	if g.backend == nil {
		err := fmt.Errorf("%w: no provider configured", provider.ErrUnavailable)
		g.auditFailure(ctx, requestID, fingerprint, req.UserID, err, startTime)
		return nil, err
	}

	completion, err := g.backend.Complete(ctx, provider.Request{
		Model:        model,
		SystemPrompt: systemPrompt,
		UserPrompt:   buildUserPrompt(req.Requirement),
		Temperature:  g.opts.Temperature,
		MaxTokens:    g.opts.MaxTokens,
	})
	if err != nil {
		g.auditFailure(ctx, requestID, fingerprint, req.UserID, err, startTime)
		return nil, fmt.Errorf("calling provider: %w", err)
	}

	suite := models.ParseTestSuite(completion.Text)
	if suite == nil {
		err := &provider.CallError{Provider: "model", Message: "response was not a valid test suite"}
		g.auditFailure(ctx, requestID, fingerprint, req.UserID, err, startTime)
		return nil, err
	}

	usage := models.NewTokenUsage(completion.PromptTokens, completion.CompletionTokens)
	usage.CostUSD = pricing.Cost(usage, model)

	if err := g.quotas.Commit(req.UserID, usage.TotalTokens); err != nil {
		log.Warn("recording quota usage failed", "error", err)
	}

	entry := models.CacheEntry{
		TestCases:        completion.Text,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		CreatedAt:        g.now().UTC(),
		Model:            model,
	}
	if err := g.store.Put(ctx, fingerprint, entry); err != nil {
		log.Warn("caching response failed", "error", err)
	}

	if g.index != nil {
		if err := g.index.Insert(ctx, fingerprint, req.Requirement, completion.Text); err != nil {
			log.Warn("indexing requirement failed", "error", err)
		}
	}

	log.Info("model call completed", "model", model, "total_tokens", usage.TotalTokens, "cost_usd", usage.CostUSD)
	g.audit(ctx, models.AuditRecord{
		RequestID:   requestID,
		UserID:      req.UserID,
		RequestHash: fingerprint,
		Status:      models.StatusSuccess,
		TokenUsage:  usage,
		Source:      models.SourceModel,
	}, startTime)
	g.observe(models.SourceModel, models.StatusSuccess, usage)

	return &Result{
		RequestID:        requestID,
		Suite:            suite,
		Source:           models.SourceModel,
		Usage:            usage,
		ProcessingTimeMs: g.elapsedMs(startTime),
	}, nil
}

// UserStats reports a user's current quota windows.
func (g *Generator) UserStats(userID string) (*models.UserStats, error) {
	return g.quotas.Stats(userID)
}

// AuditSummary bundles a window of audit records with aggregate totals.
type AuditSummary struct {
	Stats   models.AuditStats    `json:"stats"`
	Records []models.AuditRecord `json:"records"`
}

// Audit returns a user's audit records over the trailing window along with
// aggregate totals. An empty userID covers every user.
func (g *Generator) Audit(ctx context.Context, userID string, days int) (*AuditSummary, error) {
	since := g.now().AddDate(0, 0, -days)
	records, err := g.recorder.Records(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("reading audit trail: %w", err)
	}
	return &AuditSummary{Stats: audit.Summarize(records), Records: records}, nil
}

// CleanupCache removes cache entries older than maxAgeDays and returns the
// number removed.
func (g *Generator) CleanupCache(ctx context.Context, maxAgeDays int) (int, error) {
	removed, err := g.store.Cleanup(ctx, time.Duration(maxAgeDays)*24*time.Hour)
	if err != nil {
		return removed, fmt.Errorf("cleaning cache: %w", err)
	}
	g.logger.Info("cache cleanup completed", "removed", removed, "max_age_days", maxAgeDays)
	return removed, nil
}

func (g *Generator) auditFailure(ctx context.Context, requestID, fingerprint, userID string, cause error, startTime time.Time) {
	g.audit(ctx, models.AuditRecord{
		RequestID:    requestID,
		UserID:       userID,
		RequestHash:  fingerprint,
		Status:       models.StatusFailed,
		Source:       models.SourceModel,
		ErrorMessage: cause.Error(),
	}, startTime)
	g.observe(models.SourceModel, models.StatusFailed, models.TokenUsage{})
}

func (g *Generator) audit(ctx context.Context, record models.AuditRecord, startTime time.Time) {
	record.Timestamp = g.now().UTC()
	record.ProcessingTimeMs = g.elapsedMs(startTime)
	if err := g.recorder.Append(ctx, record); err != nil {
		g.logger.Error("writing audit record failed", "request_id", record.RequestID, "error", err)
	}
}

func (g *Generator) observe(source models.ResultSource, status string, usage models.TokenUsage) {
	if g.observer == nil {
		return
	}
	g.observer.ObserveGeneration(string(source), status, usage.TotalTokens, usage.CostUSD)
}

func (g *Generator) elapsedMs(startTime time.Time) int {
	return int(g.now().Sub(startTime).Milliseconds())
}

// substitute rewrites occurrences of the matched requirement inside a stored
// payload with the new requirement, ignoring case.
func substitute(payload, oldRequirement, newRequirement string) string {
	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(oldRequirement))
	if err != nil {
		return payload
	}
	return re.ReplaceAllLiteralString(payload, newRequirement)
}
