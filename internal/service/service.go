// Package service exposes the query generation pipeline over HTTP.
package service

import (
	"context"
	"time"

	"github.com/impactlens/nlq-engine/internal/audit"
	"github.com/impactlens/nlq-engine/internal/cache"
	"github.com/impactlens/nlq-engine/internal/catalog"
	apperrors "github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/executor"
	"github.com/impactlens/nlq-engine/internal/generator"
	"github.com/impactlens/nlq-engine/internal/guardrails"
	"github.com/impactlens/nlq-engine/internal/observability"
	"github.com/impactlens/nlq-engine/internal/semantic"
)

// Service wires the catalog, generator, cache, audit log, and
// executors behind the HTTP API.
type Service struct {
	catalog       *catalog.Catalog
	generator     *generator.Generator
	resultCache   *cache.ResultCache
	auditStore    *audit.Store
	suggestions   *semantic.SuggestionStore
	executors     map[string]executor.Executor
	healthChecker *observability.HealthChecker
	logger        *observability.Logger
}

// Option configures optional service dependencies
type Option func(*Service)

// WithResultCache enables Redis result caching
func WithResultCache(rc *cache.ResultCache) Option {
	return func(s *Service) { s.resultCache = rc }
}

// WithAuditStore enables generation audit logging
func WithAuditStore(store *audit.Store) Option {
	return func(s *Service) { s.auditStore = store }
}

// WithSuggestionStore enables template suggestions
func WithSuggestionStore(store *semantic.SuggestionStore) Option {
	return func(s *Service) { s.suggestions = store }
}

// WithExecutor registers a query execution backend
func WithExecutor(name string, exec executor.Executor) Option {
	return func(s *Service) { s.executors[name] = exec }
}

// WithHealthChecker attaches the health checker serving /health
func WithHealthChecker(hc *observability.HealthChecker) Option {
	return func(s *Service) { s.healthChecker = hc }
}

// New creates the service
func New(cat *catalog.Catalog, gen *generator.Generator, opts ...Option) *Service {
	s := &Service{
		catalog:   cat,
		generator: gen,
		executors: make(map[string]executor.Executor),
		logger:    observability.NewLogger("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateQuery runs the full pipeline for one tenant, with caching
// and audit logging around it.
func (s *Service) GenerateQuery(ctx context.Context, intent generator.IntentClassification, companyID string) (*generator.QueryGenerationResult, error) {
	start := time.Now()

	if s.resultCache != nil {
		// The cache key is derived from the canonical parameters, so
		// the request must run through the pipeline once to resolve
		// defaults before the cache can be probed.
		if cached := s.cacheLookup(ctx, intent, companyID); cached != nil {
			return cached, nil
		}
	}

	result, err := s.generator.Generate(ctx, intent, companyID)
	duration := time.Since(start)

	s.recordAudit(ctx, intent, companyID, result, err, duration)

	if err != nil {
		return nil, err
	}

	if s.resultCache != nil {
		if cacheErr := s.resultCache.Set(ctx, result); cacheErr != nil {
			s.logger.Warn(ctx, "Failed to cache generation result", map[string]interface{}{
				"template_id": result.TemplateID,
				"error":       cacheErr.Error(),
			})
		}
	}

	return result, nil
}

// ValidateQuery runs the pipeline in dry-run mode: guardrail
// violations are returned in the result body, not as an error.
func (s *Service) ValidateQuery(ctx context.Context, intent generator.IntentClassification, companyID string) (*generator.QueryGenerationResult, error) {
	return s.generator.ValidateQuery(ctx, intent, companyID)
}

// ExecuteQuery generates and immediately executes a query against the
// named backend. The executor independently refuses unvalidated
// results, so a bug here cannot bypass the safety contract.
func (s *Service) ExecuteQuery(ctx context.Context, intent generator.IntentClassification, companyID, backend string) (*generator.QueryGenerationResult, *executor.ResultSet, error) {
	exec, ok := s.executors[backend]
	if !ok {
		return nil, nil, apperrors.NewInvalidInputError("backend", "unknown execution backend: "+backend)
	}

	result, err := s.GenerateQuery(ctx, intent, companyID)
	if err != nil {
		return nil, nil, err
	}

	rows, err := exec.Execute(ctx, result)
	if err != nil {
		return result, nil, err
	}

	return result, rows, nil
}

// cacheLookup rebuilds the canonical parameter set for the request and
// probes the cache. Lookup failures are treated as misses.
func (s *Service) cacheLookup(ctx context.Context, intent generator.IntentClassification, companyID string) *generator.QueryGenerationResult {
	probe, err := s.generator.ValidateQuery(ctx, intent, companyID)
	if err != nil || probe == nil || !probe.Executable() {
		return nil
	}

	cached, err := s.resultCache.Get(ctx, probe.TemplateID, companyID, probe.Parameters)
	if err != nil {
		s.logger.Warn(ctx, "Cache lookup failed", map[string]interface{}{
			"template_id": probe.TemplateID,
			"error":       err.Error(),
		})
		return nil
	}
	return cached
}

// recordAudit persists the outcome of one generation attempt
func (s *Service) recordAudit(ctx context.Context, intent generator.IntentClassification, companyID string, result *generator.QueryGenerationResult, genErr error, duration time.Duration) {
	if s.auditStore == nil {
		return
	}

	entry := audit.Entry{
		CompanyID:     companyID,
		TemplateID:    intent.TemplateID,
		Passed:        genErr == nil,
		CorrelationID: observability.GetCorrelationID(ctx),
		DurationMs:    duration.Milliseconds(),
	}

	if result != nil {
		entry.SQLText = result.SQL
		entry.OverallSeverity = string(result.SafetyValidation.OverallSeverity)
		entry.ViolationCodes = result.SafetyValidation.ViolationCodes()
	} else if coded, ok := genErr.(*apperrors.CodedError); ok {
		entry.OverallSeverity = string(guardrails.SeverityNone)
		entry.ViolationCodes = []string{string(coded.Code)}
		// Guardrail failures carry the individual check codes in the
		// error metadata; prefer those over the generic error code.
		if codes, ok := coded.Metadata["violation_codes"].([]string); ok {
			entry.ViolationCodes = codes
		}
		if severity, ok := coded.Metadata["overall_severity"].(string); ok {
			entry.OverallSeverity = severity
		}
	}

	if err := s.auditStore.Record(ctx, entry); err != nil {
		s.logger.Error(ctx, "Failed to record audit entry", err, map[string]interface{}{
			"template_id": intent.TemplateID,
		})
	}
}
