package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/impactlens/nlq-engine/internal/catalog"
	"github.com/impactlens/nlq-engine/internal/errors"
	"github.com/impactlens/nlq-engine/internal/guardrails"
	"github.com/impactlens/nlq-engine/internal/observability"
	"github.com/impactlens/nlq-engine/internal/renderer"
)

// reservedParams are placeholder names the pipeline owns; intent slots
// may never override them.
var reservedParams = map[string]bool{
	"company_id":    true,
	"start_date":    true,
	"end_date":      true,
	"limit":         true,
	"group_by":      true,
	"filter_clause": true,
}

// Generator runs the synchronous generation pipeline. It holds no
// per-request state: parallel calls never interfere.
type Generator struct {
	catalog            *catalog.Catalog
	logger             *observability.Logger
	now                func() time.Time
	guardrailsDisabled bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock fixes the "now" used to resolve relative date ranges.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithGuardrailsDisabled skips the safety validation step. Only for
// trusted internal tooling; production callers must never set this.
func WithGuardrailsDisabled() Option {
	return func(g *Generator) { g.guardrailsDisabled = true }
}

// New creates a generator over an immutable catalog.
func New(cat *catalog.Catalog, opts ...Option) *Generator {
	g := &Generator{
		catalog: cat,
		logger:  observability.NewLogger("query-generator"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the full pipeline and returns an executable result.
// Any failed step short-circuits with a typed error; partial results
// are never exposed. A guardrail failure is fatal here: use
// ValidateQuery to inspect violations without an error.
func (g *Generator) Generate(ctx context.Context, intent IntentClassification, companyID string) (*QueryGenerationResult, error) {
	result, err := g.run(ctx, intent, companyID)
	if err != nil {
		return nil, err
	}

	if !g.guardrailsDisabled && !result.SafetyValidation.Passed {
		codes := result.SafetyValidation.ViolationCodes()
		severity := string(result.SafetyValidation.OverallSeverity)
		if result.SafetyValidation.OverallSeverity == guardrails.SeverityCritical {
			// Log the violation ids only; the raw SQL may carry an
			// attack payload or tenant identifiers.
			g.logger.Error(ctx, "Generated query rejected by guardrails", nil, map[string]interface{}{
				"template_id":     intent.TemplateID,
				"violation_codes": codes,
				"severity":        severity,
			})
		} else {
			g.logger.Warn(ctx, "Generated query rejected by guardrails", map[string]interface{}{
				"template_id":     intent.TemplateID,
				"violation_codes": codes,
				"severity":        severity,
			})
		}
		observability.RecordGuardrailViolations(codes)
		return nil, errors.NewSafetyValidationError(codes, severity)
	}

	return result, nil
}

// ValidateQuery runs the same pipeline as Generate without requiring
// execution context, for dry-runs and testing. Guardrail violations
// are reported in the result rather than as an error.
func (g *Generator) ValidateQuery(ctx context.Context, intent IntentClassification, companyID string) (*QueryGenerationResult, error) {
	return g.run(ctx, intent, companyID)
}

// run is the eight-step pipeline shared by Generate and ValidateQuery.
func (g *Generator) run(ctx context.Context, intent IntentClassification, companyID string) (*QueryGenerationResult, error) {
	start := g.nowSafe()

	// Step 1: template lookup, fails closed on unknown ids.
	tpl, err := g.catalog.GetTemplate(intent.TemplateID)
	if err != nil {
		return nil, err
	}

	// Step 2: build parameters from intent slots, tenant context, and
	// template defaults.
	params, timeRange, err := g.buildParameters(tpl, intent, companyID)
	if err != nil {
		return nil, err
	}

	// Step 3: validate parameters against the template's declared
	// constraints, before any SQL text exists.
	groupByClause, filterClause, err := g.validateParameters(tpl, params, timeRange)
	if err != nil {
		return nil, err
	}

	substitutions, err := g.buildSubstitutions(tpl, params, groupByClause, filterClause)
	if err != nil {
		return nil, err
	}

	// Step 4: render the primary SQL.
	sql, err := renderer.RenderTemplate(tpl.SQLTemplate, substitutions)
	if err != nil {
		return nil, err
	}

	// Step 5: render the CHQL variant when the template defines one.
	var chql string
	if tpl.HasCHQL() {
		chql, err = renderer.RenderTemplate(tpl.CHQLTemplate, substitutions)
		if err != nil {
			return nil, err
		}
	}

	// Step 6: template integrity check on the rendered output.
	if err := renderer.ValidateRenderedSQL(sql, tpl.ExpectedTables); err != nil {
		return nil, err
	}
	if chql != "" {
		expected := tpl.CHQLExpectedTables
		if len(expected) == 0 {
			expected = tpl.ExpectedTables
		}
		if err := renderer.ValidateRenderedSQL(chql, expected); err != nil {
			return nil, err
		}
	}

	// Step 7: safety guardrails over the final SQL text.
	validation := guardrails.SafetyValidationResult{Passed: true, OverallSeverity: guardrails.SeverityNone}
	if !g.guardrailsDisabled {
		gctx := guardrails.Context{
			CompanyID:           params.CompanyID,
			TemplateID:          tpl.ID,
			RequireTenantFilter: tpl.RequiresTenantFilter,
			AllowedTables:       tpl.ExpectedTables,
			AllowedJoins:        tpl.AllowedJoins,
			DeniedColumns:       tpl.DeniedColumns,
		}
		validation = guardrails.Validate(sql, gctx)
		if chql != "" && validation.Passed {
			chqlTables := append([]string{}, tpl.ExpectedTables...)
			chqlTables = append(chqlTables, tpl.CHQLExpectedTables...)
			gctx.AllowedTables = chqlTables
			validation = mergeValidations(validation, guardrails.Validate(chql, gctx))
		}
	}

	// Step 8: preview and result assembly.
	detailed := BuildPreview(tpl, params)
	result := &QueryGenerationResult{
		SQL:                 sql,
		CHQL:                chql,
		Preview:             fmt.Sprintf("%s (%s)", detailed.Description, detailed.TimeRangeLabel),
		DetailedPreview:     detailed,
		TemplateID:          tpl.ID,
		Parameters:          params,
		EstimatedComplexity: tpl.EstimatedComplexity,
		CacheTTLSeconds:     tpl.CacheTTLSeconds,
		SafetyValidation:    validation,
	}

	g.logger.Debug(ctx, "Query generated", map[string]interface{}{
		"template_id": tpl.ID,
		"duration_ms": time.Since(start).Milliseconds(),
		"safe":        validation.Passed,
	})
	observability.RecordGenerationMetrics(time.Since(start), validation.Passed)

	return result, nil
}

// buildParameters assembles the per-request value object. The company
// id comes exclusively from the trusted tenant context argument.
func (g *Generator) buildParameters(tpl *catalog.MetricTemplate, intent IntentClassification, companyID string) (QueryParameters, renderer.DateRange, error) {
	if tpl.RequiresTenantFilter && companyID == "" {
		return QueryParameters{}, renderer.DateRange{}, errors.NewMissingTenantError(tpl.ID)
	}

	token, custom, err := resolveTimeRangeSpec(tpl, intent.TimeRange)
	if err != nil {
		return QueryParameters{}, renderer.DateRange{}, err
	}
	dateRange, err := renderer.CalculateDateRange(token, custom, g.nowSafe())
	if err != nil {
		return QueryParameters{}, renderer.DateRange{}, err
	}

	limit := tpl.DefaultLimit
	if intent.Limit != nil {
		limit = *intent.Limit
	}

	extra := make(map[string]string)
	for name, value := range intent.Slots {
		if reservedParams[name] {
			continue
		}
		if strings.Contains(tpl.SQLTemplate, "{{"+name+"}}") || strings.Contains(tpl.CHQLTemplate, "{{"+name+"}}") {
			extra[name] = value
		}
	}
	// Placeholder enums without a slot fall back to the template's
	// first allowed value, e.g. cohort_type defaulting to "industry".
	for key, allowed := range tpl.AllowedFilters {
		if len(allowed) == 0 {
			continue
		}
		if _, have := extra[key]; have {
			continue
		}
		if strings.Contains(tpl.SQLTemplate, "{{"+key+"}}") {
			extra[key] = allowed[0]
		}
	}

	params := QueryParameters{
		CompanyID: companyID,
		StartDate: dateRange.StartISO(),
		EndDate:   dateRange.EndISO(),
		Limit:     limit,
		GroupBy:   intent.GroupBy,
		Filters:   intent.Filters,
		Extra:     extra,
	}
	return params, dateRange, nil
}

// resolveTimeRangeSpec picks the effective time range token, honoring
// the template's allow-list, and parses a custom range when given.
func resolveTimeRangeSpec(tpl *catalog.MetricTemplate, spec *TimeRangeSpec) (string, *renderer.DateRange, error) {
	if spec == nil || spec.Token == "" {
		if tpl.AllowsTimeRange(catalog.RangeLast30Days) {
			return catalog.RangeLast30Days, nil, nil
		}
		if len(tpl.AllowedTimeRanges) == 0 {
			return "", nil, errors.NewParameterValidationError("time_range", fmt.Sprintf("template '%s' declares no allowed time ranges", tpl.ID))
		}
		return tpl.AllowedTimeRanges[0], nil, nil
	}

	if !tpl.AllowsTimeRange(spec.Token) {
		return "", nil, errors.NewParameterValidationError("time_range", fmt.Sprintf("time range %q is not allowed by template '%s'", spec.Token, tpl.ID))
	}

	if spec.Token != catalog.RangeCustom {
		return spec.Token, nil, nil
	}

	start, err := time.Parse("2006-01-02", spec.Start)
	if err != nil {
		return "", nil, errors.NewParameterValidationError("time_range.start", "start date is not a YYYY-MM-DD date")
	}
	end, err := time.Parse("2006-01-02", spec.End)
	if err != nil {
		return "", nil, errors.NewParameterValidationError("time_range.end", "end date is not a YYYY-MM-DD date")
	}
	return catalog.RangeCustom, &renderer.DateRange{Start: start, End: end}, nil
}

// validateParameters enforces the template's declared constraints and
// pre-builds the grouping and filter clauses. An invalid request fails
// here, before it can ever reach SQL text.
func (g *Generator) validateParameters(tpl *catalog.MetricTemplate, params QueryParameters, timeRange renderer.DateRange) (string, string, error) {
	if days := timeRange.Days(); days > tpl.MaxTimeWindowDays {
		return "", "", errors.NewTimeWindowError(days, tpl.MaxTimeWindowDays)
	}

	if params.Limit > tpl.MaxResultRows {
		return "", "", errors.NewRowLimitError(params.Limit, tpl.MaxResultRows)
	}
	if params.Limit > catalog.GlobalMaxResultRows {
		return "", "", errors.NewRowLimitError(params.Limit, catalog.GlobalMaxResultRows)
	}
	if params.Limit <= 0 {
		return "", "", errors.NewParameterValidationError("limit", "limit must be a positive integer")
	}

	groupByClause, err := renderer.BuildGroupByClause(tpl, params.GroupBy)
	if err != nil {
		return "", "", err
	}

	// Enum-valued placeholders are excluded from the filter clause:
	// their value lands directly in the template body.
	clauseFilters := make(map[string]string, len(params.Filters))
	for key, value := range params.Filters {
		if strings.Contains(tpl.SQLTemplate, "{{"+key+"}}") {
			continue
		}
		clauseFilters[key] = value
	}
	filterClause, err := renderer.BuildFilterClause(tpl, clauseFilters)
	if err != nil {
		return "", "", err
	}

	return groupByClause, filterClause, nil
}

// buildSubstitutions sanitizes every value that will enter SQL text.
func (g *Generator) buildSubstitutions(tpl *catalog.MetricTemplate, params QueryParameters, groupByClause, filterClause string) (map[string]string, error) {
	substitutions := map[string]string{
		"group_by":      groupByClause,
		"filter_clause": filterClause,
	}

	if params.CompanyID != "" {
		companyID, err := renderer.SanitizeValue(params.CompanyID, "company_id", tpl)
		if err != nil {
			return nil, err
		}
		substitutions["company_id"] = companyID
	}

	for name, raw := range map[string]string{
		"start_date": params.StartDate,
		"end_date":   params.EndDate,
		"limit":      fmt.Sprintf("%d", params.Limit),
	} {
		value, err := renderer.SanitizeValue(raw, name, tpl)
		if err != nil {
			return nil, err
		}
		substitutions[name] = value
	}

	for name, raw := range params.Extra {
		value, err := renderer.SanitizeValue(raw, name, tpl)
		if err != nil {
			return nil, err
		}
		substitutions[name] = value
	}

	return substitutions, nil
}

// EstimateQueryCost maps a template's complexity class to an
// approximate row/byte/time budget. Display only.
func (g *Generator) EstimateQueryCost(templateID string) (CostEstimate, error) {
	tpl, err := g.catalog.GetTemplate(templateID)
	if err != nil {
		return CostEstimate{}, err
	}

	switch tpl.EstimatedComplexity {
	case catalog.ComplexityLow:
		return CostEstimate{Complexity: tpl.EstimatedComplexity, ApproxRows: 10_000, ApproxBytes: 1 << 20, ApproxDuration: 50 * time.Millisecond}, nil
	case catalog.ComplexityMedium:
		return CostEstimate{Complexity: tpl.EstimatedComplexity, ApproxRows: 250_000, ApproxBytes: 32 << 20, ApproxDuration: 400 * time.Millisecond}, nil
	default:
		return CostEstimate{Complexity: tpl.EstimatedComplexity, ApproxRows: 2_000_000, ApproxBytes: 256 << 20, ApproxDuration: 2 * time.Second}, nil
	}
}

func (g *Generator) nowSafe() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

// mergeValidations combines the SQL and CHQL validation outcomes into
// a single aggregate; both must pass for the result to be executable.
func mergeValidations(a, b guardrails.SafetyValidationResult) guardrails.SafetyValidationResult {
	merged := guardrails.SafetyValidationResult{
		Passed:          a.Passed && b.Passed,
		Checks:          append(append([]guardrails.SafetyCheckResult{}, a.Checks...), b.Checks...),
		Violations:      append(append([]guardrails.SafetyCheckResult{}, a.Violations...), b.Violations...),
		OverallSeverity: a.OverallSeverity,
	}
	for _, v := range b.Violations {
		merged.OverallSeverity = guardrails.MaxSeverity(merged.OverallSeverity, v.Severity)
	}
	return merged
}
