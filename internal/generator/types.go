// Package generator orchestrates query generation: parameter build and
// validation, template rendering, schema checks, safety guardrails,
// and preview assembly. It never executes SQL.
package generator

import (
	"time"

	"github.com/impactlens/nlq-engine/internal/catalog"
	"github.com/impactlens/nlq-engine/internal/guardrails"
)

// IntentClassification is the classified user intent handed over by
// the external LLM/intent layer. The tenant id is deliberately absent:
// it comes from the trusted request context, never from this payload.
type IntentClassification struct {
	Intent     string            `json:"intent"`
	Confidence float64           `json:"confidence"`
	TemplateID string            `json:"template_id" binding:"required"`
	Slots      map[string]string `json:"slots,omitempty"`
	TimeRange  *TimeRangeSpec    `json:"time_range,omitempty"`
	GroupBy    []string          `json:"group_by,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	Limit      *int              `json:"limit,omitempty"`
}

// TimeRangeSpec names a shorthand token or an explicit custom range.
type TimeRangeSpec struct {
	Token string `json:"token"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// QueryParameters is the per-request value object built from intent
// slots, tenant context, and template defaults. Built fresh per call
// and never shared across requests.
type QueryParameters struct {
	CompanyID string            `json:"company_id"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Limit     int               `json:"limit"`
	GroupBy   []string          `json:"group_by,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Preview is the human-readable explanation of a generated query. It
// has no security role.
type Preview struct {
	Description     string `json:"description"`
	DataSource      string `json:"data_source"`
	TimeRangeLabel  string `json:"time_range_label"`
	FiltersLabel    string `json:"filters_label"`
	ComplexityLabel string `json:"complexity_label"`
	CacheTTLLabel   string `json:"cache_ttl_label"`
	Explanation     string `json:"explanation"`
}

// QueryGenerationResult is the single artifact handed to the external
// execution layer. The executor must refuse to run any query whose
// SafetyValidation.Passed is false.
type QueryGenerationResult struct {
	SQL                 string                            `json:"sql"`
	CHQL                string                            `json:"chql,omitempty"`
	Preview             string                            `json:"preview"`
	DetailedPreview     Preview                           `json:"detailed_preview"`
	TemplateID          string                            `json:"template_id"`
	Parameters          QueryParameters                   `json:"parameters"`
	EstimatedComplexity catalog.Complexity                `json:"estimated_complexity"`
	CacheTTLSeconds     int                               `json:"cache_ttl_seconds"`
	SafetyValidation    guardrails.SafetyValidationResult `json:"safety_validation"`
}

// Executable reports whether the result may be handed to an executor.
func (r *QueryGenerationResult) Executable() bool {
	return r != nil && r.SafetyValidation.Passed
}

// CostEstimate is an approximate row/byte/time budget derived from a
// template's complexity class. Display only, never enforcement.
type CostEstimate struct {
	Complexity     catalog.Complexity `json:"complexity"`
	ApproxRows     int64              `json:"approx_rows"`
	ApproxBytes    int64              `json:"approx_bytes"`
	ApproxDuration time.Duration      `json:"approx_duration"`
}
