// Package catalog holds the immutable allow-list of query templates.
// The catalog is the complete set of queries the platform can ever
// generate: no code path may synthesize SQL outside it.
package catalog

// Complexity is a coarse execution-cost class used for UI display and
// cache sizing, never for enforcement.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Time range shorthand tokens accepted by templates.
const (
	RangeLast7Days   = "last_7d"
	RangeLast30Days  = "last_30d"
	RangeLast90Days  = "last_90d"
	RangeLastQuarter = "last_quarter"
	RangeYearToDate  = "ytd"
	RangeLastYear    = "last_year"
	RangeCustom      = "custom"
)

// GlobalMaxResultRows is the hard cap on any LIMIT clause, regardless
// of what an individual template declares.
const GlobalMaxResultRows = 10000

// MetricTemplate is a fixed, parameterized SQL/CHQL query with its
// declared constraints. Templates are immutable after catalog
// construction.
type MetricTemplate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`

	// SQLTemplate is the primary (Postgres) query text with {{name}}
	// placeholders. CHQLTemplate is the optional ClickHouse variant.
	SQLTemplate  string `json:"-"`
	CHQLTemplate string `json:"-"`

	// AllowedTimeRanges lists the shorthand tokens this template
	// accepts; "custom" permits an explicit start/end pair.
	AllowedTimeRanges []string `json:"allowed_time_ranges"`

	// AllowedGroupBy lists the column names a caller may group by.
	// The first entry is the default grouping when none is requested.
	AllowedGroupBy []string `json:"allowed_group_by"`

	// AllowedFilters maps filter keys to their enum of permitted
	// values. An empty value slice means any string is accepted after
	// quote escaping.
	AllowedFilters map[string][]string `json:"allowed_filters"`

	MaxTimeWindowDays    int  `json:"max_time_window_days"`
	RequiresTenantFilter bool `json:"requires_tenant_filter"`

	// AllowedJoins lists the tables this template may join beyond its
	// primary table. ExpectedTables lists every table the rendered SQL
	// must reference (template integrity, not user input);
	// CHQLExpectedTables does the same for the ClickHouse variant when
	// its table set differs.
	AllowedJoins       []string `json:"allowed_joins"`
	ExpectedTables     []string `json:"expected_tables"`
	CHQLExpectedTables []string `json:"chql_expected_tables,omitempty"`

	// DeniedColumns are column names this template must never select,
	// on top of the global PII denylist.
	DeniedColumns []string `json:"denied_columns"`

	EstimatedComplexity Complexity `json:"estimated_complexity"`
	MaxResultRows       int        `json:"max_result_rows"`
	DefaultLimit        int        `json:"default_limit"`
	CacheTTLSeconds     int        `json:"cache_ttl_seconds"`
}

// HasCHQL reports whether the template defines a ClickHouse variant.
func (t *MetricTemplate) HasCHQL() bool {
	return t.CHQLTemplate != ""
}

// AllowsTimeRange reports whether the shorthand token is accepted.
func (t *MetricTemplate) AllowsTimeRange(token string) bool {
	for _, r := range t.AllowedTimeRanges {
		if r == token {
			return true
		}
	}
	return false
}

// AllowsGroupBy reports whether the column may be grouped by.
func (t *MetricTemplate) AllowsGroupBy(column string) bool {
	for _, g := range t.AllowedGroupBy {
		if g == column {
			return true
		}
	}
	return false
}

// FilterValues returns the enum of permitted values for a filter key
// and whether the key is allowed at all.
func (t *MetricTemplate) FilterValues(key string) ([]string, bool) {
	values, ok := t.AllowedFilters[key]
	return values, ok
}
