package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/impactlens/nlq-engine/internal/catalog"
)

// BuildPreview produces the human-readable explanation of a generated
// query. It is pure UX: it never fails, falling back to generic
// wording when a field is unavailable, and has no bearing on safety.
func BuildPreview(tpl *catalog.MetricTemplate, params QueryParameters) Preview {
	description := tpl.Description
	if description == "" {
		description = "Pre-approved report query"
	}

	dataSource := "platform reporting data"
	if len(tpl.ExpectedTables) > 0 {
		dataSource = strings.Join(tpl.ExpectedTables, ", ")
	}

	timeRangeLabel := "all available history"
	if params.StartDate != "" && params.EndDate != "" {
		timeRangeLabel = fmt.Sprintf("%s to %s", params.StartDate, params.EndDate)
	}

	filtersLabel := "no additional filters"
	if len(params.Filters) > 0 || len(params.Extra) > 0 {
		parts := make([]string, 0, len(params.Filters)+len(params.Extra))
		for key, value := range params.Filters {
			parts = append(parts, fmt.Sprintf("%s = %s", key, value))
		}
		for key, value := range params.Extra {
			parts = append(parts, fmt.Sprintf("%s = %s", key, value))
		}
		sort.Strings(parts)
		filtersLabel = strings.Join(parts, ", ")
	}

	complexityLabel := complexityWording(tpl.EstimatedComplexity)

	cacheLabel := "results are not cached"
	if tpl.CacheTTLSeconds > 0 {
		cacheLabel = fmt.Sprintf("results may be cached for up to %d seconds", tpl.CacheTTLSeconds)
	}

	name := tpl.Name
	if name == "" {
		name = tpl.ID
	}
	explanation := fmt.Sprintf(
		"Runs the %s report over %s for the window %s, limited to %d rows. %s.",
		name, dataSource, timeRangeLabel, params.Limit, capitalize(complexityLabel),
	)

	return Preview{
		Description:     description,
		DataSource:      dataSource,
		TimeRangeLabel:  timeRangeLabel,
		FiltersLabel:    filtersLabel,
		ComplexityLabel: complexityLabel,
		CacheTTLLabel:   cacheLabel,
		Explanation:     explanation,
	}
}

func complexityWording(c catalog.Complexity) string {
	switch c {
	case catalog.ComplexityLow:
		return "a lightweight query that should return quickly"
	case catalog.ComplexityMedium:
		return "a moderate query that may take a moment"
	case catalog.ComplexityHigh:
		return "a heavy analytical query that can take several seconds"
	default:
		return "a query of unknown cost"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
