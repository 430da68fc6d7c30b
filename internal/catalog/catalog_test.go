package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
)

func validTemplate() *MetricTemplate {
	return &MetricTemplate{
		ID:                   "test_metric",
		Name:                 "Test Metric",
		Category:             "testing",
		SQLTemplate:          "SELECT name FROM things WHERE company_id = '{{company_id}}' LIMIT {{limit}}",
		AllowedTimeRanges:    []string{RangeLast30Days},
		MaxTimeWindowDays:    365,
		RequiresTenantFilter: true,
		ExpectedTables:       []string{"things"},
		EstimatedComplexity:  ComplexityLow,
		MaxResultRows:        1000,
		DefaultLimit:         100,
	}
}

func TestMustBuiltin(t *testing.T) {
	c := MustBuiltin()

	assert.Equal(t, 20, c.Len())
	assert.Len(t, c.AllTemplateIDs(), 20)

	// ids are unique and sorted
	ids := c.AllTemplateIDs()
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestBuiltinTemplatesAreInternallyConsistent(t *testing.T) {
	c := MustBuiltin()

	for _, id := range c.AllTemplateIDs() {
		tpl, err := c.GetTemplate(id)
		require.NoError(t, err)

		t.Run(id, func(t *testing.T) {
			assert.NotEmpty(t, tpl.Name)
			assert.NotEmpty(t, tpl.Description)
			assert.NotEmpty(t, tpl.AllowedTimeRanges)
			assert.Contains(t, tpl.SQLTemplate, "LIMIT {{limit}}")
			assert.LessOrEqual(t, tpl.MaxResultRows, GlobalMaxResultRows)
			assert.LessOrEqual(t, tpl.DefaultLimit, tpl.MaxResultRows)

			if tpl.RequiresTenantFilter {
				assert.Contains(t, tpl.SQLTemplate, "company_id = '{{company_id}}'")
				if tpl.HasCHQL() {
					assert.Contains(t, tpl.CHQLTemplate, "company_id = '{{company_id}}'")
				}
			}

			// Every declared expected table must actually appear in the text
			for _, table := range tpl.ExpectedTables {
				assert.Contains(t, strings.ToLower(tpl.SQLTemplate), table)
			}
		})
	}
}

func TestCohortBenchmarkIsKAnonymous(t *testing.T) {
	c := MustBuiltin()

	tpl, err := c.GetTemplate("cohort_sroi_benchmark")
	require.NoError(t, err)

	// The k>=7 threshold is part of the approved SQL text itself, not a
	// runtime parameter a caller could lower.
	assert.Contains(t, tpl.SQLTemplate, "HAVING COUNT(DISTINCT company_id) >= 7")
	if tpl.HasCHQL() {
		assert.Contains(t, tpl.CHQLTemplate, "uniqExact(company_id) >= 7")
	}
}

func TestGetTemplateUnknownID(t *testing.T) {
	c := MustBuiltin()

	_, err := c.GetTemplate("made_up_template")
	require.Error(t, err)

	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeTemplateNotFound, coded.Code)
}

func TestGetTemplatesByCategory(t *testing.T) {
	c := MustBuiltin()

	impact := c.GetTemplatesByCategory("impact")
	assert.NotEmpty(t, impact)
	for _, tpl := range impact {
		assert.Equal(t, "impact", tpl.Category)
	}

	assert.Empty(t, c.GetTemplatesByCategory("no_such_category"))
}

func TestGetTemplatesByTag(t *testing.T) {
	c := MustBuiltin()

	sroi := c.GetTemplatesByTag("sroi")
	assert.NotEmpty(t, sroi)
	for _, tpl := range sroi {
		assert.Contains(t, tpl.Tags, "sroi")
	}
}

func TestNewRejectsMalformedTemplates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MetricTemplate)
		errMsg string
	}{
		{
			name:   "empty sql",
			mutate: func(t *MetricTemplate) { t.SQLTemplate = "" },
			errMsg: "missing SQL template",
		},
		{
			name:   "max rows over global cap",
			mutate: func(t *MetricTemplate) { t.MaxResultRows = GlobalMaxResultRows + 1 },
			errMsg: "max_result_rows",
		},
		{
			name:   "default limit over max rows",
			mutate: func(t *MetricTemplate) { t.DefaultLimit = t.MaxResultRows + 1 },
			errMsg: "default_limit",
		},
		{
			name:   "non-positive time window",
			mutate: func(t *MetricTemplate) { t.MaxTimeWindowDays = 0 },
			errMsg: "max_time_window_days",
		},
		{
			name: "tenant filter declared but predicate missing",
			mutate: func(t *MetricTemplate) {
				t.SQLTemplate = "SELECT name FROM things LIMIT {{limit}}"
			},
			errMsg: "company_id predicate",
		},
		{
			name: "parameterized limit missing",
			mutate: func(t *MetricTemplate) {
				t.SQLTemplate = "SELECT name FROM things WHERE company_id = '{{company_id}}' LIMIT 100"
			},
			errMsg: "LIMIT",
		},
		{
			name:   "unknown complexity",
			mutate: func(t *MetricTemplate) { t.EstimatedComplexity = "extreme" },
			errMsg: "complexity",
		},
		{
			name:   "no expected tables",
			mutate: func(t *MetricTemplate) { t.ExpectedTables = nil },
			errMsg: "expected tables",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := validTemplate()
			tt.mutate(tpl)

			_, err := New([]*MetricTemplate{tpl})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewRejectsDuplicateIDs(t *testing.T) {
	_, err := New([]*MetricTemplate{validTemplate(), validTemplate()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate template id")
}

func TestTemplateAccessors(t *testing.T) {
	tpl := &MetricTemplate{
		AllowedTimeRanges: []string{RangeLast30Days, RangeCustom},
		AllowedGroupBy:    []string{"region"},
		AllowedFilters:    map[string][]string{"channel": {"web"}},
	}

	assert.True(t, tpl.AllowsTimeRange(RangeLast30Days))
	assert.False(t, tpl.AllowsTimeRange(RangeLast7Days))
	assert.True(t, tpl.AllowsGroupBy("region"))
	assert.False(t, tpl.AllowsGroupBy("password"))

	values, ok := tpl.FilterValues("channel")
	assert.True(t, ok)
	assert.Equal(t, []string{"web"}, values)

	_, ok = tpl.FilterValues("email")
	assert.False(t, ok)
}
