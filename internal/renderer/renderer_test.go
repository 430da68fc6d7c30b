package renderer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactlens/nlq-engine/internal/catalog"
	apperrors "github.com/impactlens/nlq-engine/internal/errors"
)

func testTemplate() *catalog.MetricTemplate {
	return &catalog.MetricTemplate{
		ID: "test_template",
		AllowedFilters: map[string][]string{
			"channel": {"web", "email_channel", "events"},
			"region":  {},
		},
	}
}

func TestSanitizeValue(t *testing.T) {
	tpl := testTemplate()

	tests := []struct {
		name        string
		value       string
		param       string
		expected    string
		expectError bool
	}{
		{
			name:     "valid uuid",
			value:    "12345678-1234-1234-1234-123456789012",
			param:    "company_id",
			expected: "12345678-1234-1234-1234-123456789012",
		},
		{
			name:        "malformed uuid",
			value:       "not-a-uuid",
			param:       "company_id",
			expectError: true,
		},
		{
			name:        "uuid with trailing injection",
			value:       "12345678-1234-1234-1234-123456789012' OR '1'='1",
			param:       "company_id",
			expectError: true,
		},
		{
			name:     "valid date",
			value:    "2024-06-30",
			param:    "start_date",
			expected: "2024-06-30",
		},
		{
			name:        "date with time component",
			value:       "2024-06-30 12:00:00",
			param:       "end_date",
			expectError: true,
		},
		{
			name:     "valid limit",
			value:    "100",
			param:    "limit",
			expected: "100",
		},
		{
			name:        "negative limit",
			value:       "-5",
			param:       "limit",
			expectError: true,
		},
		{
			name:        "non-numeric limit",
			value:       "100; DROP TABLE users",
			param:       "limit",
			expectError: true,
		},
		{
			name:     "enum member",
			value:    "email_channel",
			param:    "channel",
			expected: "email_channel",
		},
		{
			name:        "enum non-member",
			value:       "sms' OR 1=1",
			param:       "channel",
			expectError: true,
		},
		{
			name:     "free string apostrophe is doubled",
			value:    "O'Brien Foundation",
			param:    "region",
			expected: "O''Brien Foundation",
		},
		{
			name:     "free string without quotes unchanged",
			value:    "EMEA",
			param:    "region",
			expected: "EMEA",
		},
		{
			name:        "free string with line comment marker",
			value:       "US--east",
			param:       "region",
			expectError: true,
		},
		{
			name:        "free string with hash comment marker",
			value:       "west#1",
			param:       "region",
			expectError: true,
		},
		{
			name:        "free string with block comment opener",
			value:       "EM/*EA",
			param:       "region",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeValue(tt.value, tt.param, tpl)
			if tt.expectError {
				require.Error(t, err)
				coded, ok := err.(*apperrors.CodedError)
				require.True(t, ok)
				assert.Equal(t, apperrors.ErrCodeRender, coded.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderTemplate(t *testing.T) {
	text := `
SELECT name, SUM(amount)
FROM donations
WHERE company_id = '{{company_id}}'
  AND created_at BETWEEN '{{start_date}}' AND '{{end_date}}'
LIMIT {{limit}}`

	params := map[string]string{
		"company_id": "12345678-1234-1234-1234-123456789012",
		"start_date": "2024-01-01",
		"end_date":   "2024-03-31",
		"limit":      "100",
	}

	rendered, err := RenderTemplate(text, params)
	require.NoError(t, err)

	assert.Contains(t, rendered, "company_id = '12345678-1234-1234-1234-123456789012'")
	assert.Contains(t, rendered, "BETWEEN '2024-01-01' AND '2024-03-31'")
	assert.Contains(t, rendered, "LIMIT 100")
	assert.NotContains(t, rendered, "{{")
	assert.NotContains(t, rendered, "\n")
	assert.False(t, strings.Contains(rendered, "  "), "whitespace runs must be collapsed")
}

func TestRenderTemplateStripsTemplateCommentsBeforeSubstitution(t *testing.T) {
	text := `
SELECT region, COUNT(*) -- authoring note
FROM beneficiary_stats
WHERE region = '{{region}}'
LIMIT {{limit}}`

	rendered, err := RenderTemplate(text, map[string]string{
		"region": "US--east",
		"limit":  "10",
	})
	require.NoError(t, err)

	// The template's own comment is gone, but the substituted value
	// survives intact: nothing after its marker was swallowed, so the
	// closing quote and the clauses behind it are still in place.
	assert.NotContains(t, rendered, "authoring note")
	assert.Contains(t, rendered, "region = 'US--east'")
	assert.Contains(t, rendered, "LIMIT 10")
}

func TestRenderTemplateMissingParameter(t *testing.T) {
	_, err := RenderTemplate("SELECT 1 WHERE id = '{{company_id}}'", map[string]string{})
	require.Error(t, err)

	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRender, coded.Code)
	assert.Contains(t, coded.Details, "company_id")
}

func TestRenderTemplateDeterministic(t *testing.T) {
	text := "SELECT * FROM t WHERE id = '{{company_id}}' LIMIT {{limit}}"
	params := map[string]string{
		"company_id": "12345678-1234-1234-1234-123456789012",
		"limit":      "50",
	}

	first, err := RenderTemplate(text, params)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := RenderTemplate(text, params)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		name  string
		input string
		gone  []string
	}{
		{
			name:  "block comment",
			input: "SELECT 1 /* hidden */ FROM t",
			gone:  []string{"/*", "*/", "hidden"},
		},
		{
			name:  "line comment",
			input: "SELECT 1 FROM t -- trailing note",
			gone:  []string{"--", "trailing"},
		},
		{
			name:  "hash comment",
			input: "SELECT 1 FROM t # note",
			gone:  []string{"#", "note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripComments(tt.input)
			for _, fragment := range tt.gone {
				assert.NotContains(t, got, fragment)
			}
			assert.Contains(t, got, "SELECT 1")
		})
	}
}

func TestValidateRenderedSQL(t *testing.T) {
	sql := "SELECT * FROM donations d JOIN campaigns c ON c.id = d.campaign_id LIMIT 10"

	assert.NoError(t, ValidateRenderedSQL(sql, []string{"donations", "campaigns"}))

	err := ValidateRenderedSQL(sql, []string{"donations", "sroi_outcomes"})
	require.Error(t, err)
	coded, ok := err.(*apperrors.CodedError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeSchemaValidation, coded.Code)

	// Whole-word matching: "donation" must not satisfy "donations"
	err = ValidateRenderedSQL("SELECT * FROM donation LIMIT 1", []string{"donations"})
	assert.Error(t, err)
}

func TestBuildGroupByClause(t *testing.T) {
	tpl := &catalog.MetricTemplate{
		ID:             "t",
		AllowedGroupBy: []string{"campaign_name", "region"},
	}

	t.Run("default is first allowed dimension", func(t *testing.T) {
		clause, err := BuildGroupByClause(tpl, nil)
		require.NoError(t, err)
		assert.Equal(t, "campaign_name", clause)
	})

	t.Run("requested allowed dimensions", func(t *testing.T) {
		clause, err := BuildGroupByClause(tpl, []string{"region", "campaign_name"})
		require.NoError(t, err)
		assert.Equal(t, "region, campaign_name", clause)
	})

	t.Run("disallowed dimension rejected", func(t *testing.T) {
		_, err := BuildGroupByClause(tpl, []string{"password_hash"})
		require.Error(t, err)
		coded, ok := err.(*apperrors.CodedError)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeDisallowedGroupBy, coded.Code)
	})
}

func TestBuildFilterClause(t *testing.T) {
	tpl := testTemplate()

	t.Run("empty filters yield empty clause", func(t *testing.T) {
		clause, err := BuildFilterClause(tpl, nil)
		require.NoError(t, err)
		assert.Empty(t, clause)
	})

	t.Run("enum filter", func(t *testing.T) {
		clause, err := BuildFilterClause(tpl, map[string]string{"channel": "web"})
		require.NoError(t, err)
		assert.Equal(t, "AND channel = 'web'", clause)
	})

	t.Run("filters are emitted in deterministic order", func(t *testing.T) {
		filters := map[string]string{"region": "EMEA", "channel": "web"}
		first, err := BuildFilterClause(tpl, filters)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := BuildFilterClause(tpl, filters)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
		assert.Equal(t, "AND channel = 'web' AND region = 'EMEA'", first)
	})

	t.Run("free-string filter escapes quotes", func(t *testing.T) {
		clause, err := BuildFilterClause(tpl, map[string]string{"region": "O'Brien"})
		require.NoError(t, err)
		assert.Equal(t, "AND region = 'O''Brien'", clause)
	})

	t.Run("free-string filter with comment marker rejected", func(t *testing.T) {
		_, err := BuildFilterClause(tpl, map[string]string{"region": "US--east"})
		require.Error(t, err)
		coded, ok := err.(*apperrors.CodedError)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeDisallowedFilter, coded.Code)
	})

	t.Run("undeclared filter key rejected", func(t *testing.T) {
		_, err := BuildFilterClause(tpl, map[string]string{"email": "a@b.c"})
		require.Error(t, err)
		coded, ok := err.(*apperrors.CodedError)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeDisallowedFilter, coded.Code)
	})

	t.Run("enum non-member rejected", func(t *testing.T) {
		_, err := BuildFilterClause(tpl, map[string]string{"channel": "carrier_pigeon"})
		require.Error(t, err)
	})
}
