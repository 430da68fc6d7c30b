package renderer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impactlens/nlq-engine/internal/catalog"
)

func fixedNow() time.Time {
	// A Wednesday in mid-Q3
	return time.Date(2024, 8, 14, 15, 30, 0, 0, time.UTC)
}

func TestCalculateDateRange(t *testing.T) {
	tests := []struct {
		name          string
		token         string
		custom        *DateRange
		expectedStart string
		expectedEnd   string
		expectError   bool
	}{
		{
			name:          "last 7 days",
			token:         catalog.RangeLast7Days,
			expectedStart: "2024-08-07",
			expectedEnd:   "2024-08-14",
		},
		{
			name:          "last 30 days",
			token:         catalog.RangeLast30Days,
			expectedStart: "2024-07-15",
			expectedEnd:   "2024-08-14",
		},
		{
			name:          "last 90 days",
			token:         catalog.RangeLast90Days,
			expectedStart: "2024-05-16",
			expectedEnd:   "2024-08-14",
		},
		{
			name:          "last quarter is the most recently completed quarter",
			token:         catalog.RangeLastQuarter,
			expectedStart: "2024-04-01",
			expectedEnd:   "2024-06-30",
		},
		{
			name:          "year to date",
			token:         catalog.RangeYearToDate,
			expectedStart: "2024-01-01",
			expectedEnd:   "2024-08-14",
		},
		{
			name:          "last year is the full previous calendar year",
			token:         catalog.RangeLastYear,
			expectedStart: "2023-01-01",
			expectedEnd:   "2023-12-31",
		},
		{
			name:  "custom range",
			token: catalog.RangeCustom,
			custom: &DateRange{
				Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			},
			expectedStart: "2024-03-01",
			expectedEnd:   "2024-03-31",
		},
		{
			name:        "custom range without dates",
			token:       catalog.RangeCustom,
			expectError: true,
		},
		{
			name:  "custom range with end before start",
			token: catalog.RangeCustom,
			custom: &DateRange{
				Start: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			},
			expectError: true,
		},
		{
			name:        "unknown token",
			token:       "last_eon",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateDateRange(tt.token, tt.custom, fixedNow())
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStart, got.StartISO())
			assert.Equal(t, tt.expectedEnd, got.EndISO())
		})
	}
}

func TestCalculateDateRangeDeterministic(t *testing.T) {
	first, err := CalculateDateRange(catalog.RangeLastQuarter, nil, fixedNow())
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := CalculateDateRange(catalog.RangeLastQuarter, nil, fixedNow())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLastQuarterAcrossYearBoundary(t *testing.T) {
	january := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	got, err := CalculateDateRange(catalog.RangeLastQuarter, nil, january)
	require.NoError(t, err)
	assert.Equal(t, "2023-10-01", got.StartISO())
	assert.Equal(t, "2023-12-31", got.EndISO())
}

func TestDateRangeDays(t *testing.T) {
	r := DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 30, r.Days())
}
