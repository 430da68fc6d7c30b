package renderer

import (
	"fmt"
	"time"

	"github.com/impactlens/nlq-engine/internal/catalog"
	"github.com/impactlens/nlq-engine/internal/errors"
)

// DateRange is a resolved, inclusive date window.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the span of the range in whole days.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// StartISO returns the start date as YYYY-MM-DD.
func (r DateRange) StartISO() string {
	return r.Start.Format("2006-01-02")
}

// EndISO returns the end date as YYYY-MM-DD.
func (r DateRange) EndISO() string {
	return r.End.Format("2006-01-02")
}

// CalculateDateRange resolves a shorthand token ("last_30d", "ytd", ...)
// to a concrete date range relative to now, or validates an explicit
// custom range. Deterministic for a fixed now.
func CalculateDateRange(token string, custom *DateRange, now time.Time) (DateRange, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch token {
	case catalog.RangeLast7Days:
		return DateRange{Start: today.AddDate(0, 0, -7), End: today}, nil
	case catalog.RangeLast30Days:
		return DateRange{Start: today.AddDate(0, 0, -30), End: today}, nil
	case catalog.RangeLast90Days:
		return DateRange{Start: today.AddDate(0, 0, -90), End: today}, nil
	case catalog.RangeLastQuarter:
		return lastCompletedQuarter(today), nil
	case catalog.RangeYearToDate:
		return DateRange{Start: time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), End: today}, nil
	case catalog.RangeLastYear:
		return DateRange{
			Start: time.Date(today.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(today.Year()-1, 12, 31, 0, 0, 0, 0, time.UTC),
		}, nil
	case catalog.RangeCustom:
		if custom == nil {
			return DateRange{}, errors.NewParameterValidationError("time_range", "custom range requested without start/end dates")
		}
		if custom.End.Before(custom.Start) {
			return DateRange{}, errors.NewParameterValidationError("time_range", fmt.Sprintf("end date %s precedes start date %s", custom.End.Format("2006-01-02"), custom.Start.Format("2006-01-02")))
		}
		return *custom, nil
	default:
		return DateRange{}, errors.NewParameterValidationError("time_range", fmt.Sprintf("unknown time range token %q", token))
	}
}

// lastCompletedQuarter returns the most recently completed calendar
// quarter relative to today.
func lastCompletedQuarter(today time.Time) DateRange {
	quarter := (int(today.Month()) - 1) / 3 // 0..3, current quarter
	year := today.Year()
	quarter-- // previous quarter
	if quarter < 0 {
		quarter = 3
		year--
	}
	startMonth := time.Month(quarter*3 + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return DateRange{Start: start, End: end}
}
