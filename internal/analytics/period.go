package analytics

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

const (
	PeriodAll         = "all"
	PeriodToday       = "today"
	PeriodLast7Days   = "last7days"
	PeriodLastMonth   = "lastMonth"
	PeriodLast3Months = "last3Months"
	PeriodLastYear    = "lastYear"
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidDate   = errors.New("invalid date format, use YYYY-MM-DD")
	ErrInvalidRange  = errors.New("end_date must not be before start_date")
	ErrPartialRange  = errors.New("start_date and end_date must be provided together")
)

// Range is a half-open interval [Start, End) of order dates. When All is set
// the bounds are zero and every order matches.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	All   bool      `json:"all"`
	Label string    `json:"label"`
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	if r.All {
		return true
	}
	return !t.Before(r.Start) && t.Before(r.End)
}

// ResolveRange turns query parameters into a Range. Explicit dates win over
// period; endDate is inclusive. Day boundaries are taken in now's location.
func ResolveRange(period, startDate, endDate string, now time.Time) (Range, error) {
	if startDate != "" || endDate != "" {
		if startDate == "" || endDate == "" {
			return Range{}, ErrPartialRange
		}
		start, err := time.ParseInLocation(dateLayout, startDate, now.Location())
		if err != nil {
			return Range{}, ErrInvalidDate
		}
		end, err := time.ParseInLocation(dateLayout, endDate, now.Location())
		if err != nil {
			return Range{}, ErrInvalidDate
		}
		if end.Before(start) {
			return Range{}, ErrInvalidRange
		}
		return Range{Start: start, End: end.AddDate(0, 0, 1), Label: "In date range"}, nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)

	switch period {
	case "", PeriodAll:
		return Range{All: true, Label: "All time"}, nil
	case PeriodToday:
		return Range{Start: today, End: tomorrow, Label: "Today"}, nil
	case PeriodLast7Days:
		return Range{Start: today.AddDate(0, 0, -7), End: tomorrow, Label: "Last 7 days"}, nil
	case PeriodLastMonth:
		return Range{Start: today.AddDate(0, -1, 0), End: tomorrow, Label: "Last month"}, nil
	case PeriodLast3Months:
		return Range{Start: today.AddDate(0, -3, 0), End: tomorrow, Label: "Last 3 months"}, nil
	case PeriodLastYear:
		return Range{Start: today.AddDate(-1, 0, 0), End: tomorrow, Label: "Last year"}, nil
	}
	return Range{}, ErrInvalidPeriod
}
