package analytics_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/washtrack/api/internal/analytics"
)

var manila = time.FixedZone("PHT", 8*3600)

func rec(id, userID int64, username, amount string, date time.Time) analytics.OrderRecord {
	return analytics.OrderRecord{
		OrderID:   id,
		UserID:    userID,
		Username:  username,
		Amount:    decimal.RequireFromString(amount),
		Status:    "Completed",
		OrderDate: date,
	}
}

func TestSummarize_Totals(t *testing.T) {
	orders := []analytics.OrderRecord{
		rec(1, 10, "ana", "100.00", time.Date(2025, 1, 5, 9, 0, 0, 0, manila)),
		rec(2, 10, "ana", "50.50", time.Date(2025, 3, 1, 9, 0, 0, 0, manila)),
		rec(3, 11, "ben", "200.00", time.Date(2025, 3, 9, 9, 0, 0, 0, manila)),
	}

	s := analytics.Summarize(orders, 4, analytics.Range{All: true, Label: "All time"})

	assert.Equal(t, "350.50", s.TotalRevenue.StringFixed(2))
	assert.Equal(t, 3, s.TotalOrders)
	assert.Equal(t, "116.83", s.AverageOrderValue.StringFixed(2))
	assert.Equal(t, int64(4), s.ActiveCustomers)
	assert.Len(t, s.Orders, 3)

	require.Len(t, s.Monthly, 12)
	assert.Equal(t, "Jan", s.Monthly[0].Month)
	assert.Equal(t, 1, s.Monthly[0].Orders)
	assert.Equal(t, "100.00", s.Monthly[0].Revenue.StringFixed(2))
	assert.Equal(t, 2, s.Monthly[2].Orders)
	assert.Equal(t, "250.50", s.Monthly[2].Revenue.StringFixed(2))
	assert.Equal(t, 0, s.Monthly[11].Orders)
	assert.Equal(t, "Dec", s.Monthly[11].Month)
}

func TestSummarize_Empty(t *testing.T) {
	s := analytics.Summarize(nil, 0, analytics.Range{All: true})

	assert.True(t, s.TotalRevenue.IsZero())
	assert.True(t, s.AverageOrderValue.IsZero())
	assert.Equal(t, 0, s.TotalOrders)
	assert.NotNil(t, s.TopCustomers)
	assert.NotNil(t, s.RepeatCustomers)
	assert.Len(t, s.Monthly, 12)
}

func TestSummarize_CustomerSegments(t *testing.T) {
	d := time.Date(2025, 5, 1, 10, 0, 0, 0, manila)
	orders := []analytics.OrderRecord{
		rec(1, 1, "u1", "10", d),
		rec(2, 2, "u2", "500", d),
		rec(3, 3, "u3", "30", d),
		rec(4, 3, "u3", "30", d),
		rec(5, 4, "u4", "40", d),
		rec(6, 5, "u5", "50", d),
		rec(7, 6, "u6", "5", d),
		rec(8, 6, "u6", "1", d),
	}

	s := analytics.Summarize(orders, 6, analytics.Range{All: true})

	require.Len(t, s.TopCustomers, analytics.TopCustomerLimit)
	var top []string
	for _, c := range s.TopCustomers {
		top = append(top, c.Username)
	}
	assert.Equal(t, []string{"u2", "u3", "u5", "u4", "u1"}, top)
	assert.Equal(t, 2, s.TopCustomers[1].Orders)
	assert.Equal(t, "60.00", s.TopCustomers[1].TotalSpent.StringFixed(2))

	require.Len(t, s.RepeatCustomers, 2)
	assert.Equal(t, "u3", s.RepeatCustomers[0].Username)
	assert.Equal(t, "u6", s.RepeatCustomers[1].Username)
}

func TestSummarize_RangeFilter(t *testing.T) {
	r := analytics.Range{
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, manila),
		End:   time.Date(2025, 3, 1, 0, 0, 0, 0, manila),
	}
	orders := []analytics.OrderRecord{
		rec(1, 1, "a", "10", time.Date(2025, 1, 31, 23, 59, 0, 0, manila)),
		rec(2, 1, "a", "20", time.Date(2025, 2, 1, 0, 0, 0, 0, manila)),
		rec(3, 1, "a", "30", time.Date(2025, 2, 28, 23, 59, 0, 0, manila)),
		rec(4, 1, "a", "40", time.Date(2025, 3, 1, 0, 0, 0, 0, manila)),
	}

	s := analytics.Summarize(orders, 0, r)

	assert.Equal(t, 2, s.TotalOrders)
	assert.Equal(t, "50.00", s.TotalRevenue.StringFixed(2))
}

func TestResolveRange_Periods(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, manila)
	tomorrow := time.Date(2025, 6, 16, 0, 0, 0, 0, manila)

	tests := []struct {
		period    string
		wantStart time.Time
		wantLabel string
	}{
		{"today", time.Date(2025, 6, 15, 0, 0, 0, 0, manila), "Today"},
		{"last7days", time.Date(2025, 6, 8, 0, 0, 0, 0, manila), "Last 7 days"},
		{"lastMonth", time.Date(2025, 5, 15, 0, 0, 0, 0, manila), "Last month"},
		{"last3Months", time.Date(2025, 3, 15, 0, 0, 0, 0, manila), "Last 3 months"},
		{"lastYear", time.Date(2024, 6, 15, 0, 0, 0, 0, manila), "Last year"},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			r, err := analytics.ResolveRange(tt.period, "", "", now)
			require.NoError(t, err)
			assert.False(t, r.All)
			assert.True(t, r.Start.Equal(tt.wantStart), "start: got %v, want %v", r.Start, tt.wantStart)
			assert.True(t, r.End.Equal(tomorrow), "end: got %v, want %v", r.End, tomorrow)
			assert.Equal(t, tt.wantLabel, r.Label)
		})
	}
}

func TestResolveRange_All(t *testing.T) {
	for _, p := range []string{"", "all"} {
		r, err := analytics.ResolveRange(p, "", "", time.Now())
		require.NoError(t, err)
		assert.True(t, r.All)
		assert.Equal(t, "All time", r.Label)
		assert.True(t, r.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
	}
}

func TestResolveRange_ExplicitDates(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, manila)

	r, err := analytics.ResolveRange("today", "2025-01-01", "2025-01-31", now)
	require.NoError(t, err)
	assert.Equal(t, "In date range", r.Label)
	assert.True(t, r.Contains(time.Date(2025, 1, 31, 23, 0, 0, 0, manila)), "end date is inclusive")
	assert.False(t, r.Contains(time.Date(2025, 2, 1, 0, 0, 0, 0, manila)))
}

func TestResolveRange_Errors(t *testing.T) {
	now := time.Now()

	_, err := analytics.ResolveRange("forever", "", "", now)
	assert.ErrorIs(t, err, analytics.ErrInvalidPeriod)

	_, err = analytics.ResolveRange("", "2025-01-01", "", now)
	assert.ErrorIs(t, err, analytics.ErrPartialRange)

	_, err = analytics.ResolveRange("", "01/01/2025", "2025-01-31", now)
	assert.ErrorIs(t, err, analytics.ErrInvalidDate)

	_, err = analytics.ResolveRange("", "2025-02-01", "2025-01-31", now)
	assert.ErrorIs(t, err, analytics.ErrInvalidRange)
}
