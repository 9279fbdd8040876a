// Package analytics aggregates completed orders into the sales dashboard:
// revenue totals, a month-by-month breakdown and customer segments.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// TopCustomerLimit caps the top-customers list.
const TopCustomerLimit = 5

var monthNames = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// OrderRecord is the subset of a completed order the aggregation needs.
type OrderRecord struct {
	OrderID   int64
	UserID    int64
	Username  string
	Amount    decimal.Decimal
	Status    string
	OrderDate time.Time
}

type MonthTotal struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

type CustomerSummary struct {
	UserID     int64           `json:"user_id"`
	Username   string          `json:"username"`
	Orders     int             `json:"orders"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// Summary is the full dashboard for one Range.
type Summary struct {
	Range             Range             `json:"range"`
	TotalRevenue      decimal.Decimal   `json:"total_revenue"`
	TotalOrders       int               `json:"total_orders"`
	AverageOrderValue decimal.Decimal   `json:"average_order_value"`
	ActiveCustomers   int64             `json:"active_customers"`
	Monthly           []MonthTotal      `json:"monthly"`
	TopCustomers      []CustomerSummary `json:"top_customers"`
	RepeatCustomers   []CustomerSummary `json:"repeat_customers"`
	Orders            []OrderRecord     `json:"-"`
}

// Summarize aggregates the orders that fall inside r. Orders are expected to
// be Completed already; activeCustomers is passed through unchanged.
// Monthly buckets use the month of the order date in its own location.
func Summarize(orders []OrderRecord, activeCustomers int64, r Range) Summary {
	s := Summary{
		Range:             r,
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
		ActiveCustomers:   activeCustomers,
		Monthly:           make([]MonthTotal, len(monthNames)),
		TopCustomers:      []CustomerSummary{},
		RepeatCustomers:   []CustomerSummary{},
		Orders:            []OrderRecord{},
	}
	for i, name := range monthNames {
		s.Monthly[i] = MonthTotal{Month: name, Revenue: decimal.Zero}
	}

	byCustomer := make(map[int64]*CustomerSummary)
	for _, o := range orders {
		if !r.Contains(o.OrderDate) {
			continue
		}
		s.Orders = append(s.Orders, o)
		s.TotalRevenue = s.TotalRevenue.Add(o.Amount)
		s.TotalOrders++

		m := &s.Monthly[o.OrderDate.Month()-1]
		m.Revenue = m.Revenue.Add(o.Amount)
		m.Orders++

		c, ok := byCustomer[o.UserID]
		if !ok {
			c = &CustomerSummary{UserID: o.UserID, Username: o.Username, TotalSpent: decimal.Zero}
			byCustomer[o.UserID] = c
		}
		c.Orders++
		c.TotalSpent = c.TotalSpent.Add(o.Amount)
	}

	if s.TotalOrders > 0 {
		s.AverageOrderValue = s.TotalRevenue.Div(decimal.NewFromInt(int64(s.TotalOrders))).Round(2)
	}

	customers := make([]CustomerSummary, 0, len(byCustomer))
	for _, c := range byCustomer {
		customers = append(customers, *c)
	}
	slices.SortFunc(customers, func(a, b CustomerSummary) int {
		if c := b.TotalSpent.Cmp(a.TotalSpent); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})

	s.TopCustomers = append(s.TopCustomers, customers[:min(TopCustomerLimit, len(customers))]...)
	for _, c := range customers {
		if c.Orders > 1 {
			s.RepeatCustomers = append(s.RepeatCustomers, c)
		}
	}
	return s
}
