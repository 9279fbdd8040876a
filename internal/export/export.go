// Package export renders an analytics summary as a downloadable PDF or XLSX
// sales report.
package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/washtrack/api/internal/analytics"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileName returns the download name for a report generated at now.
func FileName(now time.Time, ext string) string {
	return fmt.Sprintf("Sales-report-%s.%s", now.Format("2006-01-02"), ext)
}

// peso formats an amount for fonts without the peso sign.
func peso(d decimal.Decimal) string {
	return "PHP " + d.StringFixed(2)
}

func statLines(s analytics.Summary) [][2]string {
	return [][2]string{
		{"Total Revenue", peso(s.TotalRevenue)},
		{"Total Orders", fmt.Sprint(s.TotalOrders)},
		{"Active Customers", fmt.Sprint(s.ActiveCustomers)},
		{"Average Order Value", peso(s.AverageOrderValue)},
	}
}
