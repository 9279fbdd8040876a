package export

import (
	"fmt"
	"io"
	"time"

	"github.com/washtrack/api/internal/analytics"
	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary = "Summary"
	sheetMonthly = "Monthly"
	sheetTop     = "Top Customers"
	sheetRepeat  = "Repeat Customers"
	sheetOrders  = "Orders"
)

// WriteXLSX renders s as a workbook with one sheet per report section.
func WriteXLSX(w io.Writer, s analytics.Summary, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetMonthly, sheetTop, sheetRepeat, sheetOrders} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#667EEA"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("money style: %w", err)
	}

	x := &sheetWriter{f: f, header: headerStyle, money: moneyStyle}

	x.row(sheetSummary, 1, "WashTrack Sales Report")
	x.row(sheetSummary, 2, "Period", s.Range.Label)
	x.row(sheetSummary, 3, "Generated", generatedAt.Format("2006-01-02 15:04"))
	x.row(sheetSummary, 5, "Total Revenue", s.TotalRevenue.InexactFloat64())
	x.row(sheetSummary, 6, "Total Orders", s.TotalOrders)
	x.row(sheetSummary, 7, "Active Customers", s.ActiveCustomers)
	x.row(sheetSummary, 8, "Average Order Value", s.AverageOrderValue.InexactFloat64())
	x.style(sheetSummary, "B5", "B5", moneyStyle)
	x.style(sheetSummary, "B8", "B8", moneyStyle)
	x.width(sheetSummary, "A", "B", 24)

	x.headerRow(sheetMonthly, "Month", "Revenue", "Orders")
	for i, m := range s.Monthly {
		x.row(sheetMonthly, i+2, m.Month, m.Revenue.InexactFloat64(), m.Orders)
	}
	x.moneyColumn(sheetMonthly, "B", len(s.Monthly))
	x.width(sheetMonthly, "A", "C", 16)

	x.headerRow(sheetTop, "Rank", "Customer", "Orders", "Total Spent")
	for i, c := range s.TopCustomers {
		x.row(sheetTop, i+2, i+1, c.Username, c.Orders, c.TotalSpent.InexactFloat64())
	}
	x.moneyColumn(sheetTop, "D", len(s.TopCustomers))
	x.width(sheetTop, "A", "D", 18)

	x.headerRow(sheetRepeat, "Customer", "Orders", "Total Spent")
	for i, c := range s.RepeatCustomers {
		x.row(sheetRepeat, i+2, c.Username, c.Orders, c.TotalSpent.InexactFloat64())
	}
	x.moneyColumn(sheetRepeat, "C", len(s.RepeatCustomers))
	x.width(sheetRepeat, "A", "C", 18)

	x.headerRow(sheetOrders, "Order ID", "User ID", "Customer", "Amount", "Status", "Date")
	for i, o := range s.Orders {
		x.row(sheetOrders, i+2, o.OrderID, o.UserID, o.Username, o.Amount.InexactFloat64(), o.Status, o.OrderDate.Format("2006-01-02"))
	}
	x.moneyColumn(sheetOrders, "D", len(s.Orders))
	x.width(sheetOrders, "A", "F", 16)

	if x.err != nil {
		return x.err
	}
	return f.Write(w)
}

// sheetWriter keeps the first excelize error so the layout code above can
// stay linear.
type sheetWriter struct {
	f      *excelize.File
	header int
	money  int
	err    error
}

func (x *sheetWriter) row(sheet string, row int, values ...interface{}) {
	for i, v := range values {
		if x.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			x.err = err
			return
		}
		x.err = x.f.SetCellValue(sheet, cell, v)
	}
}

func (x *sheetWriter) headerRow(sheet string, headers ...string) {
	values := make([]interface{}, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	x.row(sheet, 1, values...)
	if x.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		x.err = err
		return
	}
	x.style(sheet, "A1", last, x.header)
}

func (x *sheetWriter) moneyColumn(sheet, col string, rows int) {
	if rows == 0 {
		return
	}
	x.style(sheet, fmt.Sprintf("%s2", col), fmt.Sprintf("%s%d", col, rows+1), x.money)
}

func (x *sheetWriter) style(sheet, from, to string, style int) {
	if x.err != nil {
		return
	}
	x.err = x.f.SetCellStyle(sheet, from, to, style)
}

func (x *sheetWriter) width(sheet, from, to string, width float64) {
	if x.err != nil {
		return
	}
	x.err = x.f.SetColWidth(sheet, from, to, width)
}
