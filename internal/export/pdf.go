package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/washtrack/api/internal/analytics"
)

const (
	pdfMargin     = 10.0
	pdfCellHeight = 6.0
)

type pdfTable struct {
	headers []string
	widths  []float64
	rows    [][]string
}

// WritePDF renders s as an A4 sales report.
func WritePDF(w io.Writer, s analytics.Summary, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Sales Report", false)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(102, 126, 234)
	pdf.CellFormat(0, 10, "WashTrack Sales Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, fmt.Sprintf("Period: %s", s.Range.Label), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format("Jan 2, 2006 3:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdfHeading(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range statLines(s) {
		pdf.CellFormat(60, pdfCellHeight, line[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, pdfCellHeight, line[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	monthly := pdfTable{headers: []string{"Month", "Revenue", "Orders"}, widths: []float64{40, 40, 40}}
	for _, m := range s.Monthly {
		monthly.rows = append(monthly.rows, []string{m.Month, peso(m.Revenue), fmt.Sprint(m.Orders)})
	}
	pdfHeading(pdf, "Monthly Breakdown")
	pdfWriteTable(pdf, monthly, "")

	top := pdfTable{headers: []string{"Rank", "Customer", "Orders", "Total Spent"}, widths: []float64{15, 60, 30, 40}}
	for i, c := range s.TopCustomers {
		top.rows = append(top.rows, []string{fmt.Sprint(i + 1), c.Username, fmt.Sprint(c.Orders), peso(c.TotalSpent)})
	}
	pdfHeading(pdf, "Top Customers")
	pdfWriteTable(pdf, top, "No customers in this period.")

	repeat := pdfTable{headers: []string{"Customer", "Orders", "Total Spent"}, widths: []float64{60, 30, 40}}
	for _, c := range s.RepeatCustomers {
		repeat.rows = append(repeat.rows, []string{c.Username, fmt.Sprint(c.Orders), peso(c.TotalSpent)})
	}
	pdfHeading(pdf, "Repeat Customers")
	pdfWriteTable(pdf, repeat, "No repeat customers in this period.")

	details := pdfTable{
		headers: []string{"Order ID", "User ID", "Customer", "Amount", "Status", "Date"},
		widths:  []float64{22, 20, 50, 35, 28, 35},
	}
	for _, o := range s.Orders {
		details.rows = append(details.rows, []string{
			fmt.Sprint(o.OrderID),
			fmt.Sprint(o.UserID),
			o.Username,
			peso(o.Amount),
			o.Status,
			o.OrderDate.Format("2006-01-02"),
		})
	}
	pdfHeading(pdf, fmt.Sprintf("All Orders Details (%d total)", len(s.Orders)))
	pdfWriteTable(pdf, details, "No orders found for the selected period.")

	return pdf.Output(w)
}

func pdfHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func pdfWriteTable(pdf *fpdf.Fpdf, t pdfTable, empty string) {
	if len(t.rows) == 0 && empty != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, pdfCellHeight, empty, "", 1, "L", false, 0, "")
		pdf.Ln(3)
		return
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(102, 126, 234)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range t.headers {
		pdf.CellFormat(t.widths[i], pdfCellHeight, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 245)
	for idx, row := range t.rows {
		for i, cell := range row {
			pdf.CellFormat(t.widths[i], pdfCellHeight, cell, "1", 0, "L", idx%2 == 0, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}
