package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/washtrack/api/internal/analytics"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/export"
	"go.uber.org/zap"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	ListReports(ctx context.Context, adminID pgtype.Int8) ([]database.ListReportsRow, error)
	ListCompletedOrdersBetween(ctx context.Context, arg database.ListCompletedOrdersBetweenParams) ([]database.OrderDetail, error)
	CountUsers(ctx context.Context) (int64, error)
	CountUsersRegisteredBetween(ctx context.Context, arg database.CountUsersRegisteredBetweenParams) (int64, error)
}

// ReportsHandler handles report and analytics endpoints.
type ReportsHandler struct {
	store  ReportsStore
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewReportsHandler creates a new ReportsHandler. Period boundaries are
// computed in loc.
func NewReportsHandler(store ReportsStore, loc *time.Location, logger *zap.Logger) *ReportsHandler {
	return &ReportsHandler{store: store, loc: loc, logger: logger, now: time.Now}
}

// RegisterRoutes registers report endpoints. Expected to be mounted at
// /admin/reports.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/analytics", h.Analytics)
	r.Get("/export.pdf", h.ExportPDF)
	r.Get("/export.xlsx", h.ExportXLSX)
}

// --- Response types ---

type reportRowResponse struct {
	ID          int64     `json:"id"`
	AdminID     int64     `json:"admin_id"`
	AdminName   string    `json:"admin_name"`
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	ServiceName string    `json:"service_name"`
	Status      string    `json:"status"`
	Amount      string    `json:"amount"`
	OrderDate   time.Time `json:"order_date"`
	CreatedAt   time.Time `json:"created_at"`
}

type monthResponse struct {
	Month   string `json:"month"`
	Revenue string `json:"revenue"`
	Orders  int    `json:"orders"`
}

type customerSummaryResponse struct {
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Orders     int    `json:"orders"`
	TotalSpent string `json:"total_spent"`
}

type analyticsResponse struct {
	Period            string                    `json:"period"`
	StartDate         *time.Time                `json:"start_date"`
	EndDate           *time.Time                `json:"end_date"`
	TotalRevenue      string                    `json:"total_revenue"`
	TotalOrders       int                       `json:"total_orders"`
	AverageOrderValue string                    `json:"average_order_value"`
	ActiveCustomers   int64                     `json:"active_customers"`
	Monthly           []monthResponse           `json:"monthly"`
	TopCustomers      []customerSummaryResponse `json:"top_customers"`
	RepeatCustomers   []customerSummaryResponse `json:"repeat_customers"`
}

// --- Handlers ---

// List handles GET /admin/reports?admin_id=.
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	var adminID pgtype.Int8
	if s := r.URL.Query().Get("admin_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid admin_id")
			return
		}
		adminID = pgtype.Int8{Int64: id, Valid: true}
	}

	rows, err := h.store.ListReports(r.Context(), adminID)
	if err != nil {
		serverError(w, h.logger, "list reports", err)
		return
	}

	resp := make([]reportRowResponse, len(rows))
	for i, row := range rows {
		resp[i] = reportRowResponse{
			ID:          row.ID,
			AdminID:     row.AdminID,
			AdminName:   row.AdminName,
			OrderID:     row.OrderID,
			UserID:      row.UserID,
			Username:    row.Username,
			ServiceName: row.ServiceName,
			Status:      row.Status,
			Amount:      numericToString(row.Amount),
			OrderDate:   row.OrderDate,
			CreatedAt:   row.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Analytics handles GET /admin/reports/analytics?period=&start_date=&end_date=.
func (h *ReportsHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summarize(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAnalyticsResponse(summary))
}

// ExportPDF handles GET /admin/reports/export.pdf.
func (h *ReportsHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summarize(w, r)
	if !ok {
		return
	}

	now := h.now().In(h.loc)
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, summary, now); err != nil {
		serverError(w, h.logger, "render pdf report", err)
		return
	}
	writeFile(w, export.ContentTypePDF, export.FileName(now, "pdf"), buf.Bytes())
}

// ExportXLSX handles GET /admin/reports/export.xlsx.
func (h *ReportsHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summarize(w, r)
	if !ok {
		return
	}

	now := h.now().In(h.loc)
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, summary, now); err != nil {
		serverError(w, h.logger, "render xlsx report", err)
		return
	}
	writeFile(w, export.ContentTypeXLSX, export.FileName(now, "xlsx"), buf.Bytes())
}

// --- Helpers ---

// summarize resolves the requested range and aggregates completed orders.
// It writes the error response itself and reports whether to continue.
func (h *ReportsHandler) summarize(w http.ResponseWriter, r *http.Request) (analytics.Summary, bool) {
	q := r.URL.Query()
	rng, err := analytics.ResolveRange(q.Get("period"), q.Get("start_date"), q.Get("end_date"), h.now().In(h.loc))
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidPeriod) ||
			errors.Is(err, analytics.ErrInvalidDate) ||
			errors.Is(err, analytics.ErrInvalidRange) ||
			errors.Is(err, analytics.ErrPartialRange) {
			writeError(w, http.StatusBadRequest, err.Error())
			return analytics.Summary{}, false
		}
		serverError(w, h.logger, "resolve report range", err)
		return analytics.Summary{}, false
	}

	params := database.ListCompletedOrdersBetweenParams{}
	if !rng.All {
		params.StartDate = pgtype.Timestamptz{Time: rng.Start, Valid: true}
		params.EndDate = pgtype.Timestamptz{Time: rng.End, Valid: true}
	}
	orders, err := h.store.ListCompletedOrdersBetween(r.Context(), params)
	if err != nil {
		serverError(w, h.logger, "list completed orders", err)
		return analytics.Summary{}, false
	}

	var active int64
	if rng.All {
		active, err = h.store.CountUsers(r.Context())
	} else {
		active, err = h.store.CountUsersRegisteredBetween(r.Context(), database.CountUsersRegisteredBetweenParams{
			StartDate: rng.Start,
			EndDate:   rng.End,
		})
	}
	if err != nil {
		serverError(w, h.logger, "count customers", err)
		return analytics.Summary{}, false
	}

	records := make([]analytics.OrderRecord, len(orders))
	for i, o := range orders {
		records[i] = analytics.OrderRecord{
			OrderID:   o.ID,
			UserID:    o.UserID,
			Username:  o.Username,
			Amount:    database.NumericToDecimal(o.Amount),
			Status:    o.Status,
			OrderDate: o.OrderDate.In(h.loc),
		}
	}
	return analytics.Summarize(records, active, rng), true
}

func writeFile(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func toAnalyticsResponse(s analytics.Summary) analyticsResponse {
	resp := analyticsResponse{
		Period:            s.Range.Label,
		TotalRevenue:      s.TotalRevenue.StringFixed(2),
		TotalOrders:       s.TotalOrders,
		AverageOrderValue: s.AverageOrderValue.StringFixed(2),
		ActiveCustomers:   s.ActiveCustomers,
		Monthly:           make([]monthResponse, len(s.Monthly)),
		TopCustomers:      toCustomerSummaries(s.TopCustomers),
		RepeatCustomers:   toCustomerSummaries(s.RepeatCustomers),
	}
	if !s.Range.All {
		start := s.Range.Start
		// End is exclusive; report the last day included.
		end := s.Range.End.AddDate(0, 0, -1)
		resp.StartDate = &start
		resp.EndDate = &end
	}
	for i, m := range s.Monthly {
		resp.Monthly[i] = monthResponse{Month: m.Month, Revenue: m.Revenue.StringFixed(2), Orders: m.Orders}
	}
	return resp
}

func toCustomerSummaries(cs []analytics.CustomerSummary) []customerSummaryResponse {
	resp := make([]customerSummaryResponse, len(cs))
	for i, c := range cs {
		resp[i] = customerSummaryResponse{
			UserID:     c.UserID,
			Username:   c.Username,
			Orders:     c.Orders,
			TotalSpent: c.TotalSpent.StringFixed(2),
		}
	}
	return resp
}
