package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/middleware"
	"github.com/washtrack/api/internal/queue"
	"github.com/washtrack/api/internal/service"
	"go.uber.org/zap"
)

// IdempotencyHeader carries a client-chosen key that makes order creation
// safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*database.OrderDetail, error)
	UpdateOrder(ctx context.Context, req service.UpdateOrderRequest) (*database.OrderDetail, error)
	UpdateStatus(ctx context.Context, req service.UpdateStatusRequest) (*service.StatusChangeResult, error)
	CancelOwnOrder(ctx context.Context, userID, orderID int64) (*database.OrderDetail, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id int64) (database.OrderDetail, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.OrderDetail, error)
}

// OrderHandler handles the admin order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, logger: logger, now: time.Now}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /admin/orders behind admin authentication.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/archived", h.ListArchived)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	UserID    int64           `json:"user_id"`
	ServiceID int64           `json:"service_id"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Items     string          `json:"items"`
}

type updateOrderRequest struct {
	ServiceID int64           `json:"service_id"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Items     string          `json:"items"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	ExpectedStatus string `json:"expected_status"`
}

type orderResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	ServiceID   int64     `json:"service_id"`
	ServiceName string    `json:"service_name"`
	AdminID     *int64    `json:"admin_id"`
	Items       string    `json:"items"`
	WeightKg    string    `json:"weight_kg"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	OrderDate   time.Time `json:"order_date"`
	UpdatedAt   time.Time `json:"updated_at"`
	Archived    bool      `json:"archived"`
}

type boardResponse struct {
	Active   []orderResponse `json:"active"`
	Finished []orderResponse `json:"finished"`
	Archived []orderResponse `json:"archived"`
}

type reportResponse struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"admin_id"`
	OrderID   int64     `json:"order_id"`
	Amount    string    `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type statusChangeResponse struct {
	Order  orderResponse   `json:"order"`
	Report *reportResponse `json:"report,omitempty"`
}

// --- Handlers ---

// List handles GET /admin/orders. The optional status query parameter
// restricts the board to one status.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListOrdersParams{}
	if s := r.URL.Query().Get("status"); s != "" {
		if !service.IsValidStatus(s) {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		serverError(w, h.logger, "list orders", err)
		return
	}

	now := h.now()
	writeJSON(w, http.StatusOK, toBoardResponse(queue.Partition(orders, now), now))
}

// ListArchived handles GET /admin/orders/archived?age=&q=.
func (h *OrderHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	age, err := queue.ParseArchiveAge(r.URL.Query().Get("age"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{})
	if err != nil {
		serverError(w, h.logger, "list orders", err)
		return
	}

	now := h.now()
	archived := queue.FilterArchived(orders, age, strings.TrimSpace(r.URL.Query().Get("q")), now)
	writeJSON(w, http.StatusOK, toOrderResponses(archived, now))
}

// Get handles GET /admin/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		serverError(w, h.logger, "get order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, h.now()))
}

// Create handles POST /admin/orders: an order placed at the counter on a
// customer's behalf.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.ServiceID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id and service_id are required")
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID:         req.UserID,
		ServiceID:      req.ServiceID,
		AdminID:        claims.UserID,
		WeightKg:       req.WeightKg,
		Items:          req.Items,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		writeOrderError(w, h.logger, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(*order, h.now()))
}

// Update handles PUT /admin/orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ServiceID <= 0 {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	order, err := h.svc.UpdateOrder(r.Context(), service.UpdateOrderRequest{
		OrderID:   id,
		ServiceID: req.ServiceID,
		WeightKg:  req.WeightKg,
		Items:     req.Items,
	})
	if err != nil {
		writeOrderError(w, h.logger, "update order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order, h.now()))
}

// UpdateStatus handles PATCH /admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	result, err := h.svc.UpdateStatus(r.Context(), service.UpdateStatusRequest{
		OrderID:        id,
		AdminID:        claims.UserID,
		Status:         req.Status,
		ExpectedStatus: req.ExpectedStatus,
	})
	if err != nil {
		writeOrderError(w, h.logger, "update order status", err)
		return
	}

	resp := statusChangeResponse{Order: toOrderResponse(result.Order, h.now())}
	if result.Report != nil {
		resp.Report = &reportResponse{
			ID:        result.Report.ID,
			AdminID:   result.Report.AdminID,
			OrderID:   result.Report.OrderID,
			Amount:    numericToString(result.Report.Amount),
			CreatedAt: result.Report.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /admin/orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		writeOrderError(w, h.logger, "delete order", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// writeOrderError maps order service errors to HTTP responses.
func writeOrderError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrServiceNotFound),
		errors.Is(err, service.ErrServiceUnavailable),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrAmountTooLarge),
		errors.Is(err, service.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrStatusConflict),
		errors.Is(err, service.ErrOrderImmutable),
		errors.Is(err, service.ErrNotCancellable),
		errors.Is(err, service.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, err.Error())
	default:
		serverError(w, logger, msg, err)
	}
}

func toOrderResponse(o database.OrderDetail, now time.Time) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Username:    o.Username,
		ServiceID:   o.ServiceID,
		ServiceName: o.ServiceName,
		Items:       o.Items,
		WeightKg:    numericToString(o.WeightKg),
		Amount:      numericToString(o.Amount),
		Status:      o.Status,
		OrderDate:   o.OrderDate,
		UpdatedAt:   o.UpdatedAt,
		Archived:    queue.IsArchived(o, now),
	}
	if o.AdminID.Valid {
		id := o.AdminID.Int64
		resp.AdminID = &id
	}
	return resp
}

func toOrderResponses(orders []database.OrderDetail, now time.Time) []orderResponse {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, now)
	}
	return resp
}

func toBoardResponse(b queue.Board, now time.Time) boardResponse {
	return boardResponse{
		Active:   toOrderResponses(b.Active, now),
		Finished: toOrderResponses(b.Finished, now),
		Archived: toOrderResponses(b.Archived, now),
	}
}
