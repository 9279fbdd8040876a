package handler

import (
	"errors"
	"net/http"
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

// CustomerOrderHandler serves a customer's own orders.
type CustomerOrderHandler struct {
	svc    OrderServicer
	store  OrderStore
	logger *zap.Logger
	now    func() time.Time
}

func NewCustomerOrderHandler(svc OrderServicer, store OrderStore, logger *zap.Logger) *CustomerOrderHandler {
	return &CustomerOrderHandler{svc: svc, store: store, logger: logger, now: time.Now}
}

// RegisterRoutes registers endpoints under /me/orders.
func (h *CustomerOrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Place)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/tracking", h.Tracking)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	ServiceID int64           `json:"service_id"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
	Items     string          `json:"items"`
}

type trackingResponse struct {
	Order  orderResponse `json:"order"`
	Stages []queue.Stage `json:"stages"`
}

// --- Handlers ---

// List handles GET /me/orders.
func (h *CustomerOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	orders, err := h.store.ListOrders(r.Context(), database.ListOrdersParams{
		UserID: pgtype.Int8{Int64: claims.UserID, Valid: true},
	})
	if err != nil {
		serverError(w, h.logger, "list customer orders", err)
		return
	}

	now := h.now()
	writeJSON(w, http.StatusOK, toBoardResponse(queue.Partition(orders, now), now))
}

// Place handles POST /me/orders.
func (h *CustomerOrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ServiceID <= 0 {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID:         claims.UserID,
		ServiceID:      req.ServiceID,
		WeightKg:       req.WeightKg,
		Items:          req.Items,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		writeOrderError(w, h.logger, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(*order, h.now()))
}

// Get handles GET /me/orders/{id}.
func (h *CustomerOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order, h.now()))
}

// Tracking handles GET /me/orders/{id}/tracking.
func (h *CustomerOrderHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, trackingResponse{
		Order:  toOrderResponse(order, h.now()),
		Stages: queue.TrackingStages(order.Status, order.OrderDate),
	})
}

// Cancel handles DELETE /me/orders/{id}.
func (h *CustomerOrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.svc.CancelOwnOrder(r.Context(), claims.UserID, id)
	if err != nil {
		writeOrderError(w, h.logger, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(*order, h.now()))
}

// --- Helpers ---

// ownOrder loads the order in the URL. Orders of other customers are
// reported as not found.
func (h *CustomerOrderHandler) ownOrder(w http.ResponseWriter, r *http.Request) (database.OrderDetail, bool) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return database.OrderDetail{}, false
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return database.OrderDetail{}, false
		}
		serverError(w, h.logger, "get order", err)
		return database.OrderDetail{}, false
	}
	if order.UserID != claims.UserID {
		writeError(w, http.StatusNotFound, "order not found")
		return database.OrderDetail{}, false
	}
	return order, true
}
