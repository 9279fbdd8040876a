package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/enum"
	"github.com/washtrack/api/internal/pricing"
	"github.com/washtrack/api/internal/queue"
	"github.com/washtrack/api/internal/ws"
)

// maxWeightKg is the largest weight NUMERIC(6,2) can hold.
var maxWeightKg = decimal.RequireFromString("9999.99")

// Errors returned by the order service.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrUserNotFound       = errors.New("customer not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceUnavailable = errors.New("service is not available")
	ErrInvalidWeight      = errors.New("weight_kg must be greater than 0 and at most 9999.99")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrStatusConflict     = errors.New("order status changed, please retry")
	ErrOrderImmutable     = errors.New("completed or cancelled orders cannot be modified")
	ErrNotCancellable     = errors.New("only pending orders can be cancelled")
	ErrDuplicateRequest   = errors.New("duplicate request")
	ErrAmountTooLarge     = errors.New("order amount exceeds 99999999.99, split the order")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetUserByID(ctx context.Context, id int64) (database.User, error)
	GetService(ctx context.Context, id int64) (database.Service, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.OrderDetail, error)
	GetOrderForUpdate(ctx context.Context, id int64) (database.OrderDetail, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.OrderDetail, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.OrderDetail, error)
	DeleteOrder(ctx context.Context, id int64) (int64, error)
	CreateReport(ctx context.Context, arg database.CreateReportParams) (database.Report, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// IdempotencyStore claims request keys. Satisfied by *cache.Cache.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Broadcaster pushes events to WebSocket rooms. Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRoom(room string, event ws.Event)
}

// CreateOrderRequest is the validated input for creating an order.
// AdminID is zero when the customer places the order.
type CreateOrderRequest struct {
	UserID         int64
	ServiceID      int64
	AdminID        int64
	WeightKg       decimal.Decimal
	Items          string
	IdempotencyKey string
}

// UpdateOrderRequest is an admin edit of a non-terminal order.
type UpdateOrderRequest struct {
	OrderID   int64
	ServiceID int64
	WeightKg  decimal.Decimal
	Items     string
}

// UpdateStatusRequest moves an order to Status. When ExpectedStatus is set
// the change only applies if the order is still in that status.
type UpdateStatusRequest struct {
	OrderID        int64
	AdminID        int64
	Status         string
	ExpectedStatus string
}

// StatusChangeResult is the updated order plus the report created when the
// order was completed.
type StatusChangeResult struct {
	Order  database.OrderDetail
	Report *database.Report
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	idem     IdempotencyStore
	events   Broadcaster
}

// NewOrderService creates a new OrderService. idem and events may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, idem IdempotencyStore, events Broadcaster) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, idem: idem, events: events}
}

// allowedTransitions defines valid status transitions.
var allowedTransitions = map[string][]string{
	enum.OrderStatusPending:    {enum.OrderStatusProcessing, enum.OrderStatusCancelled},
	enum.OrderStatusProcessing: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:      {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusProcessing, enum.OrderStatusReady,
		enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// ValidateTransition returns ErrOrderImmutable for terminal orders and
// ErrInvalidTransition when next is not reachable from current.
func ValidateTransition(current, next string) error {
	if queue.IsTerminal(current) {
		return ErrOrderImmutable
	}
	for _, s := range allowedTransitions[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
}

// CreateOrder validates the customer and service, prices the order and
// inserts it as Pending.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*database.OrderDetail, error) {
	weight, err := validateWeight(req.WeightKg)
	if err != nil {
		return nil, err
	}

	var idemKey string
	if req.IdempotencyKey != "" && s.idem != nil {
		idemKey = idempotencyKey(req)
		ok, err := s.idem.Claim(ctx, idemKey)
		if err != nil {
			return nil, fmt.Errorf("claim idempotency key: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
	}

	order, err := s.createOrderTx(ctx, req, weight)
	if err != nil {
		if idemKey != "" {
			_ = s.idem.Release(ctx, idemKey)
		}
		return nil, err
	}

	s.publish(ws.EventOrderCreated, order)
	return &order, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, weight decimal.Decimal) (database.OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.OrderDetail{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetUserByID(ctx, req.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderDetail{}, ErrUserNotFound
		}
		return database.OrderDetail{}, fmt.Errorf("get user: %w", err)
	}

	svc, err := getService(ctx, store, req.ServiceID)
	if err != nil {
		return database.OrderDetail{}, err
	}
	if svc.Status != enum.ServiceStatusAvailable {
		return database.OrderDetail{}, ErrServiceUnavailable
	}

	amount, err := priceOrder(svc, weight)
	if err != nil {
		return database.OrderDetail{}, err
	}

	adminID := pgtype.Int8{}
	if req.AdminID != 0 {
		adminID = pgtype.Int8{Int64: req.AdminID, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:    req.UserID,
		ServiceID: svc.ID,
		AdminID:   adminID,
		Items:     itemsOrDefault(req.Items, weight),
		WeightKg:  database.DecimalToNumeric(weight),
		Amount:    database.DecimalToNumeric(amount),
	})
	if err != nil {
		return database.OrderDetail{}, fmt.Errorf("create order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.OrderDetail{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// UpdateOrder changes the service, weight and items of a non-terminal order
// and reprices it.
func (s *OrderService) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*database.OrderDetail, error) {
	weight, err := validateWeight(req.WeightKg)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := getOrderForUpdate(ctx, store, req.OrderID)
	if err != nil {
		return nil, err
	}
	if queue.IsTerminal(current.Status) {
		return nil, ErrOrderImmutable
	}

	svc, err := getService(ctx, store, req.ServiceID)
	if err != nil {
		return nil, err
	}
	// Keeping a service that was withdrawn after the order was placed is fine;
	// switching to one is not.
	if svc.ID != current.ServiceID && svc.Status != enum.ServiceStatusAvailable {
		return nil, ErrServiceUnavailable
	}

	amount, err := priceOrder(svc, weight)
	if err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrder(ctx, database.UpdateOrderParams{
		ID:        current.ID,
		ServiceID: svc.ID,
		Items:     itemsOrDefault(req.Items, weight),
		WeightKg:  database.DecimalToNumeric(weight),
		Amount:    database.DecimalToNumeric(amount),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderImmutable
		}
		return nil, fmt.Errorf("update order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ws.EventOrderUpdated, updated)
	return &updated, nil
}

// UpdateStatus applies a status transition. Completing an order records a
// report for it in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*StatusChangeResult, error) {
	if !IsValidStatus(req.Status) {
		return nil, ErrInvalidStatus
	}
	if req.ExpectedStatus != "" && !IsValidStatus(req.ExpectedStatus) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := getOrderForUpdate(ctx, store, req.OrderID)
	if err != nil {
		return nil, err
	}
	if req.ExpectedStatus != "" && req.ExpectedStatus != current.Status {
		return nil, ErrStatusConflict
	}
	if err := ValidateTransition(current.Status, req.Status); err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       current.ID,
		Status:   req.Status,
		Status_2: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	result := &StatusChangeResult{Order: updated}
	if req.Status == enum.OrderStatusCompleted {
		report, err := store.CreateReport(ctx, database.CreateReportParams{
			AdminID: req.AdminID,
			OrderID: updated.ID,
			Amount:  updated.Amount,
		})
		if err != nil {
			return nil, fmt.Errorf("create report: %w", err)
		}
		result.Report = &report
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ws.EventOrderStatusChanged, updated)
	return result, nil
}

// CancelOwnOrder lets a customer cancel one of their orders while it is
// still Pending. Orders of other customers are reported as not found.
func (s *OrderService) CancelOwnOrder(ctx context.Context, userID, orderID int64) (*database.OrderDetail, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := getOrderForUpdate(ctx, store, orderID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if current.Status != enum.OrderStatusPending {
		return nil, ErrNotCancellable
	}

	cancelled, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:       current.ID,
		Status:   enum.OrderStatusCancelled,
		Status_2: enum.OrderStatusPending,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ws.EventOrderStatusChanged, cancelled)
	return &cancelled, nil
}

// DeleteOrder removes a non-terminal order.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := getOrderForUpdate(ctx, store, orderID)
	if err != nil {
		return err
	}
	if queue.IsTerminal(current.Status) {
		return ErrOrderImmutable
	}

	if _, err := store.DeleteOrder(ctx, orderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderImmutable
		}
		return fmt.Errorf("delete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.publish(ws.EventOrderDeleted, current)
	return nil
}

// --- Helpers ---

func priceOrder(svc database.Service, weight decimal.Decimal) (decimal.Decimal, error) {
	amount, err := pricing.Amount(database.NumericToDecimal(svc.Price), weight)
	if errors.Is(err, pricing.ErrAmountTooLarge) {
		return decimal.Zero, ErrAmountTooLarge
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("price order: %w", err)
	}
	return amount, nil
}

func validateWeight(w decimal.Decimal) (decimal.Decimal, error) {
	w = w.Round(2)
	if !w.IsPositive() || w.GreaterThan(maxWeightKg) {
		return decimal.Zero, ErrInvalidWeight
	}
	return w, nil
}

func itemsOrDefault(items string, weight decimal.Decimal) string {
	if s := strings.TrimSpace(items); s != "" {
		return s
	}
	return weight.String() + " kg"
}

func idempotencyKey(req CreateOrderRequest) string {
	if req.AdminID != 0 {
		return fmt.Sprintf("order:admin:%d:%s", req.AdminID, req.IdempotencyKey)
	}
	return fmt.Sprintf("order:user:%d:%s", req.UserID, req.IdempotencyKey)
}

func getOrderForUpdate(ctx context.Context, store OrderStore, id int64) (database.OrderDetail, error) {
	o, err := store.GetOrderForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderDetail{}, ErrOrderNotFound
		}
		return database.OrderDetail{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

func getService(ctx context.Context, store OrderStore, id int64) (database.Service, error) {
	svc, err := store.GetService(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Service{}, ErrServiceNotFound
		}
		return database.Service{}, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

// orderEvent is the payload of every order.* WebSocket event.
type orderEvent struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	ServiceID   int64     `json:"service_id"`
	ServiceName string    `json:"service_name"`
	Items       string    `json:"items"`
	WeightKg    string    `json:"weight_kg"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	OrderDate   time.Time `json:"order_date"`
}

// publish sends an order event to the admins and to the order's customer.
func (s *OrderService) publish(eventType string, o database.OrderDetail) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(orderEvent{
		ID:          o.ID,
		UserID:      o.UserID,
		Username:    o.Username,
		ServiceID:   o.ServiceID,
		ServiceName: o.ServiceName,
		Items:       o.Items,
		WeightKg:    database.NumericToDecimal(o.WeightKg).StringFixed(2),
		Amount:      database.NumericToDecimal(o.Amount).StringFixed(2),
		Status:      o.Status,
		OrderDate:   o.OrderDate,
	})
	if err != nil {
		return
	}
	event := ws.Event{Type: eventType, Payload: payload}
	s.events.BroadcastToRoom(ws.AdminRoom, event)
	s.events.BroadcastToRoom(ws.UserRoom(o.UserID), event)
}
