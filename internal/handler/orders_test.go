package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/handler"
	"github.com/washtrack/api/internal/middleware"
	"github.com/washtrack/api/internal/service"
	"go.uber.org/zap"
)

// --- Mocks ---

type mockOrderReadStore struct {
	orders []database.OrderDetail
	last   database.ListOrdersParams
}

func (m *mockOrderReadStore) GetOrder(_ context.Context, id int64) (database.OrderDetail, error) {
	for _, o := range m.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return database.OrderDetail{}, pgx.ErrNoRows
}

func (m *mockOrderReadStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.OrderDetail, error) {
	m.last = arg
	var out []database.OrderDetail
	for _, o := range m.orders {
		if arg.UserID.Valid && o.UserID != arg.UserID.Int64 {
			continue
		}
		if arg.Status.Valid && o.Status != arg.Status.String {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type mockOrderService struct {
	createReq  service.CreateOrderRequest
	updateReq  service.UpdateOrderRequest
	statusReq  service.UpdateStatusRequest
	cancelArgs [2]int64
	deletedID  int64
	err        error
	result     database.OrderDetail
	report     *database.Report
}

func (m *mockOrderService) CreateOrder(_ context.Context, req service.CreateOrderRequest) (*database.OrderDetail, error) {
	m.createReq = req
	if m.err != nil {
		return nil, m.err
	}
	o := m.result
	return &o, nil
}

func (m *mockOrderService) UpdateOrder(_ context.Context, req service.UpdateOrderRequest) (*database.OrderDetail, error) {
	m.updateReq = req
	if m.err != nil {
		return nil, m.err
	}
	o := m.result
	return &o, nil
}

func (m *mockOrderService) UpdateStatus(_ context.Context, req service.UpdateStatusRequest) (*service.StatusChangeResult, error) {
	m.statusReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &service.StatusChangeResult{Order: m.result, Report: m.report}, nil
}

func (m *mockOrderService) CancelOwnOrder(_ context.Context, userID, orderID int64) (*database.OrderDetail, error) {
	m.cancelArgs = [2]int64{userID, orderID}
	if m.err != nil {
		return nil, m.err
	}
	o := m.result
	return &o, nil
}

func (m *mockOrderService) DeleteOrder(_ context.Context, orderID int64) error {
	m.deletedID = orderID
	return m.err
}

// --- Helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func testOrder(id, userID int64, status string, age time.Duration) database.OrderDetail {
	return database.OrderDetail{
		ID:          id,
		UserID:      userID,
		ServiceID:   10,
		Items:       fmt.Sprintf("bag %d", id),
		WeightKg:    makeNumeric("5"),
		Amount:      makeNumeric("150"),
		OrderDate:   time.Now().Add(-age),
		Status:      status,
		Username:    fmt.Sprintf("user%d", userID),
		ServiceName: "Wash & Fold",
	}
}

func setupOrderRouter(svc *mockOrderService, store *mockOrderReadStore) *chi.Mux {
	admin := handler.NewOrderHandler(svc, store, zap.NewNop())
	customer := handler.NewCustomerOrderHandler(svc, store, zap.NewNop())
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testJWTSecret))
		r.With(middleware.RequireRole("ADMIN")).Route("/admin/orders", admin.RegisterRoutes)
		r.With(middleware.RequireRole("CUSTOMER")).Route("/me/orders", customer.RegisterRoutes)
	})
	return r
}

// --- Admin board ---

func TestListOrders_Board(t *testing.T) {
	store := &mockOrderReadStore{orders: []database.OrderDetail{
		testOrder(1, 1, "Processing", 2*time.Hour),
		testOrder(2, 2, "Pending", 3*time.Hour),
		testOrder(3, 1, "Completed", time.Hour),
		testOrder(4, 2, "Cancelled", 48*time.Hour),
	}}
	router := setupOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, router, "GET", "/admin/orders", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeMap(t, rr)
	active := resp["active"].([]interface{})
	if len(active) != 2 {
		t.Fatalf("active: got %d, want 2", len(active))
	}
	// FIFO: the older Pending order comes first.
	if active[0].(map[string]interface{})["id"].(float64) != 2 {
		t.Errorf("first active: got %v, want 2", active[0].(map[string]interface{})["id"])
	}
	if n := len(resp["finished"].([]interface{})); n != 1 {
		t.Errorf("finished: got %d, want 1", n)
	}
	archived := resp["archived"].([]interface{})
	if len(archived) != 1 || archived[0].(map[string]interface{})["archived"] != true {
		t.Errorf("archived: got %v", archived)
	}
	if active[0].(map[string]interface{})["amount"] != "150.00" {
		t.Errorf("amount: got %v, want 150.00", active[0].(map[string]interface{})["amount"])
	}
}

func TestListOrders_StatusFilter(t *testing.T) {
	store := &mockOrderReadStore{}
	router := setupOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, router, "GET", "/admin/orders?status=Ready", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !store.last.Status.Valid || store.last.Status.String != "Ready" {
		t.Errorf("status filter: got %+v", store.last.Status)
	}

	rr = doAuthRequest(t, router, "GET", "/admin/orders?status=Washing", nil, adminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid filter: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestListOrders_RequiresAdmin(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "GET", "/admin/orders", nil, customerClaims())
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestListArchived(t *testing.T) {
	store := &mockOrderReadStore{orders: []database.OrderDetail{
		testOrder(1, 1, "Completed", 3*24*time.Hour),
		testOrder(2, 2, "Cancelled", 40*24*time.Hour),
		testOrder(3, 1, "Completed", 100*24*time.Hour),
		testOrder(4, 1, "Completed", time.Hour),
		testOrder(5, 1, "Pending", 10*24*time.Hour),
	}}
	router := setupOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, router, "GET", "/admin/orders/archived", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if n := len(decodeList(t, rr)); n != 3 {
		t.Errorf("all archived: got %d, want 3", n)
	}

	rr = doAuthRequest(t, router, "GET", "/admin/orders/archived?age=older", nil, adminClaims())
	list := decodeList(t, rr)
	if len(list) != 1 || list[0]["id"].(float64) != 3 {
		t.Errorf("older: got %v", list)
	}

	rr = doAuthRequest(t, router, "GET", "/admin/orders/archived?q=user2", nil, adminClaims())
	list = decodeList(t, rr)
	if len(list) != 1 || list[0]["id"].(float64) != 2 {
		t.Errorf("search: got %v", list)
	}

	rr = doAuthRequest(t, router, "GET", "/admin/orders/archived?age=yesterday", nil, adminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid age: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestGetOrder(t *testing.T) {
	store := &mockOrderReadStore{orders: []database.OrderDetail{testOrder(1, 1, "Pending", time.Hour)}}
	router := setupOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, router, "GET", "/admin/orders/1", nil, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	rr = doAuthRequest(t, router, "GET", "/admin/orders/9", nil, adminClaims())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	rr = doAuthRequest(t, router, "GET", "/admin/orders/abc", nil, adminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Admin mutations ---

func TestCreateOrder_Admin(t *testing.T) {
	svc := &mockOrderService{result: testOrder(11, 2, "Pending", 0)}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "POST", "/admin/orders", map[string]interface{}{
		"user_id": 2, "service_id": 10, "weight_kg": "5.5", "items": "towels",
	}, adminClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if svc.createReq.AdminID != 1 || svc.createReq.UserID != 2 {
		t.Errorf("request: got %+v", svc.createReq)
	}
	if svc.createReq.WeightKg.String() != "5.5" {
		t.Errorf("weight: got %s, want 5.5", svc.createReq.WeightKg)
	}
}

func TestCreateOrder_AcceptsNumericWeight(t *testing.T) {
	svc := &mockOrderService{result: testOrder(11, 2, "Pending", 0)}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "POST", "/admin/orders", map[string]interface{}{
		"user_id": 2, "service_id": 10, "weight_kg": 7.25,
	}, adminClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if svc.createReq.WeightKg.String() != "7.25" {
		t.Errorf("weight: got %s, want 7.25", svc.createReq.WeightKg)
	}
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidWeight, http.StatusBadRequest},
		{service.ErrAmountTooLarge, http.StatusBadRequest},
		{service.ErrServiceUnavailable, http.StatusBadRequest},
		{service.ErrUserNotFound, http.StatusBadRequest},
		{service.ErrDuplicateRequest, http.StatusConflict},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := setupOrderRouter(&mockOrderService{err: tt.err}, &mockOrderReadStore{})
			rr := doAuthRequest(t, router, "POST", "/admin/orders", map[string]interface{}{
				"user_id": 2, "service_id": 10, "weight_kg": "1",
			}, adminClaims())
			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestCreateOrder_IdempotencyHeader(t *testing.T) {
	svc := &mockOrderService{result: testOrder(11, 2, "Pending", 0)}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	token := adminToken(t)
	req := httptest.NewRequest("POST", "/admin/orders", jsonBody(t, map[string]interface{}{
		"user_id": 2, "service_id": 10, "weight_kg": "1",
	}))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(handler.IdempotencyHeader, "retry-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusCreated)
	}
	if svc.createReq.IdempotencyKey != "retry-1" {
		t.Errorf("idempotency key: got %q, want retry-1", svc.createReq.IdempotencyKey)
	}
}

func TestUpdateOrder_Immutable(t *testing.T) {
	svc := &mockOrderService{err: service.ErrOrderImmutable}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "PUT", "/admin/orders/5", map[string]interface{}{
		"service_id": 10, "weight_kg": "3",
	}, adminClaims())
	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	if svc.updateReq.OrderID != 5 {
		t.Errorf("order id: got %d, want 5", svc.updateReq.OrderID)
	}
}

func TestUpdateStatus_Completed(t *testing.T) {
	o := testOrder(5, 2, "Completed", time.Hour)
	svc := &mockOrderService{
		result: o,
		report: &database.Report{ID: 1, AdminID: 1, OrderID: 5, Amount: makeNumeric("150")},
	}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "PATCH", "/admin/orders/5/status", map[string]string{
		"status": "Completed", "expected_status": "Ready",
	}, adminClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if svc.statusReq.ExpectedStatus != "Ready" || svc.statusReq.AdminID != 1 {
		t.Errorf("request: got %+v", svc.statusReq)
	}
	resp := decodeMap(t, rr)
	report, ok := resp["report"].(map[string]interface{})
	if !ok || report["amount"] != "150.00" {
		t.Errorf("report: got %v", resp["report"])
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrStatusConflict, http.StatusConflict},
		{service.ErrOrderNotFound, http.StatusNotFound},
		{service.ErrInvalidStatus, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			router := setupOrderRouter(&mockOrderService{err: tt.err}, &mockOrderReadStore{})
			rr := doAuthRequest(t, router, "PATCH", "/admin/orders/5/status", map[string]string{"status": "Ready"}, adminClaims())
			if rr.Code != tt.want {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestUpdateStatus_MissingStatus(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{}, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "PATCH", "/admin/orders/5/status", map[string]string{}, adminClaims())
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDeleteOrder(t *testing.T) {
	svc := &mockOrderService{}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "DELETE", "/admin/orders/8", nil, adminClaims())
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if svc.deletedID != 8 {
		t.Errorf("deleted: got %d, want 8", svc.deletedID)
	}
}

// --- Customer orders ---

func TestCustomerOrders_OnlyOwn(t *testing.T) {
	store := &mockOrderReadStore{orders: []database.OrderDetail{
		testOrder(1, 1, "Pending", time.Hour),
		testOrder(2, 2, "Pending", time.Hour),
	}}
	router := setupOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, router, "GET", "/me/orders", nil, customerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !store.last.UserID.Valid || store.last.UserID.Int64 != 1 {
		t.Errorf("user filter: got %+v", store.last.UserID)
	}
	if n := len(decodeMap(t, rr)["active"].([]interface{})); n != 1 {
		t.Errorf("active: got %d, want 1", n)
	}

	rr = doAuthRequest(t, router, "GET", "/me/orders/2", nil, customerClaims())
	if rr.Code != http.StatusNotFound {
		t.Fatalf("other customer's order: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCustomerOrders_Place(t *testing.T) {
	svc := &mockOrderService{result: testOrder(3, 1, "Pending", 0)}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "POST", "/me/orders", map[string]interface{}{
		"service_id": 10, "weight_kg": "4", "user_id": 99,
	}, customerClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if svc.createReq.UserID != 1 || svc.createReq.AdminID != 0 {
		t.Errorf("request: got %+v", svc.createReq)
	}
}

func TestCustomerOrders_Tracking(t *testing.T) {
	store := &mockOrderReadStore{orders: []database.OrderDetail{testOrder(1, 1, "Ready", time.Hour)}}
	router := setupOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, router, "GET", "/me/orders/1/tracking", nil, customerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	stages := decodeMap(t, rr)["stages"].([]interface{})
	if len(stages) != 4 {
		t.Fatalf("stages: got %d, want 4", len(stages))
	}
	completed := 0
	for _, s := range stages {
		if s.(map[string]interface{})["completed"] == true {
			completed++
		}
	}
	if completed != 3 {
		t.Errorf("completed stages: got %d, want 3", completed)
	}
}

func TestCustomerOrders_Cancel(t *testing.T) {
	svc := &mockOrderService{result: testOrder(4, 1, "Cancelled", time.Hour)}
	router := setupOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, router, "DELETE", "/me/orders/4", nil, customerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if svc.cancelArgs != [2]int64{1, 4} {
		t.Errorf("cancel args: got %v, want [1 4]", svc.cancelArgs)
	}

	svc.err = service.ErrNotCancellable
	rr = doAuthRequest(t, router, "DELETE", "/me/orders/4", nil, customerClaims())
	if rr.Code != http.StatusConflict {
		t.Fatalf("not cancellable: got %d, want %d", rr.Code, http.StatusConflict)
	}
}
