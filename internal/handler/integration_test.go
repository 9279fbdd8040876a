//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/washtrack/api/internal/config"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/router"
	"github.com/washtrack/api/internal/service"
	"github.com/washtrack/api/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the order lifecycle against a real PostgreSQL
// database with every handler wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		JWTSecret: "integration-test-secret",
		Timezone:  "Asia/Manila",
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run(ctx)

	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, nil, hub)

	server := httptest.NewServer(router.New(router.Deps{
		Config:  cfg,
		Queries: queries,
		Orders:  orders,
		Hub:     hub,
		Logger:  zap.NewNop(),
	}))
	defer server.Close()

	// --- 1. Bootstrap admin (no signup endpoint for admins) ---
	createAdmin(t, ctx, pool)
	adminToken := login(t, server, "/auth/admin/login", "admin@test.com", "password123")

	// --- 2. Customer registers and logs in ---
	user := httpJSON(t, server, "POST", "/auth/register", map[string]interface{}{
		"username": "Juan Dela Cruz",
		"email":    "juan@test.com",
		"contact":  "09171234567",
		"address":  "123 Rizal St, Manila",
		"password": "secret123",
	}, "", http.StatusCreated)
	userID := int64(user["id"].(float64))
	customerToken := login(t, server, "/auth/login", "juan@test.com", "secret123")

	// Emails are unique regardless of case, at the API and in the table.
	httpJSON(t, server, "POST", "/auth/register", map[string]interface{}{
		"username": "Juan Impostor",
		"email":    "Juan@Test.com",
		"password": "secret123",
	}, "", http.StatusConflict)
	_, err = queries.CreateUser(ctx, database.CreateUserParams{
		Username:       "Direct Insert",
		Email:          "JUAN@TEST.COM",
		HashedPassword: "x",
	})
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		t.Fatalf("case variant insert: got %v, want unique violation", err)
	}
	login(t, server, "/auth/login", "JUAN@test.com", "secret123")

	// --- 3. Admin creates a service ---
	svc := httpJSON(t, server, "POST", "/admin/services", map[string]interface{}{
		"name":        "Wash & Fold",
		"description": "Machine wash, dry and fold",
		"price":       "150.00",
		"status":      "Available",
	}, adminToken, http.StatusCreated)
	serviceID := int64(svc["id"].(float64))

	// --- 4. Customer places an order; amount comes from the weight tier ---
	order := httpJSON(t, server, "POST", "/me/orders", map[string]interface{}{
		"service_id": serviceID,
		"weight_kg":  "3.5",
	}, customerToken, http.StatusCreated)
	orderID := int64(order["id"].(float64))
	if order["amount"] != "150.00" {
		t.Fatalf("amount: got %v, want 150.00", order["amount"])
	}
	if order["status"] != "Pending" {
		t.Fatalf("status: got %v, want Pending", order["status"])
	}

	// --- 5. Admin walks the order through the workflow ---
	for _, step := range []struct{ from, to string }{
		{"Pending", "Processing"},
		{"Processing", "Ready"},
		{"Ready", "Completed"},
	} {
		resp := httpJSON(t, server, "PATCH", fmt.Sprintf("/admin/orders/%d/status", orderID), map[string]interface{}{
			"status":          step.to,
			"expected_status": step.from,
		}, adminToken, http.StatusOK)
		got := resp["order"].(map[string]interface{})["status"]
		if got != step.to {
			t.Fatalf("status after %s: got %v", step.to, got)
		}
		if step.to == "Completed" && resp["report"] == nil {
			t.Fatal("completing an order should create a report")
		}
	}

	// --- 6. Completed orders are immutable ---
	httpJSON(t, server, "PATCH", fmt.Sprintf("/admin/orders/%d/status", orderID), map[string]interface{}{
		"status": "Processing",
	}, adminToken, http.StatusConflict)
	httpJSON(t, server, "DELETE", fmt.Sprintf("/me/orders/%d", orderID), nil, customerToken, http.StatusConflict)

	// --- 7. Reports and analytics reflect the completed order ---
	reports := httpJSONList(t, server, fmt.Sprintf("/admin/reports?admin_id=%d", 1), adminToken)
	if len(reports) != 1 || reports[0]["amount"] != "150.00" {
		t.Fatalf("reports: got %v", reports)
	}
	analytics := httpJSON(t, server, "GET", "/admin/reports/analytics?period=today", nil, adminToken, http.StatusOK)
	if analytics["total_revenue"] != "150.00" {
		t.Fatalf("total_revenue: got %v, want 150.00", analytics["total_revenue"])
	}

	// --- 8. Services referenced by orders cannot be deleted ---
	httpJSON(t, server, "DELETE", fmt.Sprintf("/admin/services/%d", serviceID), nil, adminToken, http.StatusConflict)

	// --- 9. Customer tracking view ---
	tracking := httpJSON(t, server, "GET", fmt.Sprintf("/me/orders/%d/tracking", orderID), nil, customerToken, http.StatusOK)
	if tracking["order"].(map[string]interface{})["user_id"] != float64(userID) {
		t.Fatalf("tracking order owner: got %v", tracking["order"])
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("washtrack_test"),
		tcpostgres.WithUsername("washtrack"),
		tcpostgres.WithPassword("washtrack"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
	return connStr, cleanup
}

func createAdmin(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	_, err = database.New(pool).CreateAdmin(ctx, database.CreateAdminParams{
		Name:           "Test Admin",
		Email:          "admin@test.com",
		HashedPassword: string(hashed),
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
}

func login(t *testing.T, server *httptest.Server, path, email, password string) string {
	t.Helper()
	resp := httpJSON(t, server, "POST", path, map[string]interface{}{
		"email":    email,
		"password": password,
	}, "", http.StatusOK)
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login %s: no access token in %v", email, resp)
	}
	return token
}

// --- HTTP helpers ---

func sendJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req, err := http.NewRequest(method, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

func httpJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, want int) map[string]interface{} {
	t.Helper()
	resp := sendJSON(t, server, method, path, body, token)
	defer resp.Body.Close()

	var result map[string]interface{}
	if resp.StatusCode != http.StatusNoContent {
		json.NewDecoder(resp.Body).Decode(&result)
	}
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d, body: %v", method, path, resp.StatusCode, want, result)
	}
	return result
}

func httpJSONList(t *testing.T, server *httptest.Server, path, token string) []map[string]interface{} {
	t.Helper()
	resp := sendJSON(t, server, "GET", path, nil, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	var result []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}
