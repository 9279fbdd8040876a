package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/enum"
	"github.com/washtrack/api/internal/pricing"
	"go.uber.org/zap"
)

const (
	servicesCachePrefix = "services:"
	servicesCacheKey    = servicesCachePrefix + "list"
)

// ServiceStore defines the database methods needed by service catalogue
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type ServiceStore interface {
	ListServices(ctx context.Context) ([]database.Service, error)
	GetService(ctx context.Context, id int64) (database.Service, error)
	CreateService(ctx context.Context, arg database.CreateServiceParams) (database.Service, error)
	UpdateService(ctx context.Context, arg database.UpdateServiceParams) (database.Service, error)
	DeleteService(ctx context.Context, id int64) (int64, error)
}

// ServiceCache caches the public catalogue. Satisfied by *cache.Cache.
type ServiceCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// ServiceHandler handles the laundry service catalogue.
type ServiceHandler struct {
	store  ServiceStore
	cache  ServiceCache
	logger *zap.Logger
}

// NewServiceHandler creates a new ServiceHandler. cache may be nil.
func NewServiceHandler(store ServiceStore, cache ServiceCache, logger *zap.Logger) *ServiceHandler {
	return &ServiceHandler{store: store, cache: cache, logger: logger}
}

// RegisterPublicRoutes registers the read-only catalogue at /services.
func (h *ServiceHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers catalogue management at /admin/services.
func (h *ServiceHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type serviceRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       json.Number `json:"price"`
	Status      string      `json:"status"`
}

type serviceResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Handlers ---

// List handles GET /services. Served from cache when possible.
func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var cached []serviceResponse
		hit, err := h.cache.GetJSON(r.Context(), servicesCacheKey, &cached)
		if err != nil {
			h.logger.Warn("read services cache", zap.Error(err))
		} else if hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	services, err := h.store.ListServices(r.Context())
	if err != nil {
		serverError(w, h.logger, "list services", err)
		return
	}

	resp := make([]serviceResponse, len(services))
	for i, s := range services {
		resp[i] = toServiceResponse(s)
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(r.Context(), servicesCacheKey, resp); err != nil {
			h.logger.Warn("write services cache", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /services/{id}. Served from cache when possible.
func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	key := servicesCachePrefix + strconv.FormatInt(id, 10)
	if h.cache != nil {
		var cached serviceResponse
		hit, err := h.cache.GetJSON(r.Context(), key, &cached)
		if err != nil {
			h.logger.Warn("read service cache", zap.Int64("service_id", id), zap.Error(err))
		} else if hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	svc, err := h.store.GetService(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		serverError(w, h.logger, "get service", err)
		return
	}

	resp := toServiceResponse(svc)
	if h.cache != nil {
		if err := h.cache.SetJSON(r.Context(), key, resp); err != nil {
			h.logger.Warn("write service cache", zap.Int64("service_id", id), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /admin/services.
func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, msg := validateService(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	svc, err := h.store.CreateService(r.Context(), database.CreateServiceParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       database.DecimalToNumeric(price),
		Status:      req.Status,
	})
	if err != nil {
		if isNumericOverflow(err) {
			writeError(w, http.StatusBadRequest, "price is too large")
			return
		}
		serverError(w, h.logger, "create service", err)
		return
	}

	h.invalidate(r.Context())
	writeJSON(w, http.StatusCreated, toServiceResponse(svc))
}

// Update handles PUT /admin/services/{id}. Existing orders keep the amount
// they were priced at.
func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, msg := validateService(&req)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	svc, err := h.store.UpdateService(r.Context(), database.UpdateServiceParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       database.DecimalToNumeric(price),
		Status:      req.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		if isNumericOverflow(err) {
			writeError(w, http.StatusBadRequest, "price is too large")
			return
		}
		serverError(w, h.logger, "update service", err)
		return
	}

	h.invalidate(r.Context())
	writeJSON(w, http.StatusOK, toServiceResponse(svc))
}

// Delete handles DELETE /admin/services/{id}. Services referenced by orders
// cannot be deleted; mark them Not Available instead.
func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid service ID")
		return
	}

	if _, err := h.store.DeleteService(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		if isForeignKeyViolation(err) {
			writeError(w, http.StatusConflict, "service has orders; set it to Not Available instead")
			return
		}
		serverError(w, h.logger, "delete service", err)
		return
	}

	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *ServiceHandler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeleteByPrefix(ctx, servicesCachePrefix); err != nil {
		h.logger.Warn("invalidate services cache", zap.Error(err))
	}
}

// validateService trims req in place and returns the parsed price, or an
// error message.
func validateService(req *serviceRequest) (decimal.Decimal, string) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)

	if len([]rune(req.Name)) < 3 {
		return decimal.Zero, "name must be at least 3 characters"
	}
	if len([]rune(req.Description)) < 10 {
		return decimal.Zero, "description must be at least 10 characters"
	}
	if !pricePattern.MatchString(req.Price.String()) {
		return decimal.Zero, "price must be a number with at most 2 decimal places"
	}
	price, err := decimal.NewFromString(req.Price.String())
	if err != nil || !price.IsPositive() {
		return decimal.Zero, "price must be greater than 0"
	}
	if price.GreaterThan(pricing.MaxAmount) {
		return decimal.Zero, "price must be at most 99999999.99"
	}
	if req.Status != enum.ServiceStatusAvailable && req.Status != enum.ServiceStatusNotAvailable {
		return decimal.Zero, "status must be Available or Not Available"
	}
	return price, ""
}

func toServiceResponse(s database.Service) serviceResponse {
	return serviceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       numericToString(s.Price),
		Status:      s.Status,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
