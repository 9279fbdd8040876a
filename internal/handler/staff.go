package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/enum"
	"github.com/washtrack/api/internal/middleware"
	"go.uber.org/zap"
)

// StaffStore defines the database methods needed by staff handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type StaffStore interface {
	ListStaff(ctx context.Context, search string) ([]database.Staff, error)
	CreateStaff(ctx context.Context, arg database.CreateStaffParams) (database.Staff, error)
	UpdateStaff(ctx context.Context, arg database.UpdateStaffParams) (database.Staff, error)
	DeleteStaff(ctx context.Context, id int64) (int64, error)
}

// StaffHandler handles staff CRUD endpoints.
type StaffHandler struct {
	store  StaffStore
	logger *zap.Logger
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store StaffStore, logger *zap.Logger) *StaffHandler {
	return &StaffHandler{store: store, logger: logger}
}

// RegisterRoutes registers staff endpoints. Expected to be mounted at
// /admin/staff.
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type staffRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type staffResponse struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"admin_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Handlers ---

// List handles GET /admin/staff?q=.
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	staff, err := h.store.ListStaff(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		serverError(w, h.logger, "list staff", err)
		return
	}

	resp := make([]staffResponse, len(staff))
	for i, s := range staff {
		resp[i] = toStaffResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /admin/staff.
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req staffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateStaff(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	staff, err := h.store.CreateStaff(r.Context(), database.CreateStaffParams{
		AdminID: claims.UserID,
		Name:    req.Name,
		Email:   req.Email,
		Role:    req.Role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		serverError(w, h.logger, "create staff", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStaffResponse(staff))
}

// Update handles PUT /admin/staff/{id}.
func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid staff ID")
		return
	}

	var req staffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validateStaff(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	staff, err := h.store.UpdateStaff(r.Context(), database.UpdateStaffParams{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "staff not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		serverError(w, h.logger, "update staff", err)
		return
	}

	writeJSON(w, http.StatusOK, toStaffResponse(staff))
}

// Delete handles DELETE /admin/staff/{id}.
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid staff ID")
		return
	}

	if _, err := h.store.DeleteStaff(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "staff not found")
			return
		}
		serverError(w, h.logger, "delete staff", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func validateStaff(req *staffRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normalizeEmail(req.Email)
	switch {
	case len([]rune(req.Name)) < 2:
		return "name must be at least 2 characters"
	case !emailPattern.MatchString(req.Email):
		return "invalid email address"
	case req.Role == enum.StaffRoleAdmin:
		return "staff cannot be assigned the Admin role"
	case req.Role != enum.StaffRoleWash && req.Role != enum.StaffRoleFold && req.Role != enum.StaffRoleIron:
		return "role must be one of Wash, Fold, Iron"
	}
	return ""
}

func toStaffResponse(s database.Staff) staffResponse {
	return staffResponse{
		ID:        s.ID,
		AdminID:   s.AdminID,
		Name:      s.Name,
		Email:     s.Email,
		Role:      s.Role,
		CreatedAt: s.CreatedAt,
	}
}
