package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ProfileStore defines the database methods needed by profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id int64) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	UpdateUserPassword(ctx context.Context, arg database.UpdateUserPasswordParams) (int64, error)
}

// ProfileHandler lets a customer manage their own account.
type ProfileHandler struct {
	store  ProfileStore
	logger *zap.Logger
}

func NewProfileHandler(store ProfileStore, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

// RegisterRoutes registers profile endpoints. Expected to be mounted under /me
// behind customer authentication.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Update)
	r.Post("/password/verify", h.VerifyPassword)
	r.Put("/password", h.ChangePassword)
}

// --- Request / Response types ---

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Address  string `json:"address"`
}

type verifyPasswordRequest struct {
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// --- Handlers ---

// Get handles GET /me.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Update handles PUT /me.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, msg := validateProfile(req.Username, req.Email, req.Contact, req.Address)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:       claims.UserID,
		Username: p.username,
		Email:    p.email,
		Contact:  optionalText(p.contact),
		Address:  optionalText(p.address),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		serverError(w, h.logger, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// VerifyPassword handles POST /me/password/verify. The client calls it before
// showing the new-password form.
func (h *ProfileHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "incorrect password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// ChangePassword handles PUT /me/password.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := validatePassword("new_password", req.NewPassword); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.OldPassword)) != nil {
		writeError(w, http.StatusBadRequest, "incorrect password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		serverError(w, h.logger, "hash password", err)
		return
	}

	if _, err := h.store.UpdateUserPassword(r.Context(), database.UpdateUserPasswordParams{
		ID:             user.ID,
		HashedPassword: string(hashed),
	}); err != nil {
		serverError(w, h.logger, "update password", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// --- Helpers ---

func (h *ProfileHandler) currentUser(w http.ResponseWriter, r *http.Request) (database.User, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return database.User{}, false
		}
		serverError(w, h.logger, "get user", err)
		return database.User{}, false
	}
	return user, true
}
