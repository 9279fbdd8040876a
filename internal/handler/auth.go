package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/washtrack/api/internal/auth"
	"github.com/washtrack/api/internal/database"
	"github.com/washtrack/api/internal/enum"
	"github.com/washtrack/api/internal/service"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id int64) (database.User, error)
	GetAdminByEmail(ctx context.Context, email string) (database.Admin, error)
	GetAdminByID(ctx context.Context, id int64) (database.Admin, error)
}

// Verifier issues and checks email verification codes.
// Satisfied by *service.VerificationService.
type Verifier interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	IsVerified(ctx context.Context, email string) (bool, error)
	ConsumeVerification(ctx context.Context, email string) error
}

// AuthHandler handles registration, login and email verification.
type AuthHandler struct {
	store               AuthStore
	verifier            Verifier
	jwtSecret           string
	requireVerification bool
	logger              *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. When requireVerification is set,
// registration only succeeds for emails that passed VerifyCode.
func NewAuthHandler(store AuthStore, verifier Verifier, jwtSecret string, requireVerification bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		store:               store,
		verifier:            verifier,
		jwtSecret:           jwtSecret,
		requireVerification: requireVerification,
		logger:              logger,
	}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/admin/login", h.AdminLogin)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/verification-code", h.SendVerificationCode)
	r.Post("/auth/verify-code", h.VerifyCode)
}

// --- Request / Response types ---

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
	Address  string `json:"address"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type verificationCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	Account      accountInfo `json:"account"`
}

type accountInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type userResponse struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Contact      string    `json:"contact"`
	Address      string    `json:"address"`
	RegisteredAt time.Time `json:"registered_at"`
}

// --- Handlers ---

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, msg := validateProfile(req.Username, req.Email, req.Contact, req.Address)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validatePassword("password", req.Password); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if h.requireVerification {
		ok, err := h.verifier.IsVerified(r.Context(), p.email)
		if err != nil {
			serverError(w, h.logger, "check email verification", err)
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "email has not been verified")
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		serverError(w, h.logger, "hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Username:       p.username,
		Email:          p.email,
		Contact:        optionalText(p.contact),
		Address:        optionalText(p.address),
		HashedPassword: string(hashed),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		serverError(w, h.logger, "create user", err)
		return
	}

	if h.requireVerification {
		if err := h.verifier.ConsumeVerification(r.Context(), p.email); err != nil {
			h.logger.Warn("consume email verification", zap.String("email", p.email), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// Login handles customer email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		serverError(w, h.logger, "get user by email", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithTokens(w, accountInfo{ID: user.ID, Name: user.Username, Email: user.Email, Role: enum.RoleCustomer})
}

// AdminLogin handles admin email + password authentication.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	admin, err := h.store.GetAdminByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		serverError(w, h.logger, "get admin by email", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.respondWithTokens(w, accountInfo{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: enum.RoleAdmin})
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	id, role, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	// The account must still exist.
	var account accountInfo
	switch role {
	case enum.RoleAdmin:
		admin, err := h.store.GetAdminByID(r.Context(), id)
		if err != nil {
			h.refreshLookupFailed(w, err)
			return
		}
		account = accountInfo{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: enum.RoleAdmin}
	case enum.RoleCustomer:
		user, err := h.store.GetUserByID(r.Context(), id)
		if err != nil {
			h.refreshLookupFailed(w, err)
			return
		}
		account = accountInfo{ID: user.ID, Name: user.Username, Email: user.Email, Role: enum.RoleCustomer}
	default:
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	h.respondWithTokens(w, account)
}

// SendVerificationCode handles POST /auth/verification-code.
func (h *AuthHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req verificationCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if !emailPattern.MatchString(email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	if err := h.verifier.SendCode(r.Context(), email); err != nil {
		serverError(w, h.logger, "send verification code", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "verification code sent"})
}

// VerifyCode handles POST /auth/verify-code.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	if err := h.verifier.VerifyCode(r.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, h.logger, "verify code", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// --- Helpers ---

func (h *AuthHandler) refreshLookupFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, "account not found")
		return
	}
	serverError(w, h.logger, "get account for refresh", err)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, account accountInfo) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, account.ID, account.Role)
	if err != nil {
		serverError(w, h.logger, "generate access token", err)
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, account.ID, account.Role)
	if err != nil {
		serverError(w, h.logger, "generate refresh token", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      account,
	})
}

type profileInput struct {
	username, email, contact, address string
}

// validateProfile applies the signup rules shared by registration and
// profile updates. It returns an error message when the input is invalid.
func validateProfile(username, email, contact, address string) (profileInput, string) {
	p := profileInput{
		username: strings.TrimSpace(username),
		email:    normalizeEmail(email),
		contact:  strings.TrimSpace(contact),
		address:  strings.TrimSpace(address),
	}
	switch {
	case len([]rune(p.username)) < 2:
		return p, "username must be at least 2 characters"
	case !emailPattern.MatchString(p.email):
		return p, "invalid email address"
	case p.contact != "" && !contactPattern.MatchString(p.contact):
		return p, "contact must be 11 digits"
	case p.address != "" && len([]rune(p.address)) < 5:
		return p, "address must be at least 5 characters"
	}
	return p, ""
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Contact:      textOrEmpty(u.Contact),
		Address:      textOrEmpty(u.Address),
		RegisteredAt: u.RegisteredAt,
	}
}
