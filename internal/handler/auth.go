package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mealmasters/api/internal/auth"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
	"github.com/mealmasters/api/internal/service"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	// bcrypt rejects passwords longer than this many bytes.
	maxPasswordBytes = 72
)

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
}

// AuthHandler handles sign-in, sign-up and token refresh.
type AuthHandler struct {
	store      AuthStore
	jwtSecret  string
	tokenTTL   time.Duration
	refreshTTL time.Duration
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, jwtSecret string, tokenTTL, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{store: store, jwtSecret: jwtSecret, tokenTTL: tokenTTL, refreshTTL: refreshTTL}
}

// RegisterRoutes registers auth endpoints on the given Chi router.
// Expected to be mounted at /user.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/signin", h.Signin)
	r.Post("/customer/signup", h.CustomerSignup)
	r.Post("/vendor/signup", h.VendorSignup)
	r.Post("/refresh", h.Refresh)
}

// --- Request / Response types ---

// The mobile client posts the plain password under password_hash.
type signinRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordHash string `json:"password_hash"`
}

type signupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Password     string `json:"password"`
	PasswordHash string `json:"password_hash"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	Role         string       `json:"role"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u database.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   u.Address,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func password(plain, legacy string) string {
	if plain != "" {
		return plain
	}
	return legacy
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// --- Handlers ---

// Signin handles email + password authentication.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	email := normalizeEmail(req.Email)
	pw := password(req.Password, req.PasswordHash)
	if email == "" || pw == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeServiceError(w, "signin", service.ErrInvalidCredentials)
			return
		}
		writeServiceError(w, "signin", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(pw)); err != nil {
		writeServiceError(w, "signin", service.ErrInvalidCredentials)
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// CustomerSignup registers a customer account.
func (h *AuthHandler) CustomerSignup(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, enum.UserRoleCustomer)
}

// VendorSignup registers a vendor account.
func (h *AuthHandler) VendorSignup(w http.ResponseWriter, r *http.Request) {
	h.signup(w, r, enum.UserRoleVendor)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request, role string) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	pw := password(req.Password, req.PasswordHash)
	if name == "" || email == "" || pw == "" {
		writeBadRequest(w, "name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		writeBadRequest(w, "invalid email")
		return
	}
	if len(pw) < minPasswordLength {
		writeBadRequest(w, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}
	if len(pw) > maxPasswordBytes {
		writeBadRequest(w, fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: hash password: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		HashedPassword: string(hashed),
		Role:           role,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeServiceError(w, "signup", service.ErrDuplicateEmail)
			return
		}
		writeServiceError(w, "create user", err)
		return
	}

	h.respondWithTokens(w, http.StatusCreated, user)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "user not found")
			return
		}
		writeServiceError(w, "refresh", err)
		return
	}

	h.respondWithTokens(w, http.StatusOK, user)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, user database.User) {
	accessToken, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Role, h.tokenTTL)
	if err != nil {
		writeServiceError(w, "generate token", err)
		return
	}

	refreshToken, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID, h.refreshTTL)
	if err != nil {
		writeServiceError(w, "generate refresh token", err)
		return
	}

	writeSuccess(w, status, tokenResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		Role:         strings.ToLower(user.Role),
		User:         toUserResponse(user),
	})
}
