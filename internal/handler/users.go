package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/service"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context, arg database.ListUsersParams) ([]database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// UserHandler serves the admin user directory.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user endpoints. Mounted at /admin behind the
// ADMIN role check.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.List)
	r.Get("/users/{id}", h.Get)
}

// List returns users newest first. Password hashes are never included.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	users, err := h.store.ListUsers(r.Context(), database.ListUsersParams{Limit: limit, Offset: offset})
	if err != nil {
		writeServiceError(w, "list users", err)
		return
	}
	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeSuccess(w, http.StatusOK, resp)
}

// Get returns a single user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "user ID")
	if !ok {
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeServiceError(w, "get user", service.ErrNotFound)
			return
		}
		writeServiceError(w, "get user", err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponse(user))
}
