package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/middleware"
	"github.com/mealmasters/api/internal/service"
)

const maxProfileFormBytes = 1 << 20

// ProfileStore defines the database methods needed by profile handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateUserProfile(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error)
	GetVendorProfile(ctx context.Context, vendorID uuid.UUID) (database.VendorProfile, error)
	UpsertVendorProfile(ctx context.Context, arg database.UpsertVendorProfileParams) (database.UpsertVendorProfileRow, error)
}

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	store ProfileStore
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(store ProfileStore) *ProfileHandler {
	return &ProfileHandler{store: store}
}

// RegisterCustomerRoutes registers profile endpoints under /customer.
func (h *ProfileHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Get("/profile", h.Get)
	r.Put("/profile", h.Update)
}

// RegisterVendorRoutes registers profile endpoints under /vendor.
func (h *ProfileHandler) RegisterVendorRoutes(r chi.Router) {
	r.Get("/profile", h.Get)
	r.Put("/profile", h.Update)
	r.Post("/createVendorProfile", h.SaveVendorProfile)
}

// --- Request / Response types ---

type updateProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type vendorProfileRequest struct {
	BusinessName        string `json:"business_name"`
	BusinessDescription string `json:"business_description"`
	ImageRef            string `json:"image_ref"`
}

type vendorProfileResponse struct {
	BusinessName        string    `json:"business_name"`
	BusinessDescription string    `json:"business_description"`
	ImageRef            *string   `json:"image_ref"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type profileResponse struct {
	userResponse
	Business *vendorProfileResponse `json:"business,omitempty"`
}

func toVendorProfileResponse(p database.VendorProfile) *vendorProfileResponse {
	return &vendorProfileResponse{
		BusinessName:        p.BusinessName,
		BusinessDescription: p.BusinessDescription,
		ImageRef:            textPtr(p.ImageRef),
		UpdatedAt:           p.UpdatedAt,
	}
}

// --- Handlers ---

// Get returns the caller's account. Vendors also get their business profile
// once one has been created.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	user, err := h.store.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeServiceError(w, "get profile", service.ErrNotFound)
			return
		}
		writeServiceError(w, "get profile", err)
		return
	}

	resp := profileResponse{userResponse: toUserResponse(user)}
	if actor.IsVendor() {
		vp, err := h.store.GetVendorProfile(r.Context(), actor.ID)
		switch {
		case err == nil:
			resp.Business = toVendorProfileResponse(vp)
		case !errors.Is(err, pgx.ErrNoRows):
			writeServiceError(w, "get vendor profile", err)
			return
		}
	}
	writeSuccess(w, http.StatusOK, resp)
}

// Update replaces the caller's name, phone and address. Email and role are
// not editable here.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	address := strings.TrimSpace(req.Address)
	if name == "" || phone == "" || address == "" {
		writeBadRequest(w, "name, phone and address are required")
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	user, err := h.store.UpdateUserProfile(r.Context(), database.UpdateUserProfileParams{
		ID:      actor.ID,
		Name:    name,
		Phone:   phone,
		Address: address,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeServiceError(w, "update profile", service.ErrNotFound)
			return
		}
		writeServiceError(w, "update profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponse(user))
}

// SaveVendorProfile creates or replaces the vendor's business profile.
// It accepts JSON or the mobile client's multipart form; an uploaded image
// part is ignored and image_ref is stored as given.
func (h *ProfileHandler) SaveVendorProfile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeVendorProfile(r)
	if err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.BusinessName)
	description := strings.TrimSpace(req.BusinessDescription)
	if name == "" || description == "" {
		writeBadRequest(w, "business_name and business_description are required")
		return
	}

	var imageRef pgtype.Text
	if ref := strings.TrimSpace(req.ImageRef); ref != "" {
		imageRef = pgtype.Text{String: ref, Valid: true}
	}

	actor := middleware.ActorFromContext(r.Context())
	row, err := h.store.UpsertVendorProfile(r.Context(), database.UpsertVendorProfileParams{
		VendorID:            actor.ID,
		BusinessName:        name,
		BusinessDescription: description,
		ImageRef:            imageRef,
	})
	if err != nil {
		writeServiceError(w, "save vendor profile", err)
		return
	}

	status := http.StatusOK
	if row.Inserted {
		status = http.StatusCreated
	}
	writeSuccess(w, status, toVendorProfileResponse(row.VendorProfile))
}

func decodeVendorProfile(r *http.Request) (vendorProfileRequest, error) {
	var req vendorProfileRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		err := decodeJSON(r, &req)
		return req, err
	}
	if err := r.ParseMultipartForm(maxProfileFormBytes); err != nil {
		return req, err
	}
	req.BusinessName = r.FormValue("business_name")
	req.BusinessDescription = r.FormValue("business_description")
	req.ImageRef = r.FormValue("image_ref")
	return req, nil
}
