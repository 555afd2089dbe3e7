package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/middleware"
	"github.com/mealmasters/api/internal/service"
)

// CatalogServicer defines the service methods needed by tiffin and plan handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type CatalogServicer interface {
	CreateTiffin(ctx context.Context, actor service.Actor, in service.TiffinInput) (database.Tiffin, error)
	UpdateTiffin(ctx context.Context, actor service.Actor, id uuid.UUID, in service.TiffinInput) (database.Tiffin, error)
	DeleteTiffin(ctx context.Context, actor service.Actor, id uuid.UUID) error
	ListTiffins(ctx context.Context, tiffinType string) ([]database.Tiffin, error)
	ListVendorTiffins(ctx context.Context, actor service.Actor) ([]database.Tiffin, error)
	CreatePlan(ctx context.Context, actor service.Actor, tiffinID uuid.UUID, in service.PlanInput) (database.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, actor service.Actor, planID uuid.UUID, in service.PlanInput) (database.SubscriptionPlan, error)
	DeletePlan(ctx context.Context, actor service.Actor, planID uuid.UUID) error
	ListPlans(ctx context.Context, tiffinID uuid.UUID) ([]database.SubscriptionPlan, error)
}

// CatalogHandler handles tiffin and subscription plan endpoints.
type CatalogHandler struct {
	svc CatalogServicer
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(svc CatalogServicer) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// RegisterCustomerRoutes registers browse endpoints. Mounted at /customer.
func (h *CatalogHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Get("/tiffinsList", h.ListTiffins)
	r.Get("/tiffinPlans/{id}", h.ListPlans)
}

// RegisterVendorRoutes registers menu management endpoints. Mounted at /vendor.
func (h *CatalogHandler) RegisterVendorRoutes(r chi.Router) {
	r.Get("/getTiffinDetails", h.ListVendorTiffins)
	r.Post("/addTiffin", h.CreateTiffin)
	r.Put("/tiffin/{id}", h.UpdateTiffin)
	r.Delete("/tiffin/{id}", h.DeleteTiffin)
	r.Get("/tiffin/{id}/plans", h.ListPlans)
	r.Post("/addSubscriptionPlan", h.CreatePlan)
	r.Put("/plan/{id}", h.UpdatePlan)
	r.Delete("/plan/{id}", h.DeletePlan)
}

// RegisterAdminRoutes registers tiffin moderation endpoints. Mounted at /admin.
func (h *CatalogHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/tiffins", h.ListTiffins)
	r.Post("/tiffins", h.CreateTiffin)
	r.Delete("/tiffins/{id}", h.DeleteTiffin)
}

// --- Request / Response types ---

type tiffinRequest struct {
	VendorID    string     `json:"vendor_id"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Cost        flexAmount `json:"cost"`
	ImageRef    string     `json:"image_ref"`
}

type planRequest struct {
	TiffinID     string     `json:"tiffin_id"`
	PlanType     string     `json:"plan_type"`
	DurationDays flexInt32  `json:"duration_days"`
	MealsPerDay  flexInt32  `json:"meals_per_day"`
	Price        flexAmount `json:"price"`
}

func (p planRequest) input() service.PlanInput {
	return service.PlanInput{
		PlanType:     p.PlanType,
		DurationDays: int32(p.DurationDays),
		MealsPerDay:  int32(p.MealsPerDay),
		Price:        string(p.Price),
	}
}

type tiffinResponse struct {
	ID          uuid.UUID `json:"id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Description *string   `json:"description"`
	Cost        string    `json:"cost"`
	ImageRef    *string   `json:"image_ref"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTiffinResponse(t database.Tiffin) tiffinResponse {
	return tiffinResponse{
		ID:          t.ID,
		VendorID:    t.VendorID,
		Title:       t.Title,
		Type:        t.Type,
		Description: textPtr(t.Description),
		Cost:        formatMoney(t.Cost),
		ImageRef:    textPtr(t.ImageRef),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTiffinResponses(ts []database.Tiffin) []tiffinResponse {
	resp := make([]tiffinResponse, len(ts))
	for i, t := range ts {
		resp[i] = toTiffinResponse(t)
	}
	return resp
}

type planResponse struct {
	ID           uuid.UUID `json:"id"`
	TiffinID     uuid.UUID `json:"tiffin_id"`
	PlanType     string    `json:"plan_type"`
	DurationDays int32     `json:"duration_days"`
	MealsPerDay  int32     `json:"meals_per_day"`
	Price        string    `json:"price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toPlanResponse(p database.SubscriptionPlan) planResponse {
	return planResponse{
		ID:           p.ID,
		TiffinID:     p.TiffinID,
		PlanType:     p.PlanType,
		DurationDays: p.DurationDays,
		MealsPerDay:  p.MealsPerDay,
		Price:        formatMoney(p.Price),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// --- Tiffin handlers ---

// ListTiffins returns every live tiffin, optionally filtered by ?type=VEG|NONVEG.
func (h *CatalogHandler) ListTiffins(w http.ResponseWriter, r *http.Request) {
	tiffins, err := h.svc.ListTiffins(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		writeServiceError(w, "list tiffins", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTiffinResponses(tiffins))
}

// ListVendorTiffins returns the calling vendor's tiffins.
func (h *CatalogHandler) ListVendorTiffins(w http.ResponseWriter, r *http.Request) {
	tiffins, err := h.svc.ListVendorTiffins(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "list vendor tiffins", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTiffinResponses(tiffins))
}

// CreateTiffin adds a tiffin to the caller's menu. Admins pass vendor_id.
func (h *CatalogHandler) CreateTiffin(w http.ResponseWriter, r *http.Request) {
	var req tiffinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	in, ok := tiffinInput(w, req)
	if !ok {
		return
	}

	tiffin, err := h.svc.CreateTiffin(r.Context(), middleware.ActorFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, "create tiffin", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toTiffinResponse(tiffin))
}

// UpdateTiffin replaces the editable fields of a tiffin.
func (h *CatalogHandler) UpdateTiffin(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "tiffin ID")
	if !ok {
		return
	}
	var req tiffinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	in, ok := tiffinInput(w, req)
	if !ok {
		return
	}

	tiffin, err := h.svc.UpdateTiffin(r.Context(), middleware.ActorFromContext(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, "update tiffin", err)
		return
	}
	writeSuccess(w, http.StatusOK, toTiffinResponse(tiffin))
}

// DeleteTiffin soft-deletes a tiffin.
func (h *CatalogHandler) DeleteTiffin(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "tiffin ID")
	if !ok {
		return
	}
	if err := h.svc.DeleteTiffin(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, "delete tiffin", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]uuid.UUID{"id": id})
}

func tiffinInput(w http.ResponseWriter, req tiffinRequest) (service.TiffinInput, bool) {
	in := service.TiffinInput{
		Title:       req.Title,
		Type:        req.Type,
		Description: req.Description,
		Cost:        string(req.Cost),
		ImageRef:    req.ImageRef,
	}
	if req.VendorID != "" {
		id, err := uuid.Parse(req.VendorID)
		if err != nil {
			writeBadRequest(w, "invalid vendor_id")
			return service.TiffinInput{}, false
		}
		in.VendorID = id
	}
	return in, true
}

// --- Plan handlers ---

// ListPlans returns the live plans of a tiffin.
func (h *CatalogHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	tiffinID, ok := parseIDParam(w, r, "id", "tiffin ID")
	if !ok {
		return
	}
	plans, err := h.svc.ListPlans(r.Context(), tiffinID)
	if err != nil {
		writeServiceError(w, "list plans", err)
		return
	}
	resp := make([]planResponse, len(plans))
	for i, p := range plans {
		resp[i] = toPlanResponse(p)
	}
	writeSuccess(w, http.StatusOK, resp)
}

// CreatePlan adds a subscription plan to one of the caller's tiffins.
func (h *CatalogHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	tiffinID, err := uuid.Parse(req.TiffinID)
	if err != nil {
		writeBadRequest(w, "invalid tiffin_id")
		return
	}

	plan, err := h.svc.CreatePlan(r.Context(), middleware.ActorFromContext(r.Context()), tiffinID, req.input())
	if err != nil {
		writeServiceError(w, "create plan", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toPlanResponse(plan))
}

// UpdatePlan replaces a plan's fields. Orders already placed keep their snapshot.
func (h *CatalogHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "plan ID")
	if !ok {
		return
	}
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	plan, err := h.svc.UpdatePlan(r.Context(), middleware.ActorFromContext(r.Context()), id, req.input())
	if err != nil {
		writeServiceError(w, "update plan", err)
		return
	}
	writeSuccess(w, http.StatusOK, toPlanResponse(plan))
}

// DeletePlan soft-deletes a plan.
func (h *CatalogHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "plan ID")
	if !ok {
		return
	}
	if err := h.svc.DeletePlan(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, "delete plan", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]uuid.UUID{"id": id})
}
