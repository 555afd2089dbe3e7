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

// DeliveryServicer defines the service methods needed by delivery handlers.
// Satisfied by *service.DeliveryService; narrow interface for testability.
type DeliveryServicer interface {
	Assign(ctx context.Context, actor service.Actor, orderID, partnerID uuid.UUID) (service.AssignResult, error)
	ActiveAssignment(ctx context.Context, actor service.Actor, orderID uuid.UUID) (database.GetActiveAssignmentRow, error)
	AssignmentHistory(ctx context.Context, actor service.Actor, orderID uuid.UUID) ([]database.DeliveryAssignment, error)
	ListPartners(ctx context.Context, actor service.Actor) ([]database.DeliveryPartner, error)
	CreatePartner(ctx context.Context, actor service.Actor, name, phone string) (database.DeliveryPartner, error)
}

// DeliveryHandler handles delivery partner and assignment endpoints.
type DeliveryHandler struct {
	svc DeliveryServicer
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(svc DeliveryServicer) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// RegisterCustomerRoutes registers delivery tracking. Mounted at /customer.
func (h *DeliveryHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Get("/order/{id}/delivery", h.Active)
}

// RegisterVendorRoutes registers assignment endpoints. Mounted at /vendor.
func (h *DeliveryHandler) RegisterVendorRoutes(r chi.Router) {
	r.Get("/delivery", h.ListPartners)
	r.Put("/assignDelivery/{order_id}", h.Assign)
	r.Get("/order/{id}/delivery", h.Active)
	r.Get("/order/{id}/delivery/history", h.History)
}

// RegisterAdminRoutes registers partner management and assignment. Mounted at /admin.
func (h *DeliveryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/delivery", h.ListPartners)
	r.Post("/delivery", h.CreatePartner)
	r.Put("/assignDelivery/{order_id}", h.Assign)
	r.Get("/order/{id}/delivery", h.Active)
	r.Get("/order/{id}/delivery/history", h.History)
}

// --- Request / Response types ---

type assignRequest struct {
	DeliveryID string `json:"delivery_id"`
}

type createPartnerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type partnerResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

func toPartnerResponse(p database.DeliveryPartner) partnerResponse {
	return partnerResponse{ID: p.ID, Name: p.Name, Phone: p.Phone, CreatedAt: p.CreatedAt}
}

type assignmentResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrderID           uuid.UUID  `json:"order_id"`
	DeliveryPartnerID uuid.UUID  `json:"delivery_partner_id"`
	PartnerName       string     `json:"partner_name,omitempty"`
	PartnerPhone      string     `json:"partner_phone,omitempty"`
	AssignedBy        uuid.UUID  `json:"assigned_by"`
	AssignedAt        time.Time  `json:"assigned_at"`
	SupersededAt      *time.Time `json:"superseded_at"`
}

func toAssignmentResponse(a database.DeliveryAssignment) assignmentResponse {
	return assignmentResponse{
		ID:                a.ID,
		OrderID:           a.OrderID,
		DeliveryPartnerID: a.DeliveryPartnerID,
		AssignedBy:        a.AssignedBy,
		AssignedAt:        a.AssignedAt,
		SupersededAt:      timePtr(a.SupersededAt),
	}
}

// --- Handlers ---

// Assign makes a partner the active delivery assignee of an order.
func (h *DeliveryHandler) Assign(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "order_id", "order ID")
	if !ok {
		return
	}
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	partnerID, err := uuid.Parse(req.DeliveryID)
	if err != nil {
		writeBadRequest(w, "invalid delivery_id")
		return
	}

	res, err := h.svc.Assign(r.Context(), middleware.ActorFromContext(r.Context()), orderID, partnerID)
	if err != nil {
		writeServiceError(w, "assign delivery", err)
		return
	}

	resp := toAssignmentResponse(res.Assignment)
	resp.PartnerName = res.Partner.Name
	resp.PartnerPhone = res.Partner.Phone
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeSuccess(w, status, resp)
}

// Active returns the order's current delivery partner.
func (h *DeliveryHandler) Active(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	a, err := h.svc.ActiveAssignment(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
	if err != nil {
		writeServiceError(w, "active assignment", err)
		return
	}
	writeSuccess(w, http.StatusOK, assignmentResponse{
		ID:                a.ID,
		OrderID:           a.OrderID,
		DeliveryPartnerID: a.DeliveryPartnerID,
		PartnerName:       a.PartnerName,
		PartnerPhone:      a.PartnerPhone,
		AssignedBy:        a.AssignedBy,
		AssignedAt:        a.AssignedAt,
		SupersededAt:      timePtr(a.SupersededAt),
	})
}

// History returns every assignment of an order, newest first.
func (h *DeliveryHandler) History(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	history, err := h.svc.AssignmentHistory(r.Context(), middleware.ActorFromContext(r.Context()), orderID)
	if err != nil {
		writeServiceError(w, "assignment history", err)
		return
	}
	resp := make([]assignmentResponse, len(history))
	for i, a := range history {
		resp[i] = toAssignmentResponse(a)
	}
	writeSuccess(w, http.StatusOK, resp)
}

// ListPartners returns every delivery partner.
func (h *DeliveryHandler) ListPartners(w http.ResponseWriter, r *http.Request) {
	partners, err := h.svc.ListPartners(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "list partners", err)
		return
	}
	resp := make([]partnerResponse, len(partners))
	for i, p := range partners {
		resp[i] = toPartnerResponse(p)
	}
	writeSuccess(w, http.StatusOK, resp)
}

// CreatePartner registers a delivery partner.
func (h *DeliveryHandler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var req createPartnerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	p, err := h.svc.CreatePartner(r.Context(), middleware.ActorFromContext(r.Context()), req.Name, req.Phone)
	if err != nil {
		writeServiceError(w, "create partner", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toPartnerResponse(p))
}
