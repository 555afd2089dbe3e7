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

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	PlaceOrder(ctx context.Context, actor service.Actor, req service.PlaceOrderRequest) (database.OrderDetailRow, error)
	Transition(ctx context.Context, actor service.Actor, orderID uuid.UUID, to string) (database.OrderDetailRow, error)
	Cancel(ctx context.Context, actor service.Actor, orderID uuid.UUID) (database.OrderDetailRow, error)
	MarkDelivered(ctx context.Context, actor service.Actor, orderID uuid.UUID) (database.OrderDetailRow, error)
	GetOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID) (database.OrderDetailRow, error)
	CustomerOrderHistory(ctx context.Context, actor service.Actor) ([]database.OrderDetailRow, error)
	CustomerSubscriptions(ctx context.Context, actor service.Actor) ([]service.SubscriptionView, error)
	Schedule(ctx context.Context, actor service.Actor, orderID uuid.UUID) (database.OrderDetailRow, []service.DeliveryDay, service.SubscriptionProgress, error)
	VendorOrders(ctx context.Context, actor service.Actor, status string) ([]database.OrderDetailRow, error)
	OrdersByStatus(ctx context.Context, actor service.Actor, status string, limit, offset int32) ([]database.OrderDetailRow, error)
	AllOrders(ctx context.Context, actor service.Actor, limit, offset int32) ([]database.OrderDetailRow, error)
	Dashboard(ctx context.Context, actor service.Actor) (database.GetDashboardCountsRow, error)
}

// OrderHandler handles order endpoints for all three roles.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterCustomerRoutes registers customer order endpoints. Mounted at /customer.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/placeOrder", h.PlaceOrder)
	r.Get("/orderHistory", h.OrderHistory)
	r.Get("/mySubscriptions", h.Subscriptions)
	r.Get("/order/{id}", h.Get)
	r.Put("/order/{id}/cancel", h.Cancel)
	r.Get("/order/{id}/schedule", h.Schedule)
}

// RegisterVendorRoutes registers vendor order endpoints. Mounted at /vendor.
func (h *OrderHandler) RegisterVendorRoutes(r chi.Router) {
	r.Get("/orders", h.VendorOrders)
	r.Put("/updateOrderStatus", h.UpdateStatus)
	r.Get("/order/{id}", h.Get)
	r.Put("/order/{id}/cancel", h.Cancel)
	r.Put("/order/{id}/delivered", h.MarkDelivered)
	r.Get("/order/{id}/schedule", h.Schedule)
}

// RegisterAdminRoutes registers admin order endpoints. Mounted at /admin.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/ordersByStatus/{status}", h.OrdersByStatus)
	r.Get("/allOrders", h.AllOrders)
	r.Get("/order/{id}", h.Get)
	r.Put("/order/{id}/status", h.SetStatus)
}

// --- Request / Response types ---

type placeOrderRequest struct {
	TiffinID  string  `json:"tiffin_id"`
	PlanID    *string `json:"plan_id"`
	StartDate string  `json:"start_date"`
}

type updateStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

type orderResponse struct {
	ID           uuid.UUID  `json:"id"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	CustomerName string     `json:"customer_name"`
	TiffinID     uuid.UUID  `json:"tiffin_id"`
	TiffinTitle  string     `json:"tiffin_title"`
	VendorID     uuid.UUID  `json:"vendor_id"`
	VendorName   string     `json:"vendor_name"`
	PlanID       *uuid.UUID `json:"plan_id"`
	PlanType     *string    `json:"plan_type"`
	DurationDays int32      `json:"duration_days"`
	MealsPerDay  int32      `json:"meals_per_day"`
	Status       string     `json:"status"`
	StartDate    string     `json:"start_date"`
	EndDate      string     `json:"end_date"`
	Price        string     `json:"price"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toOrderResponse(o database.OrderDetailRow) orderResponse {
	return orderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		TiffinID:     o.TiffinID,
		TiffinTitle:  o.TiffinTitle,
		VendorID:     o.VendorID,
		VendorName:   o.VendorName,
		PlanID:       uuidPtr(o.PlanID),
		PlanType:     textPtr(o.PlanType),
		DurationDays: o.DurationDays,
		MealsPerDay:  o.MealsPerDay,
		Status:       o.Status,
		StartDate:    formatDate(o.StartDate),
		EndDate:      formatDate(o.EndDate),
		Price:        formatMoney(o.Price),
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

func toOrderResponses(orders []database.OrderDetailRow) []orderResponse {
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	return resp
}

type subscriptionResponse struct {
	orderResponse
	Progress service.SubscriptionProgress `json:"progress"`
}

type deliveryDayResponse struct {
	Date        string `json:"date"`
	DayNumber   int    `json:"day_number"`
	MealsPerDay int32  `json:"meals_per_day"`
}

type scheduleResponse struct {
	Order    orderResponse                `json:"order"`
	Progress service.SubscriptionProgress `json:"progress"`
	Days     []deliveryDayResponse        `json:"days"`
}

// dashboardResponse keeps the key names the admin panel reads.
type dashboardResponse struct {
	TotalTiffin     int64 `json:"totalTiffin"`
	NewOrders       int64 `json:"newOrders"`
	ConfirmedOrders int64 `json:"confirmedOrders"`
	DeliveredOrders int64 `json:"deliveredOrders"`
	CancelledOrders int64 `json:"cancelledOrders"`
	AllOrders       int64 `json:"allOrders"`
	TotalUsers      int64 `json:"totalUsers"`
}

// --- Customer handlers ---

// PlaceOrder creates a PENDING order for the calling customer.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	var in service.PlaceOrderRequest
	if req.TiffinID != "" {
		id, err := uuid.Parse(req.TiffinID)
		if err != nil {
			writeBadRequest(w, "invalid tiffin_id")
			return
		}
		in.TiffinID = id
	}
	if req.PlanID != nil && *req.PlanID != "" {
		id, err := uuid.Parse(*req.PlanID)
		if err != nil {
			writeBadRequest(w, "invalid plan_id")
			return
		}
		in.PlanID = &id
	}
	in.StartDate = req.StartDate

	order, err := h.svc.PlaceOrder(r.Context(), middleware.ActorFromContext(r.Context()), in)
	if err != nil {
		writeServiceError(w, "place order", err)
		return
	}
	writeSuccess(w, http.StatusCreated, toOrderResponse(order))
}

// OrderHistory lists the calling customer's orders, newest first.
func (h *OrderHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.CustomerOrderHistory(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "order history", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponses(orders))
}

// Subscriptions lists the calling customer's plan orders with progress.
func (h *OrderHandler) Subscriptions(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.CustomerSubscriptions(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "subscriptions", err)
		return
	}
	resp := make([]subscriptionResponse, len(views))
	for i, v := range views {
		resp[i] = subscriptionResponse{orderResponse: toOrderResponse(v.Order), Progress: v.Progress}
	}
	writeSuccess(w, http.StatusOK, resp)
}

// --- Shared handlers ---

// Get returns a single order visible to the caller.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	order, err := h.svc.GetOrder(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(order))
}

// Cancel moves a PENDING order to CANCELLED.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	order, err := h.svc.Cancel(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(order))
}

// Schedule returns the order's delivery days and progress.
func (h *OrderHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	order, days, progress, err := h.svc.Schedule(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, "order schedule", err)
		return
	}
	resp := scheduleResponse{
		Order:    toOrderResponse(order),
		Progress: progress,
		Days:     make([]deliveryDayResponse, len(days)),
	}
	for i, d := range days {
		resp.Days[i] = deliveryDayResponse{
			Date:        d.Date.Format(service.DateLayout),
			DayNumber:   d.DayNumber,
			MealsPerDay: d.MealsPerDay,
		}
	}
	writeSuccess(w, http.StatusOK, resp)
}

// --- Vendor handlers ---

// VendorOrders lists orders for the caller's tiffins, optionally by ?status=.
func (h *OrderHandler) VendorOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.VendorOrders(r.Context(), middleware.ActorFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		writeServiceError(w, "vendor orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponses(orders))
}

// UpdateStatus applies {order_id, status} as sent by the vendor app.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeBadRequest(w, "invalid order_id")
		return
	}
	h.transition(w, r, id, req.Status)
}

// MarkDelivered moves an APPROVED order to DELIVERED.
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	order, err := h.svc.MarkDelivered(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, "mark delivered", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(order))
}

// --- Admin handlers ---

// SetStatus applies {status} to the order in the path.
func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id", "order ID")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	h.transition(w, r, id, req.Status)
}

// OrdersByStatus lists orders in one status across all vendors.
func (h *OrderHandler) OrdersByStatus(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	orders, err := h.svc.OrdersByStatus(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "status"), limit, offset)
	if err != nil {
		writeServiceError(w, "orders by status", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponses(orders))
}

// AllOrders lists every order, newest first.
func (h *OrderHandler) AllOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	orders, err := h.svc.AllOrders(r.Context(), middleware.ActorFromContext(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, "all orders", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponses(orders))
}

// Dashboard returns platform-wide counts.
func (h *OrderHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Dashboard(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, "dashboard", err)
		return
	}
	writeSuccess(w, http.StatusOK, dashboardResponse{
		TotalTiffin:     c.TotalTiffins,
		NewOrders:       c.PendingOrders,
		ConfirmedOrders: c.ApprovedOrders,
		DeliveredOrders: c.DeliveredOrders,
		CancelledOrders: c.CancelledOrders,
		AllOrders:       c.AllOrders,
		TotalUsers:      c.TotalUsers,
	})
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, id uuid.UUID, status string) {
	if status == "" {
		writeBadRequest(w, "status is required")
		return
	}
	order, err := h.svc.Transition(r.Context(), middleware.ActorFromContext(r.Context()), id, status)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(order))
}
