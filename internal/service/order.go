package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
	"github.com/mealmasters/api/internal/notify"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries.
type OrderStore interface {
	GetTiffin(ctx context.Context, id uuid.UUID) (database.Tiffin, error)
	GetPlan(ctx context.Context, id uuid.UUID) (database.SubscriptionPlan, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetailRow, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.OrderDetailRow, error)
	ListSubscriptionsByCustomer(ctx context.Context, customerID uuid.UUID) ([]database.OrderDetailRow, error)
	ListOrdersByVendor(ctx context.Context, arg database.ListOrdersByVendorParams) ([]database.OrderDetailRow, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.OrderDetailRow, error)
	GetDashboardCounts(ctx context.Context) (database.GetDashboardCountsRow, error)
}

// PlaceOrderRequest is the input for placing an order. A nil PlanID places a
// single-day order priced at the tiffin cost.
type PlaceOrderRequest struct {
	TiffinID  uuid.UUID
	PlanID    *uuid.UUID
	StartDate string // YYYY-MM-DD
}

// SubscriptionView is a subscription order with its progress as of today.
type SubscriptionView struct {
	Order    database.OrderDetailRow
	Progress SubscriptionProgress
}

// OrderService runs the order lifecycle: placement, status transitions and
// order reads for each role.
type OrderService struct {
	store    OrderStore
	notifier notify.Notifier
	loc      *time.Location
	now      func() time.Time
}

// NewOrderService creates a new OrderService. Calendar "today" is evaluated
// in loc; a nil loc means UTC. A nil notifier discards events.
func NewOrderService(store OrderStore, notifier notify.Notifier, loc *time.Location) *OrderService {
	if loc == nil {
		loc = time.UTC
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &OrderService{store: store, notifier: notifier, loc: loc, now: time.Now}
}

// today returns the current calendar date in the service location.
func (s *OrderService) today() time.Time {
	return civilDate(s.now().In(s.loc))
}

// PlaceOrder creates a PENDING order for the calling customer. Price and end
// date are fixed at creation; later plan edits do not affect the order.
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, req PlaceOrderRequest) (database.OrderDetailRow, error) {
	if err := requireRole(actor, enum.UserRoleCustomer); err != nil {
		return database.OrderDetailRow{}, err
	}
	if req.TiffinID == uuid.Nil {
		return database.OrderDetailRow{}, fmt.Errorf("tiffin_id is required: %w", ErrValidation)
	}
	if req.StartDate == "" {
		return database.OrderDetailRow{}, fmt.Errorf("start_date is required: %w", ErrValidation)
	}
	start, err := ParseDate(req.StartDate)
	if err != nil {
		return database.OrderDetailRow{}, err
	}
	if start.Before(s.today()) {
		return database.OrderDetailRow{}, fmt.Errorf("start_date %s is in the past: %w", req.StartDate, ErrInvalidInput)
	}

	tiffin, err := s.store.GetTiffin(ctx, req.TiffinID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderDetailRow{}, fmt.Errorf("tiffin %s: %w", req.TiffinID, ErrNotFound)
		}
		return database.OrderDetailRow{}, fmt.Errorf("get tiffin: %w", err)
	}

	var plan *database.SubscriptionPlan
	if req.PlanID != nil {
		p, err := s.store.GetPlan(ctx, *req.PlanID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.OrderDetailRow{}, fmt.Errorf("plan %s: %w", *req.PlanID, ErrNotFound)
			}
			return database.OrderDetailRow{}, fmt.Errorf("get plan: %w", err)
		}
		if p.TiffinID != tiffin.ID {
			return database.OrderDetailRow{}, fmt.Errorf("plan %s does not belong to tiffin %s: %w", p.ID, tiffin.ID, ErrValidation)
		}
		plan = &p
	}

	quote, err := ComputeOrder(tiffin, plan, start)
	if err != nil {
		return database.OrderDetailRow{}, err
	}

	params := database.CreateOrderParams{
		CustomerID:   actor.ID,
		TiffinID:     tiffin.ID,
		DurationDays: quote.DurationDays,
		MealsPerDay:  quote.MealsPerDay,
		StartDate:    dateToPg(quote.StartDate),
		EndDate:      dateToPg(quote.EndDate),
		Price:        decimalToNumeric(quote.Price),
	}
	if plan != nil {
		params.PlanID = pgtype.UUID{Bytes: plan.ID, Valid: true}
		params.PlanType = pgtype.Text{String: plan.PlanType, Valid: true}
	}

	order, err := s.store.CreateOrder(ctx, params)
	if err != nil {
		return database.OrderDetailRow{}, fmt.Errorf("create order: %w", err)
	}

	detail, err := s.store.GetOrderDetail(ctx, order.ID)
	if err != nil {
		log.Printf("ERROR: reload order %s after create: %v", order.ID, err)
		detail = database.OrderDetailRow{Order: order, TiffinTitle: tiffin.Title, VendorID: tiffin.VendorID}
	}

	s.publish(ctx, enum.EventOrderCreated, detail, "")
	return detail, nil
}

// --- Status transitions ---

// transitionRule is one permitted edge of the order state machine.
type transitionRule struct {
	from, to string
	roles    []string
}

// orderTransitions is the complete set of legal status edges. Terminal
// states (DELIVERED, CANCELLED) have no outgoing edges, even for admins.
var orderTransitions = []transitionRule{
	{enum.OrderStatusPending, enum.OrderStatusApproved, []string{enum.UserRoleVendor, enum.UserRoleAdmin}},
	{enum.OrderStatusPending, enum.OrderStatusCancelled, []string{enum.UserRoleCustomer, enum.UserRoleVendor, enum.UserRoleAdmin}},
	{enum.OrderStatusApproved, enum.OrderStatusDelivered, []string{enum.UserRoleVendor, enum.UserRoleAdmin}},
	{enum.OrderStatusApproved, enum.OrderStatusCancelled, []string{enum.UserRoleVendor, enum.UserRoleAdmin}},
}

// validateTransition checks the requested edge for the actor's role. A
// target that other roles may set but this role never can is forbidden;
// any other edge missing from the table is an invalid transition.
func validateTransition(role, from, to string) error {
	targetable := false
	for _, r := range orderTransitions {
		if r.to != to || !containsRole(r.roles, role) {
			continue
		}
		if r.from == from {
			return nil
		}
		targetable = true
	}
	if !targetable && anyRoleCanTarget(to) {
		return fmt.Errorf("role %s cannot set status %s: %w", role, to, ErrForbidden)
	}
	return fmt.Errorf("cannot transition from %s to %s: %w", from, to, ErrInvalidTransition)
}

func anyRoleCanTarget(to string) bool {
	for _, r := range orderTransitions {
		if r.to == to {
			return true
		}
	}
	return false
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusApproved, enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// Transition moves an order to status to. Permission is checked before
// state. The write is a compare-and-set on the status that was read, so a
// concurrent transition makes this call fail with ErrStaleState instead of
// overwriting the other writer.
func (s *OrderService) Transition(ctx context.Context, actor Actor, orderID uuid.UUID, to string) (database.OrderDetailRow, error) {
	if !actor.Valid() {
		return database.OrderDetailRow{}, fmt.Errorf("actor %q: %w", actor.Role, ErrForbidden)
	}
	to = strings.ToUpper(strings.TrimSpace(to))
	if !isValidOrderStatus(to) {
		return database.OrderDetailRow{}, fmt.Errorf("unknown status %q: %w", to, ErrValidation)
	}

	order, err := s.getOrderDetail(ctx, orderID)
	if err != nil {
		return database.OrderDetailRow{}, err
	}

	switch {
	case actor.IsCustomer():
		if order.CustomerID != actor.ID {
			return database.OrderDetailRow{}, fmt.Errorf("order %s: %w", order.ID, ErrForbidden)
		}
	default:
		if err := canManageOrder(actor, order); err != nil {
			return database.OrderDetailRow{}, err
		}
	}

	from := order.Status
	if err := validateTransition(actor.Role, from, to); err != nil {
		return database.OrderDetailRow{}, err
	}

	updated, err := s.store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:             order.ID,
		Status:         to,
		ExpectedStatus: from,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderDetailRow{}, fmt.Errorf("order %s is no longer %s: %w", order.ID, from, ErrStaleState)
		}
		return database.OrderDetailRow{}, fmt.Errorf("update order status: %w", err)
	}

	order.Order = updated
	s.publish(ctx, enum.EventOrderStatusChanged, order, from)
	return order, nil
}

// Approve moves a PENDING order to APPROVED.
func (s *OrderService) Approve(ctx context.Context, actor Actor, orderID uuid.UUID) (database.OrderDetailRow, error) {
	return s.Transition(ctx, actor, orderID, enum.OrderStatusApproved)
}

// Cancel cancels an order. Customers may only cancel while it is PENDING.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID) (database.OrderDetailRow, error) {
	return s.Transition(ctx, actor, orderID, enum.OrderStatusCancelled)
}

// MarkDelivered moves an APPROVED order to DELIVERED.
func (s *OrderService) MarkDelivered(ctx context.Context, actor Actor, orderID uuid.UUID) (database.OrderDetailRow, error) {
	return s.Transition(ctx, actor, orderID, enum.OrderStatusDelivered)
}

// --- Reads ---

// GetOrder returns an order visible to the actor.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (database.OrderDetailRow, error) {
	if !actor.Valid() {
		return database.OrderDetailRow{}, fmt.Errorf("actor %q: %w", actor.Role, ErrForbidden)
	}
	order, err := s.getOrderDetail(ctx, orderID)
	if err != nil {
		return database.OrderDetailRow{}, err
	}
	if err := canViewOrder(actor, order); err != nil {
		return database.OrderDetailRow{}, err
	}
	return order, nil
}

// CustomerOrderHistory lists every order of the calling customer, newest first.
func (s *OrderService) CustomerOrderHistory(ctx context.Context, actor Actor) ([]database.OrderDetailRow, error) {
	if err := requireRole(actor, enum.UserRoleCustomer); err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrdersByCustomer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list customer orders: %w", err)
	}
	return orders, nil
}

// CustomerSubscriptions lists the calling customer's multi-day plan orders
// with their progress.
func (s *OrderService) CustomerSubscriptions(ctx context.Context, actor Actor) ([]SubscriptionView, error) {
	if err := requireRole(actor, enum.UserRoleCustomer); err != nil {
		return nil, err
	}
	orders, err := s.store.ListSubscriptionsByCustomer(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	today := s.today()
	views := make([]SubscriptionView, 0, len(orders))
	for _, o := range orders {
		views = append(views, SubscriptionView{Order: o, Progress: Progress(o.Order, today)})
	}
	return views, nil
}

// Schedule expands an order into its delivery days and reports progress.
func (s *OrderService) Schedule(ctx context.Context, actor Actor, orderID uuid.UUID) (database.OrderDetailRow, []DeliveryDay, SubscriptionProgress, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return database.OrderDetailRow{}, nil, SubscriptionProgress{}, err
	}
	days := CollectDays(order.Order)
	return order, days, Progress(order.Order, s.today()), nil
}

// VendorOrders lists orders for the calling vendor's tiffins, optionally
// filtered by status.
func (s *OrderService) VendorOrders(ctx context.Context, actor Actor, status string) ([]database.OrderDetailRow, error) {
	if err := requireRole(actor, enum.UserRoleVendor); err != nil {
		return nil, err
	}
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrdersByVendor(ctx, database.ListOrdersByVendorParams{
		VendorID: actor.ID,
		Status:   filter,
	})
	if err != nil {
		return nil, fmt.Errorf("list vendor orders: %w", err)
	}
	return orders, nil
}

// OrdersByStatus lists orders across all vendors. An empty status lists
// every order. Admin only.
func (s *OrderService) OrdersByStatus(ctx context.Context, actor Actor, status string, limit, offset int32) ([]database.OrderDetailRow, error) {
	if err := requireRole(actor, enum.UserRoleAdmin); err != nil {
		return nil, err
	}
	filter, err := statusFilter(status)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrders(ctx, database.ListOrdersParams{
		Status: filter,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// AllOrders lists every order. Admin only.
func (s *OrderService) AllOrders(ctx context.Context, actor Actor, limit, offset int32) ([]database.OrderDetailRow, error) {
	return s.OrdersByStatus(ctx, actor, "", limit, offset)
}

// Dashboard returns platform-wide counts. Admin only.
func (s *OrderService) Dashboard(ctx context.Context, actor Actor) (database.GetDashboardCountsRow, error) {
	if err := requireRole(actor, enum.UserRoleAdmin); err != nil {
		return database.GetDashboardCountsRow{}, err
	}
	counts, err := s.store.GetDashboardCounts(ctx)
	if err != nil {
		return database.GetDashboardCountsRow{}, fmt.Errorf("dashboard counts: %w", err)
	}
	return counts, nil
}

// --- Helpers ---

func (s *OrderService) getOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetailRow, error) {
	order, err := s.store.GetOrderDetail(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderDetailRow{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return database.OrderDetailRow{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// publish sends a committed change to the notifier. Failures are logged and
// never undo the change.
func (s *OrderService) publish(ctx context.Context, eventType string, order database.OrderDetailRow, previous string) {
	event := notify.OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		VendorID:       order.VendorID,
		Status:         order.Status,
		PreviousStatus: previous,
		OccurredAt:     s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("ERROR: notify %s for order %s: %v", eventType, order.ID, err)
	}
}

func statusFilter(status string) (pgtype.Text, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return pgtype.Text{}, nil
	}
	if !isValidOrderStatus(status) {
		return pgtype.Text{}, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}
	return pgtype.Text{String: status, Valid: true}, nil
}
