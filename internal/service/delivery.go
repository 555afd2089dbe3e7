package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
	"github.com/mealmasters/api/internal/notify"
)

const activeAssignmentIndex = "delivery_assignments_one_active"

// DeliveryStore defines the DB methods needed by the delivery ledger.
// Satisfied by *database.Queries (and its WithTx variant).
type DeliveryStore interface {
	GetOrderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetailRow, error)
	LockOrderStatus(ctx context.Context, id uuid.UUID) (string, error)
	GetDeliveryPartner(ctx context.Context, id uuid.UUID) (database.DeliveryPartner, error)
	ListDeliveryPartners(ctx context.Context) ([]database.DeliveryPartner, error)
	CreateDeliveryPartner(ctx context.Context, arg database.CreateDeliveryPartnerParams) (database.DeliveryPartner, error)
	GetActiveAssignment(ctx context.Context, orderID uuid.UUID) (database.GetActiveAssignmentRow, error)
	SupersedeActiveAssignment(ctx context.Context, orderID uuid.UUID) error
	CreateAssignment(ctx context.Context, arg database.CreateAssignmentParams) (database.DeliveryAssignment, error)
	ListAssignmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.DeliveryAssignment, error)
}

// NewDeliveryStore creates a DeliveryStore from a DBTX (pool or tx).
type NewDeliveryStore func(db database.DBTX) DeliveryStore

// AssignResult is the active assignment after an Assign call. Created is
// false when the call repeated the current assignment.
type AssignResult struct {
	Assignment database.DeliveryAssignment
	Partner    database.DeliveryPartner
	Created    bool
}

// DeliveryService maintains the delivery assignment ledger. An order has at
// most one active assignment; reassignment supersedes the previous record.
type DeliveryService struct {
	pool     TxBeginner
	store    DeliveryStore
	newStore NewDeliveryStore
	notifier notify.Notifier
}

// NewDeliveryService creates a new DeliveryService. store serves reads
// outside transactions; newStore binds a store to a transaction.
func NewDeliveryService(pool TxBeginner, store DeliveryStore, newStore NewDeliveryStore, notifier notify.Notifier) *DeliveryService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &DeliveryService{pool: pool, store: store, newStore: newStore, notifier: notifier}
}

// Assign records partnerID as the active delivery partner of an order.
// Assigning the partner that is already active returns the existing record.
func (s *DeliveryService) Assign(ctx context.Context, actor Actor, orderID, partnerID uuid.UUID) (AssignResult, error) {
	if !actor.Valid() {
		return AssignResult{}, fmt.Errorf("actor %q: %w", actor.Role, ErrForbidden)
	}
	order, err := s.orderDetail(ctx, orderID)
	if err != nil {
		return AssignResult{}, err
	}
	if err := canManageOrder(actor, order); err != nil {
		return AssignResult{}, err
	}
	if !isAssignable(order.Status) {
		return AssignResult{}, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, ErrOrderNotApprovableForDelivery)
	}

	partner, err := s.store.GetDeliveryPartner(ctx, partnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AssignResult{}, fmt.Errorf("partner %s: %w", partnerID, ErrPartnerNotFound)
		}
		return AssignResult{}, fmt.Errorf("get delivery partner: %w", err)
	}

	result, err := s.assignTx(ctx, actor, order.ID, partner)
	if err != nil {
		return AssignResult{}, err
	}

	if result.Created {
		event := notify.OrderEvent{
			Type:              enum.EventDeliveryAssigned,
			OrderID:           order.ID,
			CustomerID:        order.CustomerID,
			VendorID:          order.VendorID,
			Status:            order.Status,
			DeliveryPartnerID: &partner.ID,
			OccurredAt:        result.Assignment.AssignedAt.UTC(),
		}
		if err := s.notifier.Notify(ctx, event); err != nil {
			log.Printf("ERROR: notify %s for order %s: %v", event.Type, order.ID, err)
		}
	}
	return result, nil
}

// assignTx locks the order row, re-checks its status and swaps the active
// assignment in one transaction.
func (s *DeliveryService) assignTx(ctx context.Context, actor Actor, orderID uuid.UUID, partner database.DeliveryPartner) (AssignResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return AssignResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	status, err := store.LockOrderStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AssignResult{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return AssignResult{}, fmt.Errorf("lock order: %w", err)
	}
	if !isAssignable(status) {
		return AssignResult{}, fmt.Errorf("order %s is %s: %w", orderID, status, ErrOrderNotApprovableForDelivery)
	}

	active, err := store.GetActiveAssignment(ctx, orderID)
	switch {
	case err == nil:
		if active.DeliveryPartnerID == partner.ID {
			return AssignResult{Assignment: activeToAssignment(active), Partner: partner}, nil
		}
		if err := store.SupersedeActiveAssignment(ctx, orderID); err != nil {
			return AssignResult{}, fmt.Errorf("supersede assignment: %w", err)
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return AssignResult{}, fmt.Errorf("get active assignment: %w", err)
	}

	assignment, err := store.CreateAssignment(ctx, database.CreateAssignmentParams{
		OrderID:           orderID,
		DeliveryPartnerID: partner.ID,
		AssignedBy:        actor.ID,
	})
	if err != nil {
		if isActiveAssignmentConflict(err) {
			return AssignResult{}, fmt.Errorf("order %s was reassigned concurrently: %w", orderID, ErrStaleState)
		}
		return AssignResult{}, fmt.Errorf("create assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isActiveAssignmentConflict(err) {
			return AssignResult{}, fmt.Errorf("order %s was reassigned concurrently: %w", orderID, ErrStaleState)
		}
		return AssignResult{}, fmt.Errorf("commit tx: %w", err)
	}

	return AssignResult{Assignment: assignment, Partner: partner, Created: true}, nil
}

// ActiveAssignment returns the current delivery partner of an order.
func (s *DeliveryService) ActiveAssignment(ctx context.Context, actor Actor, orderID uuid.UUID) (database.GetActiveAssignmentRow, error) {
	if !actor.Valid() {
		return database.GetActiveAssignmentRow{}, fmt.Errorf("actor %q: %w", actor.Role, ErrForbidden)
	}
	order, err := s.orderDetail(ctx, orderID)
	if err != nil {
		return database.GetActiveAssignmentRow{}, err
	}
	if err := canViewOrder(actor, order); err != nil {
		return database.GetActiveAssignmentRow{}, err
	}
	active, err := s.store.GetActiveAssignment(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.GetActiveAssignmentRow{}, fmt.Errorf("no delivery partner assigned to order %s: %w", orderID, ErrNotFound)
		}
		return database.GetActiveAssignmentRow{}, fmt.Errorf("get active assignment: %w", err)
	}
	return active, nil
}

// AssignmentHistory returns every assignment of an order, newest first.
func (s *DeliveryService) AssignmentHistory(ctx context.Context, actor Actor, orderID uuid.UUID) ([]database.DeliveryAssignment, error) {
	if !actor.Valid() {
		return nil, fmt.Errorf("actor %q: %w", actor.Role, ErrForbidden)
	}
	order, err := s.orderDetail(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := canManageOrder(actor, order); err != nil {
		return nil, err
	}
	history, err := s.store.ListAssignmentsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return history, nil
}

// ListPartners lists delivery partners for vendors and admins.
func (s *DeliveryService) ListPartners(ctx context.Context, actor Actor) ([]database.DeliveryPartner, error) {
	if err := requireRole(actor, enum.UserRoleVendor, enum.UserRoleAdmin); err != nil {
		return nil, err
	}
	partners, err := s.store.ListDeliveryPartners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list delivery partners: %w", err)
	}
	return partners, nil
}

// CreatePartner registers a delivery partner. Admin only.
func (s *DeliveryService) CreatePartner(ctx context.Context, actor Actor, name, phone string) (database.DeliveryPartner, error) {
	if err := requireRole(actor, enum.UserRoleAdmin); err != nil {
		return database.DeliveryPartner{}, err
	}
	name, phone = strings.TrimSpace(name), strings.TrimSpace(phone)
	if name == "" {
		return database.DeliveryPartner{}, fmt.Errorf("name is required: %w", ErrValidation)
	}
	if phone == "" {
		return database.DeliveryPartner{}, fmt.Errorf("phone is required: %w", ErrValidation)
	}
	p, err := s.store.CreateDeliveryPartner(ctx, database.CreateDeliveryPartnerParams{Name: name, Phone: phone})
	if err != nil {
		return database.DeliveryPartner{}, fmt.Errorf("create delivery partner: %w", err)
	}
	return p, nil
}

// --- Helpers ---

func (s *DeliveryService) orderDetail(ctx context.Context, id uuid.UUID) (database.OrderDetailRow, error) {
	order, err := s.store.GetOrderDetail(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.OrderDetailRow{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return database.OrderDetailRow{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func isAssignable(status string) bool {
	return status == enum.OrderStatusPending || status == enum.OrderStatusApproved
}

// isActiveAssignmentConflict checks for a unique violation (23505) on the
// one-active-assignment-per-order index.
func isActiveAssignmentConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == activeAssignmentIndex
	}
	return false
}

func activeToAssignment(r database.GetActiveAssignmentRow) database.DeliveryAssignment {
	return database.DeliveryAssignment{
		ID:                r.ID,
		OrderID:           r.OrderID,
		DeliveryPartnerID: r.DeliveryPartnerID,
		AssignedBy:        r.AssignedBy,
		AssignedAt:        r.AssignedAt,
		SupersededAt:      r.SupersededAt,
	}
}
