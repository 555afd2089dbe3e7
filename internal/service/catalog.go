package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
	"github.com/shopspring/decimal"
)

// CatalogStore defines the DB methods needed to manage tiffins and plans.
// Satisfied by *database.Queries.
type CatalogStore interface {
	CreateTiffin(ctx context.Context, arg database.CreateTiffinParams) (database.Tiffin, error)
	GetTiffin(ctx context.Context, id uuid.UUID) (database.Tiffin, error)
	UpdateTiffin(ctx context.Context, arg database.UpdateTiffinParams) (database.Tiffin, error)
	SoftDeleteTiffin(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListTiffins(ctx context.Context, tiffinType pgtype.Text) ([]database.Tiffin, error)
	ListTiffinsByVendor(ctx context.Context, vendorID uuid.UUID) ([]database.Tiffin, error)
	CreatePlan(ctx context.Context, arg database.CreatePlanParams) (database.SubscriptionPlan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (database.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, arg database.UpdatePlanParams) (database.SubscriptionPlan, error)
	SoftDeletePlan(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListPlansByTiffin(ctx context.Context, tiffinID uuid.UUID) ([]database.SubscriptionPlan, error)
}

// TiffinInput is the editable part of a tiffin. VendorID is only honoured
// when an admin creates a tiffin on a vendor's behalf.
type TiffinInput struct {
	VendorID    uuid.UUID
	Title       string
	Type        string
	Description string
	Cost        string
	ImageRef    string
}

// PlanInput is the editable part of a subscription plan.
type PlanInput struct {
	PlanType     string
	DurationDays int32
	MealsPerDay  int32
	Price        string
}

// CatalogService handles tiffin and subscription plan management.
type CatalogService struct {
	store CatalogStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// --- Tiffins ---

func (s *CatalogService) CreateTiffin(ctx context.Context, actor Actor, in TiffinInput) (database.Tiffin, error) {
	if err := requireRole(actor, enum.UserRoleVendor, enum.UserRoleAdmin); err != nil {
		return database.Tiffin{}, err
	}
	vendorID := actor.ID
	if actor.IsAdmin() {
		if in.VendorID == uuid.Nil {
			return database.Tiffin{}, fmt.Errorf("vendor_id is required: %w", ErrValidation)
		}
		vendorID = in.VendorID
	}

	cost, err := validateTiffinInput(&in)
	if err != nil {
		return database.Tiffin{}, err
	}

	t, err := s.store.CreateTiffin(ctx, database.CreateTiffinParams{
		VendorID:    vendorID,
		Title:       in.Title,
		Type:        in.Type,
		Description: optionalText(in.Description),
		Cost:        decimalToNumeric(cost),
		ImageRef:    optionalText(in.ImageRef),
	})
	if err != nil {
		return database.Tiffin{}, fmt.Errorf("create tiffin: %w", err)
	}
	return t, nil
}

func (s *CatalogService) UpdateTiffin(ctx context.Context, actor Actor, id uuid.UUID, in TiffinInput) (database.Tiffin, error) {
	current, err := s.ownedTiffin(ctx, actor, id)
	if err != nil {
		return database.Tiffin{}, err
	}

	cost, err := validateTiffinInput(&in)
	if err != nil {
		return database.Tiffin{}, err
	}

	t, err := s.store.UpdateTiffin(ctx, database.UpdateTiffinParams{
		ID:          current.ID,
		Title:       in.Title,
		Type:        in.Type,
		Description: optionalText(in.Description),
		Cost:        decimalToNumeric(cost),
		ImageRef:    optionalText(in.ImageRef),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tiffin{}, fmt.Errorf("tiffin %s: %w", id, ErrNotFound)
		}
		return database.Tiffin{}, fmt.Errorf("update tiffin: %w", err)
	}
	return t, nil
}

// DeleteTiffin soft-deletes a tiffin. Existing orders keep referencing it.
func (s *CatalogService) DeleteTiffin(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.ownedTiffin(ctx, actor, id); err != nil {
		return err
	}
	if _, err := s.store.SoftDeleteTiffin(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("tiffin %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete tiffin: %w", err)
	}
	return nil
}

func (s *CatalogService) GetTiffin(ctx context.Context, id uuid.UUID) (database.Tiffin, error) {
	t, err := s.store.GetTiffin(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Tiffin{}, fmt.Errorf("tiffin %s: %w", id, ErrNotFound)
		}
		return database.Tiffin{}, fmt.Errorf("get tiffin: %w", err)
	}
	return t, nil
}

// ListTiffins lists every live tiffin, optionally filtered by VEG/NONVEG.
func (s *CatalogService) ListTiffins(ctx context.Context, tiffinType string) ([]database.Tiffin, error) {
	var filter pgtype.Text
	if tiffinType != "" {
		tiffinType = strings.ToUpper(tiffinType)
		if !isValidTiffinType(tiffinType) {
			return nil, fmt.Errorf("type must be VEG or NONVEG: %w", ErrValidation)
		}
		filter = pgtype.Text{String: tiffinType, Valid: true}
	}
	tiffins, err := s.store.ListTiffins(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tiffins: %w", err)
	}
	return tiffins, nil
}

func (s *CatalogService) ListVendorTiffins(ctx context.Context, actor Actor) ([]database.Tiffin, error) {
	if err := requireRole(actor, enum.UserRoleVendor); err != nil {
		return nil, err
	}
	tiffins, err := s.store.ListTiffinsByVendor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list vendor tiffins: %w", err)
	}
	return tiffins, nil
}

// --- Plans ---

func (s *CatalogService) CreatePlan(ctx context.Context, actor Actor, tiffinID uuid.UUID, in PlanInput) (database.SubscriptionPlan, error) {
	if _, err := s.ownedTiffin(ctx, actor, tiffinID); err != nil {
		return database.SubscriptionPlan{}, err
	}
	price, err := validatePlanInput(&in)
	if err != nil {
		return database.SubscriptionPlan{}, err
	}

	p, err := s.store.CreatePlan(ctx, database.CreatePlanParams{
		TiffinID:     tiffinID,
		PlanType:     in.PlanType,
		DurationDays: in.DurationDays,
		MealsPerDay:  in.MealsPerDay,
		Price:        decimalToNumeric(price),
	})
	if err != nil {
		return database.SubscriptionPlan{}, fmt.Errorf("create plan: %w", err)
	}
	return p, nil
}

// UpdatePlan edits a plan. Orders already placed keep the price and duration
// they were created with.
func (s *CatalogService) UpdatePlan(ctx context.Context, actor Actor, planID uuid.UUID, in PlanInput) (database.SubscriptionPlan, error) {
	plan, err := s.ownedPlan(ctx, actor, planID)
	if err != nil {
		return database.SubscriptionPlan{}, err
	}
	price, err := validatePlanInput(&in)
	if err != nil {
		return database.SubscriptionPlan{}, err
	}

	p, err := s.store.UpdatePlan(ctx, database.UpdatePlanParams{
		ID:           plan.ID,
		PlanType:     in.PlanType,
		DurationDays: in.DurationDays,
		MealsPerDay:  in.MealsPerDay,
		Price:        decimalToNumeric(price),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.SubscriptionPlan{}, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
		}
		return database.SubscriptionPlan{}, fmt.Errorf("update plan: %w", err)
	}
	return p, nil
}

func (s *CatalogService) DeletePlan(ctx context.Context, actor Actor, planID uuid.UUID) error {
	if _, err := s.ownedPlan(ctx, actor, planID); err != nil {
		return err
	}
	if _, err := s.store.SoftDeletePlan(ctx, planID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("plan %s: %w", planID, ErrNotFound)
		}
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

func (s *CatalogService) ListPlans(ctx context.Context, tiffinID uuid.UUID) ([]database.SubscriptionPlan, error) {
	if _, err := s.GetTiffin(ctx, tiffinID); err != nil {
		return nil, err
	}
	plans, err := s.store.ListPlansByTiffin(ctx, tiffinID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// --- Helpers ---

func (s *CatalogService) ownedTiffin(ctx context.Context, actor Actor, id uuid.UUID) (database.Tiffin, error) {
	if err := requireRole(actor, enum.UserRoleVendor, enum.UserRoleAdmin); err != nil {
		return database.Tiffin{}, err
	}
	t, err := s.GetTiffin(ctx, id)
	if err != nil {
		return database.Tiffin{}, err
	}
	if err := canManageTiffin(actor, t); err != nil {
		return database.Tiffin{}, err
	}
	return t, nil
}

func (s *CatalogService) ownedPlan(ctx context.Context, actor Actor, planID uuid.UUID) (database.SubscriptionPlan, error) {
	if err := requireRole(actor, enum.UserRoleVendor, enum.UserRoleAdmin); err != nil {
		return database.SubscriptionPlan{}, err
	}
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.SubscriptionPlan{}, fmt.Errorf("plan %s: %w", planID, ErrNotFound)
		}
		return database.SubscriptionPlan{}, fmt.Errorf("get plan: %w", err)
	}
	if _, err := s.ownedTiffin(ctx, actor, plan.TiffinID); err != nil {
		return database.SubscriptionPlan{}, err
	}
	return plan, nil
}

// maxPlanDurationDays bounds CUSTOM plans to ten years. A schedule read
// materializes one entry per day.
const maxPlanDurationDays = 3650

// parseAmount accepts a non-negative amount with at most two decimal places.
func parseAmount(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must be a number >= 0: %w", field, ErrInvalidInput)
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, fmt.Errorf("%s %s has more than two decimal places: %w", field, raw, ErrInvalidInput)
	}
	return d, nil
}

func validateTiffinInput(in *TiffinInput) (decimal.Decimal, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.ToUpper(strings.TrimSpace(in.Type))
	if in.Title == "" {
		return decimal.Zero, fmt.Errorf("title is required: %w", ErrValidation)
	}
	if !isValidTiffinType(in.Type) {
		return decimal.Zero, fmt.Errorf("type must be VEG or NONVEG: %w", ErrValidation)
	}
	if in.Cost == "" {
		return decimal.Zero, fmt.Errorf("cost is required: %w", ErrValidation)
	}
	return parseAmount("cost", in.Cost)
}

// validatePlanInput enforces positive duration and meal counts, a
// non-negative price, and canonical durations for the standard plan types.
func validatePlanInput(in *PlanInput) (decimal.Decimal, error) {
	in.PlanType = strings.ToUpper(strings.TrimSpace(in.PlanType))
	if in.PlanType == "" {
		return decimal.Zero, fmt.Errorf("plan_type is required: %w", ErrValidation)
	}
	canonical, standard := enum.PlanDurations[in.PlanType]
	if !standard && in.PlanType != enum.PlanTypeCustom {
		return decimal.Zero, fmt.Errorf("unknown plan_type %q: %w", in.PlanType, ErrValidation)
	}
	if in.Price == "" {
		return decimal.Zero, fmt.Errorf("price is required: %w", ErrValidation)
	}
	price, err := parseAmount("price", in.Price)
	if err != nil {
		return decimal.Zero, err
	}
	if in.DurationDays <= 0 {
		return decimal.Zero, fmt.Errorf("duration_days must be > 0: %w", ErrInvalidInput)
	}
	if in.DurationDays > maxPlanDurationDays {
		return decimal.Zero, fmt.Errorf("duration_days must be at most %d: %w", maxPlanDurationDays, ErrInvalidInput)
	}
	if in.MealsPerDay <= 0 {
		return decimal.Zero, fmt.Errorf("meals_per_day must be > 0: %w", ErrInvalidInput)
	}
	if standard && in.DurationDays != canonical {
		return decimal.Zero, fmt.Errorf("%s plans last %d days, got %d: %w",
			in.PlanType, canonical, in.DurationDays, ErrInvalidInput)
	}
	return price, nil
}

func isValidTiffinType(s string) bool {
	switch s {
	case enum.TiffinTypeVeg, enum.TiffinTypeNonVeg:
		return true
	}
	return false
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
