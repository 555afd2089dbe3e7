package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	HashedPassword string    `json:"hashed_password"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

type Tiffin struct {
	ID          uuid.UUID          `json:"id"`
	VendorID    uuid.UUID          `json:"vendor_id"`
	Title       string             `json:"title"`
	Type        string             `json:"type"`
	Description pgtype.Text        `json:"description"`
	Cost        pgtype.Numeric     `json:"cost"`
	ImageRef    pgtype.Text        `json:"image_ref"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	DeletedAt   pgtype.Timestamptz `json:"deleted_at"`
}

type SubscriptionPlan struct {
	ID           uuid.UUID          `json:"id"`
	TiffinID     uuid.UUID          `json:"tiffin_id"`
	PlanType     string             `json:"plan_type"`
	DurationDays int32              `json:"duration_days"`
	MealsPerDay  int32              `json:"meals_per_day"`
	Price        pgtype.Numeric     `json:"price"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	DeletedAt    pgtype.Timestamptz `json:"deleted_at"`
}

// Order carries a snapshot of the plan it was placed against. PlanType,
// DurationDays and MealsPerDay are copied at creation and never follow later
// plan edits.
type Order struct {
	ID           uuid.UUID      `json:"id"`
	CustomerID   uuid.UUID      `json:"customer_id"`
	TiffinID     uuid.UUID      `json:"tiffin_id"`
	PlanID       pgtype.UUID    `json:"plan_id"`
	PlanType     pgtype.Text    `json:"plan_type"`
	DurationDays int32          `json:"duration_days"`
	MealsPerDay  int32          `json:"meals_per_day"`
	Status       string         `json:"status"`
	StartDate    pgtype.Date    `json:"start_date"`
	EndDate      pgtype.Date    `json:"end_date"`
	Price        pgtype.Numeric `json:"price"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// OrderDetailRow is an order joined with the names shown on list and detail
// screens, plus the owning vendor used for access checks.
type OrderDetailRow struct {
	Order
	TiffinTitle  string    `json:"tiffin_title"`
	VendorID     uuid.UUID `json:"vendor_id"`
	VendorName   string    `json:"vendor_name"`
	CustomerName string    `json:"customer_name"`
}

type DeliveryPartner struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type DeliveryAssignment struct {
	ID                uuid.UUID          `json:"id"`
	OrderID           uuid.UUID          `json:"order_id"`
	DeliveryPartnerID uuid.UUID          `json:"delivery_partner_id"`
	AssignedBy        uuid.UUID          `json:"assigned_by"`
	AssignedAt        time.Time          `json:"assigned_at"`
	SupersededAt      pgtype.Timestamptz `json:"superseded_at"`
}

type VendorProfile struct {
	VendorID            uuid.UUID   `json:"vendor_id"`
	BusinessName        string      `json:"business_name"`
	BusinessDescription string      `json:"business_description"`
	ImageRef            pgtype.Text `json:"image_ref"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}
