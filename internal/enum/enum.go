package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "PENDING"
	OrderStatusApproved  = "APPROVED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleCustomer = "CUSTOMER"
	UserRoleVendor   = "VENDOR"
	UserRoleAdmin    = "ADMIN"
)

const (
	TiffinTypeVeg    = "VEG"
	TiffinTypeNonVeg = "NONVEG"
)

const (
	PlanTypeDaily   = "DAILY"
	PlanTypeWeekly  = "WEEKLY"
	PlanTypeMonthly = "MONTHLY"
	PlanTypeYearly  = "YEARLY"
	PlanTypeCustom  = "CUSTOM"
)

// PlanDurations holds the canonical duration_days of each standard plan type.
// CUSTOM plans are free to choose their own duration.
var PlanDurations = map[string]int32{
	PlanTypeDaily:   1,
	PlanTypeWeekly:  7,
	PlanTypeMonthly: 30,
	PlanTypeYearly:  365,
}

// ── Group B: Derived labels (no DB constraint) ──

const (
	SubscriptionPhaseUpcoming  = "UPCOMING"
	SubscriptionPhaseActive    = "ACTIVE"
	SubscriptionPhaseCompleted = "COMPLETED"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventDeliveryAssigned   = "order.delivery_assigned"
)
