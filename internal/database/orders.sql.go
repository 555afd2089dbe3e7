package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (customer_id, tiffin_id, plan_id, plan_type, duration_days, meals_per_day, status, start_date, end_date, price)
VALUES ($1, $2, $3, $4, $5, $6, 'PENDING', $7, $8, $9)
RETURNING id, customer_id, tiffin_id, plan_id, plan_type, duration_days, meals_per_day, status, start_date, end_date, price, created_at, updated_at
`

type CreateOrderParams struct {
	CustomerID   uuid.UUID      `json:"customer_id"`
	TiffinID     uuid.UUID      `json:"tiffin_id"`
	PlanID       pgtype.UUID    `json:"plan_id"`
	PlanType     pgtype.Text    `json:"plan_type"`
	DurationDays int32          `json:"duration_days"`
	MealsPerDay  int32          `json:"meals_per_day"`
	StartDate    pgtype.Date    `json:"start_date"`
	EndDate      pgtype.Date    `json:"end_date"`
	Price        pgtype.Numeric `json:"price"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.CustomerID,
		arg.TiffinID,
		arg.PlanID,
		arg.PlanType,
		arg.DurationDays,
		arg.MealsPerDay,
		arg.StartDate,
		arg.EndDate,
		arg.Price,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.TiffinID,
		&i.PlanID,
		&i.PlanType,
		&i.DurationDays,
		&i.MealsPerDay,
		&i.Status,
		&i.StartDate,
		&i.EndDate,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const orderDetailColumns = `o.id, o.customer_id, o.tiffin_id, o.plan_id, o.plan_type, o.duration_days, o.meals_per_day,
       o.status, o.start_date, o.end_date, o.price, o.created_at, o.updated_at,
       t.title, t.vendor_id, v.name, c.name
FROM orders o
JOIN tiffins t ON t.id = o.tiffin_id
JOIN users v ON v.id = t.vendor_id
JOIN users c ON c.id = o.customer_id
`

const getOrderDetail = `-- name: GetOrderDetail :one
SELECT ` + orderDetailColumns + `WHERE o.id = $1
`

func (q *Queries) GetOrderDetail(ctx context.Context, id uuid.UUID) (OrderDetailRow, error) {
	row := q.db.QueryRow(ctx, getOrderDetail, id)
	var i OrderDetailRow
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.TiffinID,
		&i.PlanID,
		&i.PlanType,
		&i.DurationDays,
		&i.MealsPerDay,
		&i.Status,
		&i.StartDate,
		&i.EndDate,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.TiffinTitle,
		&i.VendorID,
		&i.VendorName,
		&i.CustomerName,
	)
	return i, err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING id, customer_id, tiffin_id, plan_id, plan_type, duration_days, meals_per_day, status, start_date, end_date, price, created_at, updated_at
`

// UpdateOrderStatusParams describes a compare-and-set: the row is only
// updated while its status is still ExpectedStatus.
type UpdateOrderStatusParams struct {
	ID             uuid.UUID `json:"id"`
	Status         string    `json:"status"`
	ExpectedStatus string    `json:"expected_status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.ExpectedStatus)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.TiffinID,
		&i.PlanID,
		&i.PlanType,
		&i.DurationDays,
		&i.MealsPerDay,
		&i.Status,
		&i.StartDate,
		&i.EndDate,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const lockOrderStatus = `-- name: LockOrderStatus :one
SELECT status FROM orders WHERE id = $1 FOR UPDATE
`

func (q *Queries) LockOrderStatus(ctx context.Context, id uuid.UUID) (string, error) {
	row := q.db.QueryRow(ctx, lockOrderStatus, id)
	var status string
	err := row.Scan(&status)
	return status, err
}

const listOrdersByCustomer = `-- name: ListOrdersByCustomer :many
SELECT ` + orderDetailColumns + `WHERE o.customer_id = $1
ORDER BY o.created_at DESC
`

func (q *Queries) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID) ([]OrderDetailRow, error) {
	rows, err := q.db.Query(ctx, listOrdersByCustomer, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderDetails(rows)
}

const listSubscriptionsByCustomer = `-- name: ListSubscriptionsByCustomer :many
SELECT ` + orderDetailColumns + `WHERE o.customer_id = $1 AND o.plan_id IS NOT NULL AND o.duration_days > 1
ORDER BY o.start_date DESC
`

func (q *Queries) ListSubscriptionsByCustomer(ctx context.Context, customerID uuid.UUID) ([]OrderDetailRow, error) {
	rows, err := q.db.Query(ctx, listSubscriptionsByCustomer, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderDetails(rows)
}

const listOrdersByVendor = `-- name: ListOrdersByVendor :many
SELECT ` + orderDetailColumns + `WHERE t.vendor_id = $1
  AND ($2::text IS NULL OR o.status = $2::text)
ORDER BY o.created_at DESC
`

type ListOrdersByVendorParams struct {
	VendorID uuid.UUID   `json:"vendor_id"`
	Status   pgtype.Text `json:"status"`
}

func (q *Queries) ListOrdersByVendor(ctx context.Context, arg ListOrdersByVendorParams) ([]OrderDetailRow, error) {
	rows, err := q.db.Query(ctx, listOrdersByVendor, arg.VendorID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderDetails(rows)
}

const listOrders = `-- name: ListOrders :many
SELECT ` + orderDetailColumns + `WHERE ($1::text IS NULL OR o.status = $1::text)
ORDER BY o.created_at DESC
LIMIT $2 OFFSET $3
`

type ListOrdersParams struct {
	Status pgtype.Text `json:"status"`
	Limit  int32       `json:"limit"`
	Offset int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]OrderDetailRow, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderDetails(rows)
}

const getDashboardCounts = `-- name: GetDashboardCounts :one
SELECT
    (SELECT count(*) FROM tiffins WHERE deleted_at IS NULL)        AS total_tiffins,
    count(*) FILTER (WHERE o.status = 'PENDING')                   AS pending_orders,
    count(*) FILTER (WHERE o.status = 'APPROVED')                  AS approved_orders,
    count(*) FILTER (WHERE o.status = 'DELIVERED')                 AS delivered_orders,
    count(*) FILTER (WHERE o.status = 'CANCELLED')                 AS cancelled_orders,
    count(*)                                                       AS all_orders,
    (SELECT count(*) FROM users WHERE role <> 'ADMIN')             AS total_users
FROM orders o
`

type GetDashboardCountsRow struct {
	TotalTiffins    int64 `json:"total_tiffins"`
	PendingOrders   int64 `json:"pending_orders"`
	ApprovedOrders  int64 `json:"approved_orders"`
	DeliveredOrders int64 `json:"delivered_orders"`
	CancelledOrders int64 `json:"cancelled_orders"`
	AllOrders       int64 `json:"all_orders"`
	TotalUsers      int64 `json:"total_users"`
}

func (q *Queries) GetDashboardCounts(ctx context.Context) (GetDashboardCountsRow, error) {
	row := q.db.QueryRow(ctx, getDashboardCounts)
	var i GetDashboardCountsRow
	err := row.Scan(
		&i.TotalTiffins,
		&i.PendingOrders,
		&i.ApprovedOrders,
		&i.DeliveredOrders,
		&i.CancelledOrders,
		&i.AllOrders,
		&i.TotalUsers,
	)
	return i, err
}

func scanOrderDetails(rows rowIterator) ([]OrderDetailRow, error) {
	items := []OrderDetailRow{}
	for rows.Next() {
		var i OrderDetailRow
		if err := rows.Scan(
			&i.ID,
			&i.CustomerID,
			&i.TiffinID,
			&i.PlanID,
			&i.PlanType,
			&i.DurationDays,
			&i.MealsPerDay,
			&i.Status,
			&i.StartDate,
			&i.EndDate,
			&i.Price,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.TiffinTitle,
			&i.VendorID,
			&i.VendorName,
			&i.CustomerName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
