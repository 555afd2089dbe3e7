package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createDeliveryPartner = `-- name: CreateDeliveryPartner :one
INSERT INTO delivery_partners (name, phone)
VALUES ($1, $2)
RETURNING id, name, phone, created_at
`

type CreateDeliveryPartnerParams struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (q *Queries) CreateDeliveryPartner(ctx context.Context, arg CreateDeliveryPartnerParams) (DeliveryPartner, error) {
	row := q.db.QueryRow(ctx, createDeliveryPartner, arg.Name, arg.Phone)
	var i DeliveryPartner
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.CreatedAt)
	return i, err
}

const getDeliveryPartner = `-- name: GetDeliveryPartner :one
SELECT id, name, phone, created_at FROM delivery_partners WHERE id = $1
`

func (q *Queries) GetDeliveryPartner(ctx context.Context, id uuid.UUID) (DeliveryPartner, error) {
	row := q.db.QueryRow(ctx, getDeliveryPartner, id)
	var i DeliveryPartner
	err := row.Scan(&i.ID, &i.Name, &i.Phone, &i.CreatedAt)
	return i, err
}

const listDeliveryPartners = `-- name: ListDeliveryPartners :many
SELECT id, name, phone, created_at FROM delivery_partners ORDER BY name
`

func (q *Queries) ListDeliveryPartners(ctx context.Context) ([]DeliveryPartner, error) {
	rows, err := q.db.Query(ctx, listDeliveryPartners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DeliveryPartner{}
	for rows.Next() {
		var i DeliveryPartner
		if err := rows.Scan(&i.ID, &i.Name, &i.Phone, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getActiveAssignment = `-- name: GetActiveAssignment :one
SELECT a.id, a.order_id, a.delivery_partner_id, a.assigned_by, a.assigned_at, a.superseded_at,
       p.name, p.phone
FROM delivery_assignments a
JOIN delivery_partners p ON p.id = a.delivery_partner_id
WHERE a.order_id = $1 AND a.superseded_at IS NULL
`

type GetActiveAssignmentRow struct {
	ID                uuid.UUID          `json:"id"`
	OrderID           uuid.UUID          `json:"order_id"`
	DeliveryPartnerID uuid.UUID          `json:"delivery_partner_id"`
	AssignedBy        uuid.UUID          `json:"assigned_by"`
	AssignedAt        time.Time          `json:"assigned_at"`
	SupersededAt      pgtype.Timestamptz `json:"superseded_at"`
	PartnerName       string             `json:"partner_name"`
	PartnerPhone      string             `json:"partner_phone"`
}

func (q *Queries) GetActiveAssignment(ctx context.Context, orderID uuid.UUID) (GetActiveAssignmentRow, error) {
	row := q.db.QueryRow(ctx, getActiveAssignment, orderID)
	var i GetActiveAssignmentRow
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.DeliveryPartnerID,
		&i.AssignedBy,
		&i.AssignedAt,
		&i.SupersededAt,
		&i.PartnerName,
		&i.PartnerPhone,
	)
	return i, err
}

const supersedeActiveAssignment = `-- name: SupersedeActiveAssignment :exec
UPDATE delivery_assignments
SET superseded_at = now()
WHERE order_id = $1 AND superseded_at IS NULL
`

func (q *Queries) SupersedeActiveAssignment(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, supersedeActiveAssignment, orderID)
	return err
}

const createAssignment = `-- name: CreateAssignment :one
INSERT INTO delivery_assignments (order_id, delivery_partner_id, assigned_by)
VALUES ($1, $2, $3)
RETURNING id, order_id, delivery_partner_id, assigned_by, assigned_at, superseded_at
`

type CreateAssignmentParams struct {
	OrderID           uuid.UUID `json:"order_id"`
	DeliveryPartnerID uuid.UUID `json:"delivery_partner_id"`
	AssignedBy        uuid.UUID `json:"assigned_by"`
}

func (q *Queries) CreateAssignment(ctx context.Context, arg CreateAssignmentParams) (DeliveryAssignment, error) {
	row := q.db.QueryRow(ctx, createAssignment, arg.OrderID, arg.DeliveryPartnerID, arg.AssignedBy)
	var i DeliveryAssignment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.DeliveryPartnerID,
		&i.AssignedBy,
		&i.AssignedAt,
		&i.SupersededAt,
	)
	return i, err
}

const listAssignmentsByOrder = `-- name: ListAssignmentsByOrder :many
SELECT id, order_id, delivery_partner_id, assigned_by, assigned_at, superseded_at
FROM delivery_assignments
WHERE order_id = $1
ORDER BY assigned_at DESC
`

func (q *Queries) ListAssignmentsByOrder(ctx context.Context, orderID uuid.UUID) ([]DeliveryAssignment, error) {
	rows, err := q.db.Query(ctx, listAssignmentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DeliveryAssignment{}
	for rows.Next() {
		var i DeliveryAssignment
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.DeliveryPartnerID,
			&i.AssignedBy,
			&i.AssignedAt,
			&i.SupersededAt,
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
