package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPlan = `-- name: CreatePlan :one
INSERT INTO subscription_plans (tiffin_id, plan_type, duration_days, meals_per_day, price)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, tiffin_id, plan_type, duration_days, meals_per_day, price, created_at, updated_at, deleted_at
`

type CreatePlanParams struct {
	TiffinID     uuid.UUID      `json:"tiffin_id"`
	PlanType     string         `json:"plan_type"`
	DurationDays int32          `json:"duration_days"`
	MealsPerDay  int32          `json:"meals_per_day"`
	Price        pgtype.Numeric `json:"price"`
}

func (q *Queries) CreatePlan(ctx context.Context, arg CreatePlanParams) (SubscriptionPlan, error) {
	row := q.db.QueryRow(ctx, createPlan,
		arg.TiffinID,
		arg.PlanType,
		arg.DurationDays,
		arg.MealsPerDay,
		arg.Price,
	)
	var i SubscriptionPlan
	err := row.Scan(
		&i.ID,
		&i.TiffinID,
		&i.PlanType,
		&i.DurationDays,
		&i.MealsPerDay,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const getPlan = `-- name: GetPlan :one
SELECT id, tiffin_id, plan_type, duration_days, meals_per_day, price, created_at, updated_at, deleted_at
FROM subscription_plans
WHERE id = $1 AND deleted_at IS NULL
`

func (q *Queries) GetPlan(ctx context.Context, id uuid.UUID) (SubscriptionPlan, error) {
	row := q.db.QueryRow(ctx, getPlan, id)
	var i SubscriptionPlan
	err := row.Scan(
		&i.ID,
		&i.TiffinID,
		&i.PlanType,
		&i.DurationDays,
		&i.MealsPerDay,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const updatePlan = `-- name: UpdatePlan :one
UPDATE subscription_plans
SET plan_type = $2, duration_days = $3, meals_per_day = $4, price = $5, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING id, tiffin_id, plan_type, duration_days, meals_per_day, price, created_at, updated_at, deleted_at
`

type UpdatePlanParams struct {
	ID           uuid.UUID      `json:"id"`
	PlanType     string         `json:"plan_type"`
	DurationDays int32          `json:"duration_days"`
	MealsPerDay  int32          `json:"meals_per_day"`
	Price        pgtype.Numeric `json:"price"`
}

func (q *Queries) UpdatePlan(ctx context.Context, arg UpdatePlanParams) (SubscriptionPlan, error) {
	row := q.db.QueryRow(ctx, updatePlan,
		arg.ID,
		arg.PlanType,
		arg.DurationDays,
		arg.MealsPerDay,
		arg.Price,
	)
	var i SubscriptionPlan
	err := row.Scan(
		&i.ID,
		&i.TiffinID,
		&i.PlanType,
		&i.DurationDays,
		&i.MealsPerDay,
		&i.Price,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const softDeletePlan = `-- name: SoftDeletePlan :one
UPDATE subscription_plans
SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING id
`

func (q *Queries) SoftDeletePlan(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeletePlan, id)
	var deletedID uuid.UUID
	err := row.Scan(&deletedID)
	return deletedID, err
}

const listPlansByTiffin = `-- name: ListPlansByTiffin :many
SELECT id, tiffin_id, plan_type, duration_days, meals_per_day, price, created_at, updated_at, deleted_at
FROM subscription_plans
WHERE tiffin_id = $1 AND deleted_at IS NULL
ORDER BY duration_days, created_at
`

func (q *Queries) ListPlansByTiffin(ctx context.Context, tiffinID uuid.UUID) ([]SubscriptionPlan, error) {
	rows, err := q.db.Query(ctx, listPlansByTiffin, tiffinID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SubscriptionPlan{}
	for rows.Next() {
		var i SubscriptionPlan
		if err := rows.Scan(
			&i.ID,
			&i.TiffinID,
			&i.PlanType,
			&i.DurationDays,
			&i.MealsPerDay,
			&i.Price,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.DeletedAt,
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
