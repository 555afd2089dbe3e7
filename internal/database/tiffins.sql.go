package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createTiffin = `-- name: CreateTiffin :one
INSERT INTO tiffins (vendor_id, title, type, description, cost, image_ref)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, vendor_id, title, type, description, cost, image_ref, created_at, updated_at, deleted_at
`

type CreateTiffinParams struct {
	VendorID    uuid.UUID      `json:"vendor_id"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	Description pgtype.Text    `json:"description"`
	Cost        pgtype.Numeric `json:"cost"`
	ImageRef    pgtype.Text    `json:"image_ref"`
}

func (q *Queries) CreateTiffin(ctx context.Context, arg CreateTiffinParams) (Tiffin, error) {
	row := q.db.QueryRow(ctx, createTiffin,
		arg.VendorID,
		arg.Title,
		arg.Type,
		arg.Description,
		arg.Cost,
		arg.ImageRef,
	)
	var i Tiffin
	err := row.Scan(
		&i.ID,
		&i.VendorID,
		&i.Title,
		&i.Type,
		&i.Description,
		&i.Cost,
		&i.ImageRef,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const getTiffin = `-- name: GetTiffin :one
SELECT id, vendor_id, title, type, description, cost, image_ref, created_at, updated_at, deleted_at
FROM tiffins
WHERE id = $1 AND deleted_at IS NULL
`

func (q *Queries) GetTiffin(ctx context.Context, id uuid.UUID) (Tiffin, error) {
	row := q.db.QueryRow(ctx, getTiffin, id)
	var i Tiffin
	err := row.Scan(
		&i.ID,
		&i.VendorID,
		&i.Title,
		&i.Type,
		&i.Description,
		&i.Cost,
		&i.ImageRef,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const updateTiffin = `-- name: UpdateTiffin :one
UPDATE tiffins
SET title = $2, type = $3, description = $4, cost = $5, image_ref = $6, updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING id, vendor_id, title, type, description, cost, image_ref, created_at, updated_at, deleted_at
`

type UpdateTiffinParams struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Type        string         `json:"type"`
	Description pgtype.Text    `json:"description"`
	Cost        pgtype.Numeric `json:"cost"`
	ImageRef    pgtype.Text    `json:"image_ref"`
}

func (q *Queries) UpdateTiffin(ctx context.Context, arg UpdateTiffinParams) (Tiffin, error) {
	row := q.db.QueryRow(ctx, updateTiffin,
		arg.ID,
		arg.Title,
		arg.Type,
		arg.Description,
		arg.Cost,
		arg.ImageRef,
	)
	var i Tiffin
	err := row.Scan(
		&i.ID,
		&i.VendorID,
		&i.Title,
		&i.Type,
		&i.Description,
		&i.Cost,
		&i.ImageRef,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.DeletedAt,
	)
	return i, err
}

const softDeleteTiffin = `-- name: SoftDeleteTiffin :one
UPDATE tiffins
SET deleted_at = now(), updated_at = now()
WHERE id = $1 AND deleted_at IS NULL
RETURNING id
`

func (q *Queries) SoftDeleteTiffin(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, softDeleteTiffin, id)
	var deletedID uuid.UUID
	err := row.Scan(&deletedID)
	return deletedID, err
}

const listTiffins = `-- name: ListTiffins :many
SELECT id, vendor_id, title, type, description, cost, image_ref, created_at, updated_at, deleted_at
FROM tiffins
WHERE deleted_at IS NULL
  AND ($1::text IS NULL OR type = $1::text)
ORDER BY created_at DESC
`

func (q *Queries) ListTiffins(ctx context.Context, tiffinType pgtype.Text) ([]Tiffin, error) {
	rows, err := q.db.Query(ctx, listTiffins, tiffinType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTiffins(rows)
}

const listTiffinsByVendor = `-- name: ListTiffinsByVendor :many
SELECT id, vendor_id, title, type, description, cost, image_ref, created_at, updated_at, deleted_at
FROM tiffins
WHERE vendor_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
`

func (q *Queries) ListTiffinsByVendor(ctx context.Context, vendorID uuid.UUID) ([]Tiffin, error) {
	rows, err := q.db.Query(ctx, listTiffinsByVendor, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTiffins(rows)
}

type rowIterator interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanTiffins(rows rowIterator) ([]Tiffin, error) {
	items := []Tiffin{}
	for rows.Next() {
		var i Tiffin
		if err := rows.Scan(
			&i.ID,
			&i.VendorID,
			&i.Title,
			&i.Type,
			&i.Description,
			&i.Cost,
			&i.ImageRef,
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
