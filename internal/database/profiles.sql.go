package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getVendorProfile = `-- name: GetVendorProfile :one
SELECT vendor_id, business_name, business_description, image_ref, created_at, updated_at
FROM vendor_profiles
WHERE vendor_id = $1
`

func (q *Queries) GetVendorProfile(ctx context.Context, vendorID uuid.UUID) (VendorProfile, error) {
	row := q.db.QueryRow(ctx, getVendorProfile, vendorID)
	var i VendorProfile
	err := row.Scan(
		&i.VendorID,
		&i.BusinessName,
		&i.BusinessDescription,
		&i.ImageRef,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertVendorProfile = `-- name: UpsertVendorProfile :one
INSERT INTO vendor_profiles (vendor_id, business_name, business_description, image_ref)
VALUES ($1, $2, $3, $4)
ON CONFLICT (vendor_id) DO UPDATE
SET business_name = EXCLUDED.business_name,
    business_description = EXCLUDED.business_description,
    image_ref = EXCLUDED.image_ref,
    updated_at = now()
RETURNING vendor_id, business_name, business_description, image_ref, created_at, updated_at,
    (xmax = 0) AS inserted
`

type UpsertVendorProfileParams struct {
	VendorID            uuid.UUID   `json:"vendor_id"`
	BusinessName        string      `json:"business_name"`
	BusinessDescription string      `json:"business_description"`
	ImageRef            pgtype.Text `json:"image_ref"`
}

type UpsertVendorProfileRow struct {
	VendorProfile
	Inserted bool `json:"inserted"`
}

func (q *Queries) UpsertVendorProfile(ctx context.Context, arg UpsertVendorProfileParams) (UpsertVendorProfileRow, error) {
	row := q.db.QueryRow(ctx, upsertVendorProfile,
		arg.VendorID,
		arg.BusinessName,
		arg.BusinessDescription,
		arg.ImageRef,
	)
	var i UpsertVendorProfileRow
	err := row.Scan(
		&i.VendorID,
		&i.BusinessName,
		&i.BusinessDescription,
		&i.ImageRef,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.Inserted,
	)
	return i, err
}
