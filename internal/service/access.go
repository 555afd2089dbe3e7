package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mealmasters/api/internal/database"
	"github.com/mealmasters/api/internal/enum"
)

// Actor is the authenticated caller of an engine operation. It is built from
// the verified token claims and passed into every call.
type Actor struct {
	Role string
	ID   uuid.UUID
}

// Valid reports whether the actor carries a known role and a user ID.
func (a Actor) Valid() bool {
	if a.ID == uuid.Nil {
		return false
	}
	switch a.Role {
	case enum.UserRoleCustomer, enum.UserRoleVendor, enum.UserRoleAdmin:
		return true
	}
	return false
}

func (a Actor) IsAdmin() bool    { return a.Valid() && a.Role == enum.UserRoleAdmin }
func (a Actor) IsVendor() bool   { return a.Valid() && a.Role == enum.UserRoleVendor }
func (a Actor) IsCustomer() bool { return a.Valid() && a.Role == enum.UserRoleCustomer }

// requireRole fails closed: an invalid actor is forbidden even when roles is empty.
func requireRole(a Actor, roles ...string) error {
	if !a.Valid() {
		return fmt.Errorf("actor %q: %w", a.Role, ErrForbidden)
	}
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return fmt.Errorf("role %s: %w", a.Role, ErrForbidden)
}

// canManageTiffin allows the owning vendor and admins.
func canManageTiffin(a Actor, t database.Tiffin) error {
	if a.IsAdmin() {
		return nil
	}
	if a.IsVendor() && t.VendorID == a.ID {
		return nil
	}
	return fmt.Errorf("tiffin %s: %w", t.ID, ErrForbidden)
}

// canViewOrder allows the ordering customer, the vendor owning the tiffin and admins.
func canViewOrder(a Actor, o database.OrderDetailRow) error {
	switch {
	case a.IsAdmin():
		return nil
	case a.IsCustomer() && o.CustomerID == a.ID:
		return nil
	case a.IsVendor() && o.VendorID == a.ID:
		return nil
	}
	return fmt.Errorf("order %s: %w", o.ID, ErrForbidden)
}

// canManageOrder allows the vendor owning the tiffin and admins.
func canManageOrder(a Actor, o database.OrderDetailRow) error {
	if a.IsAdmin() || (a.IsVendor() && o.VendorID == a.ID) {
		return nil
	}
	return fmt.Errorf("order %s: %w", o.ID, ErrForbidden)
}
