// Package notify delivers order lifecycle events to realtime clients and to
// the external push notification pipeline.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OrderEvent describes a committed change to an order.
type OrderEvent struct {
	Type              string     `json:"type"`
	OrderID           uuid.UUID  `json:"order_id"`
	CustomerID        uuid.UUID  `json:"customer_id"`
	VendorID          uuid.UUID  `json:"vendor_id"`
	Status            string     `json:"status"`
	PreviousStatus    string     `json:"previous_status,omitempty"`
	DeliveryPartnerID *uuid.UUID `json:"delivery_partner_id,omitempty"`
	OccurredAt        time.Time  `json:"occurred_at"`
}

// Notifier receives order events after they are committed. Implementations
// must not block for long; callers treat failures as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, event OrderEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, OrderEvent) error { return nil }

// Fanout forwards each event to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event OrderEvent) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
