package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mealmasters/api/internal/ws"
)

// Broadcaster is the part of *ws.Hub used for realtime delivery.
type Broadcaster interface {
	BroadcastToUsers(userIDs []uuid.UUID, admins bool, event ws.Event)
}

// HubNotifier pushes order events to the customer, the vendor and every
// connected admin over WebSocket.
type HubNotifier struct {
	hub Broadcaster
}

func NewHubNotifier(hub Broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Notify(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	n.hub.BroadcastToUsers([]uuid.UUID{event.CustomerID, event.VendorID}, true, ws.Event{
		Type:    event.Type,
		Payload: payload,
	})
	return nil
}
