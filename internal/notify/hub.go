package notify

import (
	"context"
	"fmt"

	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/dimitrije/playdate-api/internal/sse"
)

// Hub forwards notifications to the recipient's open event streams.
type Hub struct {
	hub *sse.Hub
}

func NewHub(hub *sse.Hub) *Hub {
	return &Hub{hub: hub}
}

func (h *Hub) Dispatch(_ context.Context, n models.Notification) error {
	if !h.hub.BroadcastToGuardian(n.RecipientGuardianID, sse.Event{Type: string(n.Kind), Data: n}) {
		return fmt.Errorf("event queue full, dropped %s", n.Kind)
	}
	return nil
}
