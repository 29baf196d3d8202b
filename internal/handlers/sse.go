package handlers

import (
	"github.com/dimitrije/playdate-api/internal/middleware"
	"github.com/dimitrije/playdate-api/internal/sse"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type SSEHandler struct {
	hub *sse.Hub
}

func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// Connect streams the caller's notifications until the client goes away.
func (h *SSEHandler) Connect(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.New().String()
	client := &sse.Client{
		ID:         clientID,
		GuardianID: guardianID,
		Send:       make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": clientID,
	}, "system", ""); err != nil {
		return
	}

	done := c.Request.Context().Done()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
