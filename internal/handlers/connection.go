package handlers

import (
	"github.com/dimitrije/playdate-api/internal/middleware"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/dimitrije/playdate-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type ConnectionHandler struct {
	connections ConnectionServiceInterface
}

func NewConnectionHandler(connections ConnectionServiceInterface) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

func (h *ConnectionHandler) CreateRequest(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateConnectionRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RequesterChildID == uuid.Nil {
		c.BadRequest("requester_child_id is required")
		return
	}
	if req.TargetGuardianID == uuid.Nil {
		c.BadRequest("target_guardian_id is required")
		return
	}

	created, err := h.connections.CreateRequest(c.Request.Context(), guardianID, services.CreateRequestInput{
		RequesterChildID: req.RequesterChildID,
		TargetGuardianID: req.TargetGuardianID,
		TargetChildID:    req.TargetChildID,
		Message:          req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(201, created)
}

func (h *ConnectionHandler) Respond(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid connection request id")
		return
	}

	var req dto.RespondRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	decision, err := models.ParseDecision(req.Decision)
	if err != nil {
		c.BadRequest("decision must be accept or reject")
		return
	}

	result, err := h.connections.Respond(c.Request.Context(), guardianID, requestID, decision, req.ResponderChildID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := dto.RespondConnectionResponse{
		Request:    result.Request,
		Connection: result.Connection,
	}
	if result.Resolution != nil {
		response.PromotedInvitations = len(result.Resolution.Promoted)
		response.AutoNotifiedInvitations = len(result.Resolution.AutoNotified)
	}

	_ = c.JSON(200, response)
}

func (h *ConnectionHandler) ListIncoming(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	requests, err := h.connections.ListIncomingRequests(c.Request.Context(), guardianID)
	if err != nil {
		respondError(c, err)
		return
	}
	if requests == nil {
		requests = []models.ConnectionRequest{}
	}

	_ = c.JSON(200, requests)
}

func (h *ConnectionHandler) ListConnections(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	childID, err := uuid.Parse(c.QueryParam("child"))
	if err != nil {
		c.BadRequest("child query parameter is required")
		return
	}

	conns, err := h.connections.ListConnections(c.Request.Context(), guardianID, childID)
	if err != nil {
		respondError(c, err)
		return
	}
	if conns == nil {
		conns = []models.Connection{}
	}

	_ = c.JSON(200, conns)
}
