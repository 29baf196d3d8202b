package handlers

import (
	"github.com/dimitrije/playdate-api/internal/middleware"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/dimitrije/playdate-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type InvitationHandler struct {
	invitations InvitationServiceInterface
}

func NewInvitationHandler(invitations InvitationServiceInterface) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

func pendingResponse(p models.PendingInvitation) dto.PendingInvitationResponse {
	resp := dto.PendingInvitationResponse{
		ID:                  p.ID,
		ActivityID:          p.ActivityID,
		TargetKind:          string(p.Target.Kind),
		InvitedChildID:      p.Target.ChildID,
		CreatedByGuardianID: p.CreatedByGuardianID,
		Message:             p.Message,
		CreatedAt:           p.CreatedAt,
	}
	switch p.Target.Kind {
	case models.PendingTargetGuardian:
		id := p.Target.GuardianID
		resp.TargetGuardianID = &id
	case models.PendingTargetConnectionRequest:
		id := p.Target.RequestID
		resp.ConnectionRequestID = &id
	}
	return resp
}

func toPendingTarget(req dto.PendingTargetRequest) (models.PendingTarget, bool) {
	switch models.PendingTargetKind(req.Kind) {
	case models.PendingTargetGuardian:
		if req.GuardianID == nil {
			return models.PendingTarget{}, false
		}
		return models.ByGuardian(*req.GuardianID, req.ChildID), true
	case models.PendingTargetConnectionRequest:
		if req.ConnectionRequestID == nil {
			return models.PendingTarget{}, false
		}
		// A missing child is rejected by the ledger with its own error code.
		return models.PendingTarget{
			Kind:      models.PendingTargetConnectionRequest,
			RequestID: *req.ConnectionRequestID,
			ChildID:   req.ChildID,
		}, true
	}
	return models.PendingTarget{}, false
}

func (h *InvitationHandler) Invite(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid activity id")
		return
	}

	var req dto.InviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.InvitedGuardianID == uuid.Nil {
		c.BadRequest("invited_guardian_id is required")
		return
	}

	inv, err := h.invitations.Invite(c.Request.Context(), guardianID, activityID, services.InviteInput{
		InvitedGuardianID: req.InvitedGuardianID,
		InvitedChildID:    req.InvitedChildID,
		Message:           req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(201, inv)
}

func (h *InvitationHandler) CreatePending(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid activity id")
		return
	}

	var req dto.CreatePendingRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if len(req.Targets) == 0 {
		c.BadRequest("pending_targets is required")
		return
	}

	targets := make([]models.PendingTarget, len(req.Targets))
	for i, t := range req.Targets {
		target, ok := toPendingTarget(t)
		if !ok {
			c.BadRequest("each pending target needs a kind and its id")
			return
		}
		targets[i] = target
	}

	pendings, err := h.invitations.CreatePending(c.Request.Context(), guardianID, activityID, targets, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]dto.PendingInvitationResponse, len(pendings))
	for i, p := range pendings {
		response[i] = pendingResponse(p)
	}

	_ = c.JSON(201, response)
}

func (h *InvitationHandler) Participants(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid activity id")
		return
	}

	participants, err := h.invitations.ListForActivity(c.Request.Context(), guardianID, activityID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := dto.ParticipantsResponse{
		Host:               participants.Host,
		Invitations:        participants.Invitations,
		PendingInvitations: make([]dto.PendingInvitationResponse, len(participants.PendingInvitations)),
	}
	for i, p := range participants.PendingInvitations {
		response.PendingInvitations[i] = pendingResponse(p)
	}

	_ = c.JSON(200, response)
}

func (h *InvitationHandler) Respond(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid invitation id")
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

	inv, err := h.invitations.Respond(c.Request.Context(), guardianID, invitationID, decision)
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(200, inv)
}

func (h *InvitationHandler) MarkViewed(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	invitationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid invitation id")
		return
	}

	inv, err := h.invitations.MarkViewed(c.Request.Context(), guardianID, invitationID)
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(200, inv)
}

func (h *InvitationHandler) List(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	invitations, err := h.invitations.ListForGuardian(c.Request.Context(), guardianID)
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(200, invitations)
}
