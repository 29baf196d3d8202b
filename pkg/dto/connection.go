package dto

import (
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
)

type CreateConnectionRequest struct {
	RequesterChildID uuid.UUID  `json:"requester_child_id"`
	TargetGuardianID uuid.UUID  `json:"target_guardian_id"`
	TargetChildID    *uuid.UUID `json:"target_child_id,omitempty"`
	Message          *string    `json:"message,omitempty"`
}

type RespondRequest struct {
	Decision string `json:"decision"`
	// ResponderChildID picks the responding child when the request was
	// addressed to any child.
	ResponderChildID *uuid.UUID `json:"responder_child_id,omitempty"`
}

type RespondConnectionResponse struct {
	Request                 *models.ConnectionRequest `json:"request"`
	Connection              *models.Connection        `json:"connection,omitempty"`
	PromotedInvitations     int                       `json:"promoted_invitations"`
	AutoNotifiedInvitations int                       `json:"auto_notified_invitations"`
}
