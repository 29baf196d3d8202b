package dto

import (
	"time"

	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
)

type InviteRequest struct {
	InvitedGuardianID uuid.UUID `json:"invited_guardian_id"`
	InvitedChildID    uuid.UUID `json:"invited_child_id"`
	Message           *string   `json:"message,omitempty"`
}

// PendingTargetRequest is either {"kind":"guardian","guardian_id":...} or
// {"kind":"connection_request","connection_request_id":...,"child_id":...}.
type PendingTargetRequest struct {
	Kind                string     `json:"kind"`
	GuardianID          *uuid.UUID `json:"guardian_id,omitempty"`
	ConnectionRequestID *uuid.UUID `json:"connection_request_id,omitempty"`
	ChildID             *uuid.UUID `json:"child_id,omitempty"`
}

type CreatePendingRequest struct {
	Targets []PendingTargetRequest `json:"pending_targets"`
	Message *string                `json:"message,omitempty"`
}

type PendingInvitationResponse struct {
	ID                  uuid.UUID  `json:"id"`
	ActivityID          uuid.UUID  `json:"activity_id"`
	TargetKind          string     `json:"target_kind"`
	TargetGuardianID    *uuid.UUID `json:"target_guardian_id,omitempty"`
	ConnectionRequestID *uuid.UUID `json:"connection_request_id,omitempty"`
	InvitedChildID      *uuid.UUID `json:"invited_child_id,omitempty"`
	CreatedByGuardianID uuid.UUID  `json:"created_by_guardian_id"`
	Message             *string    `json:"message,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type ParticipantsResponse struct {
	Host               models.Participant          `json:"host"`
	Invitations        []models.Invitation         `json:"invitations"`
	PendingInvitations []PendingInvitationResponse `json:"pending_invitations"`
}
