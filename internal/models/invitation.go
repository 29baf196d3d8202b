package models

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
)

// StatusFor maps a decision onto the terminal status it produces.
func StatusFor(d Decision) InvitationStatus {
	if d == DecisionAccept {
		return InvitationStatusAccepted
	}
	return InvitationStatusRejected
}

type Invitation struct {
	ID                uuid.UUID        `json:"id"`
	ActivityID        uuid.UUID        `json:"activity_id"`
	InviterGuardianID uuid.UUID        `json:"inviter_guardian_id"`
	InvitedGuardianID uuid.UUID        `json:"invited_guardian_id"`
	InvitedChildID    uuid.UUID        `json:"invited_child_id"`
	Status            InvitationStatus `json:"status"`
	Message           *string          `json:"message,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	StatusViewedAt    *time.Time       `json:"status_viewed_at,omitempty"`
	RespondedAt       *time.Time       `json:"responded_at,omitempty"`

	InvitedChildName    string `json:"invited_child_name,omitempty"`
	InvitedGuardianName string `json:"invited_guardian_name,omitempty"`
}

type PendingTargetKind string

const (
	PendingTargetGuardian          PendingTargetKind = "guardian"
	PendingTargetConnectionRequest PendingTargetKind = "connection_request"
)

// PendingTarget says who a deferred invitation is for: either a known
// guardian who is not yet connected, or a connection request that is still
// being negotiated. ChildID is optional for ByGuardian (the connected child is
// used) and mandatory for ByConnectionRequest.
type PendingTarget struct {
	Kind       PendingTargetKind
	GuardianID uuid.UUID
	RequestID  uuid.UUID
	ChildID    *uuid.UUID
}

func ByGuardian(guardianID uuid.UUID, childID *uuid.UUID) PendingTarget {
	return PendingTarget{Kind: PendingTargetGuardian, GuardianID: guardianID, ChildID: childID}
}

func ByConnectionRequest(requestID uuid.UUID, childID uuid.UUID) PendingTarget {
	return PendingTarget{Kind: PendingTargetConnectionRequest, RequestID: requestID, ChildID: &childID}
}

type PendingInvitation struct {
	ID                  uuid.UUID     `json:"id"`
	ActivityID          uuid.UUID     `json:"activity_id"`
	Target              PendingTarget `json:"-"`
	CreatedByGuardianID uuid.UUID     `json:"created_by_guardian_id"`
	Message             *string       `json:"message,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

type Participant struct {
	ChildID      uuid.UUID `json:"child_id"`
	ChildName    string    `json:"child_name"`
	GuardianID   uuid.UUID `json:"guardian_id"`
	GuardianName string    `json:"guardian_name"`
}

// Participants is the read model behind an activity's participant list.
type Participants struct {
	Host               Participant         `json:"host"`
	Invitations        []Invitation        `json:"invitations"`
	PendingInvitations []PendingInvitation `json:"pending_invitations"`
}
