package models

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Decision is a guardian's answer to a connection request or an invitation.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionAccept, DecisionReject:
		return Decision(s), nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

type ConnectionRequest struct {
	ID                  uuid.UUID     `json:"id"`
	RequesterGuardianID uuid.UUID     `json:"requester_guardian_id"`
	RequesterChildID    uuid.UUID     `json:"requester_child_id"`
	TargetGuardianID    uuid.UUID     `json:"target_guardian_id"`
	TargetChildID       *uuid.UUID    `json:"target_child_id,omitempty"`
	Message             *string       `json:"message,omitempty"`
	Status              RequestStatus `json:"status"`
	CreatedAt           time.Time     `json:"created_at"`
	RespondedAt         *time.Time    `json:"responded_at,omitempty"`
}

// Connection is an accepted link between two children. Side A always holds
// the smaller child id so the pair has a single stored form.
type Connection struct {
	ID          uuid.UUID  `json:"id"`
	GuardianAID uuid.UUID  `json:"guardian_a_id"`
	ChildAID    uuid.UUID  `json:"child_a_id"`
	GuardianBID uuid.UUID  `json:"guardian_b_id"`
	ChildBID    uuid.UUID  `json:"child_b_id"`
	RequestID   *uuid.UUID `json:"request_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Side is one guardian/child end of a connection.
type Side struct {
	GuardianID uuid.UUID
	ChildID    uuid.UUID
}

// NewConnection orders the two sides canonically.
func NewConnection(x, y Side) Connection {
	if bytes.Compare(x.ChildID[:], y.ChildID[:]) > 0 {
		x, y = y, x
	}
	return Connection{
		GuardianAID: x.GuardianID,
		ChildAID:    x.ChildID,
		GuardianBID: y.GuardianID,
		ChildBID:    y.ChildID,
	}
}

func (c Connection) SideA() Side {
	return Side{GuardianID: c.GuardianAID, ChildID: c.ChildAID}
}

func (c Connection) SideB() Side {
	return Side{GuardianID: c.GuardianBID, ChildID: c.ChildBID}
}

// Other returns the side opposite childID.
func (c Connection) Other(childID uuid.UUID) (Side, bool) {
	switch childID {
	case c.ChildAID:
		return c.SideB(), true
	case c.ChildBID:
		return c.SideA(), true
	}
	return Side{}, false
}
