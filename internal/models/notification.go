package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationInvitationCreated   NotificationKind = "invitation.created"
	NotificationInvitationResponded NotificationKind = "invitation.responded"
	NotificationConnectionRequested NotificationKind = "connection.requested"
	NotificationConnectionAccepted  NotificationKind = "connection.accepted"
)

// Notification is what the engine hands to the outbound dispatcher after a
// successful commit.
type Notification struct {
	Kind                NotificationKind `json:"kind"`
	RecipientGuardianID uuid.UUID        `json:"recipient_guardian_id"`
	SubjectID           uuid.UUID        `json:"subject_id"`
	ActivityID          *uuid.UUID       `json:"activity_id,omitempty"`
	ChildID             *uuid.UUID       `json:"child_id,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

func InvitationCreated(inv Invitation, at time.Time) Notification {
	activityID := inv.ActivityID
	childID := inv.InvitedChildID
	return Notification{
		Kind:                NotificationInvitationCreated,
		RecipientGuardianID: inv.InvitedGuardianID,
		SubjectID:           inv.ID,
		ActivityID:          &activityID,
		ChildID:             &childID,
		CreatedAt:           at,
	}
}
