package dto

import (
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
)

type InvitedChild struct {
	// HostChildID defaults to the activity's host child.
	HostChildID *uuid.UUID `json:"host_child_id,omitempty"`
	GuardianID  uuid.UUID  `json:"guardian_id"`
	ChildID     uuid.UUID  `json:"child_id"`
}

type CreateActivityRequest struct {
	HostChildID              uuid.UUID            `json:"host_child_id"`
	Name                     string               `json:"name"`
	Description              *string              `json:"description,omitempty"`
	Location                 *string              `json:"location,omitempty"`
	StartDate                string               `json:"start_date"`
	EndDate                  *string              `json:"end_date,omitempty"`
	StartTime                *string              `json:"start_time,omitempty"`
	EndTime                  *string              `json:"end_time,omitempty"`
	IsShared                 bool                 `json:"is_shared"`
	AutoNotifyNewConnections bool                 `json:"auto_notify_new_connections"`
	IsRecurring              bool                 `json:"is_recurring"`
	RecurringDays            []string             `json:"recurring_days,omitempty"`
	Dates                    []string             `json:"dates,omitempty"`
	SeriesID                 *uuid.UUID           `json:"series_id,omitempty"`
	JointHostChildIDs        []uuid.UUID          `json:"joint_host_child_ids,omitempty"`
	HostAssignments          map[string]uuid.UUID `json:"host_assignments,omitempty"`
	InvitedChildren          []InvitedChild       `json:"invited_children,omitempty"`
}

type CreateActivityResponse struct {
	SeriesID           *uuid.UUID                  `json:"series_id,omitempty"`
	Activities         []models.Activity           `json:"activities"`
	Invitations        []models.Invitation         `json:"invitations"`
	PendingInvitations []PendingInvitationResponse `json:"pending_invitations"`
}
