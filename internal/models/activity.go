package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and map-key format for calendar dates.
const DateLayout = "2006-01-02"

type Activity struct {
	ID                       uuid.UUID   `json:"id"`
	HostChildID              uuid.UUID   `json:"host_child_id"`
	CreatedByGuardianID      uuid.UUID   `json:"created_by_guardian_id"`
	Name                     string      `json:"name"`
	Description              *string     `json:"description,omitempty"`
	Location                 *string     `json:"location,omitempty"`
	StartDate                time.Time   `json:"start_date"`
	EndDate                  time.Time   `json:"end_date"`
	StartTime                *string     `json:"start_time,omitempty"`
	EndTime                  *string     `json:"end_time,omitempty"`
	IsShared                 bool        `json:"is_shared"`
	AutoNotifyNewConnections bool        `json:"auto_notify_new_connections"`
	SeriesID                 *uuid.UUID  `json:"series_id,omitempty"`
	JointHostChildIDs        []uuid.UUID `json:"joint_host_child_ids"`
	CreatedAt                time.Time   `json:"created_at"`
	UpdatedAt                time.Time   `json:"updated_at"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
