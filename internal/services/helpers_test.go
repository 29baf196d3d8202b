package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dimitrije/playdate-api/internal/database"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*database.DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &database.DB{Pool: mock}, mock
}

// recordingDispatcher keeps every notification it is handed.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n models.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return nil
}

func (d *recordingDispatcher) kinds() []models.NotificationKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.NotificationKind, len(d.sent))
	for i, n := range d.sent {
		out[i] = n.Kind
	}
	return out
}

var invitationRowColumns = []string{
	"id", "activity_id", "inviter_guardian_id", "invited_guardian_id", "invited_child_id",
	"status", "message", "created_at", "status_viewed_at", "responded_at",
}

func invitationRows(invs ...models.Invitation) *pgxmock.Rows {
	rows := pgxmock.NewRows(invitationRowColumns)
	for _, inv := range invs {
		rows.AddRow(inv.ID, inv.ActivityID, inv.InviterGuardianID, inv.InvitedGuardianID, inv.InvitedChildID,
			inv.Status, inv.Message, fixedNow, inv.StatusViewedAt, inv.RespondedAt)
	}
	return rows
}

var pendingRowColumns = []string{
	"id", "activity_id", "target_kind", "target_guardian_id", "connection_request_id",
	"invited_child_id", "created_by_guardian_id", "message", "created_at",
}

func pendingRows(ps ...models.PendingInvitation) *pgxmock.Rows {
	rows := pgxmock.NewRows(pendingRowColumns)
	for _, p := range ps {
		guardianID, requestID := pendingTargetArgs(p.Target)
		rows.AddRow(p.ID, p.ActivityID, p.Target.Kind, guardianID, requestID,
			p.Target.ChildID, p.CreatedByGuardianID, p.Message, fixedNow)
	}
	return rows
}

func childRow(child models.Child) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "guardian_id", "name", "created_at"}).
		AddRow(child.ID, child.GuardianID, child.Name, fixedNow)
}

func existsRow(v bool) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"exists"}).AddRow(v)
}

func newInvitation(activityID, inviter, invitedGuardian, invitedChild uuid.UUID) models.Invitation {
	return models.Invitation{
		ID:                uuid.New(),
		ActivityID:        activityID,
		InviterGuardianID: inviter,
		InvitedGuardianID: invitedGuardian,
		InvitedChildID:    invitedChild,
		Status:            models.InvitationStatusPending,
		Message:           (*string)(nil),
		StatusViewedAt:    (*time.Time)(nil),
		RespondedAt:       (*time.Time)(nil),
	}
}
