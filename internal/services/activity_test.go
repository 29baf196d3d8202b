package services

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/playdate-api/internal/apperror"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupActivityService(t *testing.T) (*ActivityService, pgxmock.PgxPoolIface, *recordingDispatcher) {
	t.Helper()
	db, mock := setupMockDB(t)
	dispatcher := &recordingDispatcher{}
	svc := NewActivityService(db, NewSeriesSplitter(104), dispatcher)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock, dispatcher
}

var activityRowColumns = []string{
	"id", "host_child_id", "created_by_guardian_id", "name", "description", "location",
	"start_date", "end_date", "start_time", "end_time", "is_shared", "auto_notify_new_connections",
	"series_id", "joint_host_child_ids", "created_at", "updated_at",
}

func activityRow(a models.Activity) *pgxmock.Rows {
	joint := a.JointHostChildIDs
	if joint == nil {
		joint = []uuid.UUID{}
	}
	return pgxmock.NewRows(activityRowColumns).AddRow(
		a.ID, a.HostChildID, a.CreatedByGuardianID, a.Name, a.Description, a.Location,
		a.StartDate, a.EndDate, a.StartTime, a.EndTime, a.IsShared, a.AutoNotifyNewConnections,
		a.SeriesID, joint, fixedNow, fixedNow,
	)
}

func TestValidateActivityInput(t *testing.T) {
	start := date(2025, 3, 10)
	before := date(2025, 3, 9)
	badTime := "25:99"
	hostID, siblingID := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		input    CreateActivityInput
		wantCode apperror.Code
	}{
		{"missing name", CreateActivityInput{StartDate: start}, apperror.CodeInvalidInput},
		{"missing start", CreateActivityInput{Name: "Zoo"}, apperror.CodeInvalidInput},
		{"end before start", CreateActivityInput{Name: "Zoo", StartDate: start, EndDate: &before}, apperror.CodeInvalidSchedule},
		{"bad time", CreateActivityInput{Name: "Zoo", StartDate: start, StartTime: &badTime}, apperror.CodeInvalidInput},
		{"recurring without days", CreateActivityInput{Name: "Zoo", StartDate: start, IsRecurring: true}, apperror.CodeInvalidSchedule},
		{"one-off with joint host invitees", CreateActivityInput{
			Name:              "Zoo",
			StartDate:         start,
			HostChildID:       hostID,
			JointHostChildIDs: []uuid.UUID{siblingID},
			InvitedChildren:   map[uuid.UUID][]Invitee{siblingID: {{GuardianID: uuid.New(), ChildID: uuid.New()}}},
		}, apperror.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateActivityInput(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.New(apperror.KindValidation, tt.wantCode, ""))
		})
	}

	assert.NoError(t, validateActivityInput(CreateActivityInput{Name: "Zoo", StartDate: start}))
	assert.NoError(t, validateActivityInput(CreateActivityInput{
		Name:              "Zoo",
		StartDate:         start,
		HostChildID:       hostID,
		JointHostChildIDs: []uuid.UUID{siblingID},
		InvitedChildren:   map[uuid.UUID][]Invitee{hostID: {{GuardianID: uuid.New(), ChildID: uuid.New()}}},
	}))
}

func TestActivityService_Create_FansOutByConnection(t *testing.T) {
	svc, mock, dispatcher := setupActivityService(t)
	callerID := uuid.New()
	host := models.Child{ID: uuid.New(), GuardianID: callerID, Name: "Mia"}
	friend := models.Child{ID: uuid.New(), GuardianID: uuid.New(), Name: "Leo"}
	stranger := models.Child{ID: uuid.New(), GuardianID: uuid.New(), Name: "Ava"}
	start := date(2025, 3, 10)

	activity := models.Activity{
		ID:                  uuid.New(),
		HostChildID:         host.ID,
		CreatedByGuardianID: callerID,
		Name:                "Zoo trip",
		StartDate:           start,
		EndDate:             start,
		Description:         (*string)(nil),
		Location:            (*string)(nil),
		StartTime:           (*string)(nil),
		EndTime:             (*string)(nil),
		SeriesID:            (*uuid.UUID)(nil),
	}
	inv := newInvitation(activity.ID, callerID, friend.GuardianID, friend.ID)
	strangerID := stranger.ID
	pending := models.PendingInvitation{
		ID:                  uuid.New(),
		ActivityID:          activity.ID,
		Target:              models.ByGuardian(stranger.GuardianID, &strangerID),
		CreatedByGuardianID: callerID,
		Message:             (*string)(nil),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(host.ID).
		WillReturnRows(childRow(host))
	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(friend.ID).
		WillReturnRows(childRow(friend))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM connections`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(existsRow(true))
	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(stranger.ID).
		WillReturnRows(childRow(stranger))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM connections`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(existsRow(false))
	mock.ExpectQuery(`INSERT INTO activities`).
		WithArgs(host.ID, callerID, "Zoo trip", pgxmock.AnyArg(), pgxmock.AnyArg(),
			start, start, pgxmock.AnyArg(), pgxmock.AnyArg(), false, false,
			(*uuid.UUID)(nil), []uuid.UUID{}).
		WillReturnRows(activityRow(activity))
	mock.ExpectQuery(`INSERT INTO invitations .+ VALUES`).
		WithArgs(activity.ID, callerID, friend.GuardianID, friend.ID, models.InvitationStatusPending, (*string)(nil)).
		WillReturnRows(invitationRows(inv))
	mock.ExpectQuery(`INSERT INTO pending_invitations`).
		WithArgs(activity.ID, models.PendingTargetGuardian, pgxmock.AnyArg(), (*uuid.UUID)(nil), &strangerID, callerID, (*string)(nil)).
		WillReturnRows(pendingRows(pending))
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), callerID, CreateActivityInput{
		HostChildID: host.ID,
		Name:        "Zoo trip",
		StartDate:   start,
		InvitedChildren: map[uuid.UUID][]Invitee{
			host.ID: {
				{GuardianID: friend.GuardianID, ChildID: friend.ID},
				{GuardianID: stranger.GuardianID, ChildID: stranger.ID},
			},
		},
	})

	require.NoError(t, err)
	assert.Nil(t, result.SeriesID)
	require.Len(t, result.Activities, 1)
	assert.Equal(t, activity.ID, result.Activities[0].ID)
	require.Len(t, result.Invitations, 1)
	assert.Equal(t, friend.ID, result.Invitations[0].InvitedChildID)
	require.Len(t, result.PendingInvitations, 1)
	assert.Equal(t, stranger.GuardianID, result.PendingInvitations[0].Target.GuardianID)
	assert.Equal(t, []models.NotificationKind{models.NotificationInvitationCreated}, dispatcher.kinds())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityService_Create_HostNotOwned(t *testing.T) {
	svc, mock, _ := setupActivityService(t)
	host := models.Child{ID: uuid.New(), GuardianID: uuid.New(), Name: "Mia"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(host.ID).
		WillReturnRows(childRow(host))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), uuid.New(), CreateActivityInput{
		HostChildID: host.ID,
		Name:        "Zoo trip",
		StartDate:   date(2025, 3, 10),
	})

	assert.ErrorIs(t, err, apperror.ErrInvalidChildOwnership)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityService_Create_UnconnectedJointHost(t *testing.T) {
	svc, mock, _ := setupActivityService(t)
	callerID := uuid.New()
	host := models.Child{ID: uuid.New(), GuardianID: callerID, Name: "Mia"}
	joint := models.Child{ID: uuid.New(), GuardianID: uuid.New(), Name: "Leo"}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(host.ID).
		WillReturnRows(childRow(host))
	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(joint.ID).
		WillReturnRows(childRow(joint))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM connections`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(existsRow(false))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), callerID, CreateActivityInput{
		HostChildID:       host.ID,
		Name:              "Swim club",
		StartDate:         date(2025, 3, 3),
		EndDate:           ptr(date(2025, 3, 14)),
		IsRecurring:       true,
		RecurringDays:     []time.Weekday{time.Monday},
		JointHostChildIDs: []uuid.UUID{joint.ID},
	})

	assert.ErrorIs(t, err, apperror.ErrUnresolvableHostChild)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityService_ListByHost_NotOwner(t *testing.T) {
	svc, mock, _ := setupActivityService(t)
	child := models.Child{ID: uuid.New(), GuardianID: uuid.New(), Name: "Mia"}

	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(child.ID).
		WillReturnRows(childRow(child))

	_, err := svc.ListByHost(context.Background(), uuid.New(), child.ID)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityService_Create_OneOffRejectsJointHostInvitees(t *testing.T) {
	svc, mock, dispatcher := setupActivityService(t)
	callerID := uuid.New()
	host := models.Child{ID: uuid.New(), GuardianID: callerID, Name: "Mia"}
	sibling := models.Child{ID: uuid.New(), GuardianID: callerID, Name: "Noa"}
	friend := models.Child{ID: uuid.New(), GuardianID: uuid.New(), Name: "Leo"}

	result, err := svc.Create(context.Background(), callerID, CreateActivityInput{
		HostChildID:       host.ID,
		Name:              "Picnic",
		StartDate:         date(2025, 3, 10),
		JointHostChildIDs: []uuid.UUID{sibling.ID},
		InvitedChildren: map[uuid.UUID][]Invitee{
			sibling.ID: {{GuardianID: friend.GuardianID, ChildID: friend.ID}},
		},
	})

	assert.Nil(t, result)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Empty(t, dispatcher.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityService_GetByID(t *testing.T) {
	host := models.Child{ID: uuid.New(), GuardianID: uuid.New(), Name: "Mia"}
	activity := models.Activity{
		ID:                  uuid.New(),
		HostChildID:         host.ID,
		CreatedByGuardianID: host.GuardianID,
		Name:                "Zoo trip",
		StartDate:           date(2025, 3, 10),
		EndDate:             date(2025, 3, 10),
		Description:         (*string)(nil),
		Location:            (*string)(nil),
		StartTime:           (*string)(nil),
		EndTime:             (*string)(nil),
		SeriesID:            (*uuid.UUID)(nil),
	}

	t.Run("creator", func(t *testing.T) {
		svc, mock, _ := setupActivityService(t)
		mock.ExpectQuery(`FROM activities WHERE id`).
			WithArgs(activity.ID).
			WillReturnRows(activityRow(activity))

		got, err := svc.GetByID(context.Background(), host.GuardianID, activity.ID)

		require.NoError(t, err)
		assert.Equal(t, activity.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invited guardian", func(t *testing.T) {
		svc, mock, _ := setupActivityService(t)
		invited := uuid.New()
		mock.ExpectQuery(`FROM activities WHERE id`).
			WithArgs(activity.ID).
			WillReturnRows(activityRow(activity))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM children .+ OR EXISTS\(SELECT 1 FROM invitations`).
			WithArgs(host.ID, activity.ID, invited).
			WillReturnRows(existsRow(true))

		got, err := svc.GetByID(context.Background(), invited, activity.ID)

		require.NoError(t, err)
		assert.Equal(t, activity.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outsider", func(t *testing.T) {
		svc, mock, _ := setupActivityService(t)
		outsider := uuid.New()
		mock.ExpectQuery(`FROM activities WHERE id`).
			WithArgs(activity.ID).
			WillReturnRows(activityRow(activity))
		mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM children`).
			WithArgs(host.ID, activity.ID, outsider).
			WillReturnRows(existsRow(false))

		got, err := svc.GetByID(context.Background(), outsider, activity.ID)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func ptr[T any](v T) *T {
	return &v
}
