package integration

import (
	"context"
	"testing"
	"time"

	"github.com/dimitrije/playdate-api/internal/apperror"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurringSeriesSplitsAcrossHosts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := newStack(t)
	ctx := context.Background()

	parent := s.fixtures.CreateGuardian(t)
	friend := s.fixtures.CreateGuardian(t)
	first := s.fixtures.CreateChild(t, parent)
	sibling := s.fixtures.CreateChild(t, parent)
	friendChild := s.fixtures.CreateChild(t, friend)

	// Only the first child knows the friend.
	s.fixtures.Connect(t, first, friendChild)

	start := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC) // Monday
	end := time.Date(2030, 3, 17, 0, 0, 0, 0, time.UTC)
	seriesID := uuid.New()

	input := services.CreateActivityInput{
		HostChildID:       first.ID,
		Name:              "Football practice",
		StartDate:         start,
		EndDate:           &end,
		IsRecurring:       true,
		RecurringDays:     []time.Weekday{time.Monday, time.Thursday},
		SeriesID:          &seriesID,
		JointHostChildIDs: []uuid.UUID{sibling.ID},
		InvitedChildren: map[uuid.UUID][]services.Invitee{
			first.ID:   {{GuardianID: friend.ID, ChildID: friendChild.ID}},
			sibling.ID: {{GuardianID: friend.ID, ChildID: friendChild.ID}},
		},
	}

	result, err := s.activities.Create(ctx, parent.ID, input)
	require.NoError(t, err)
	require.NotNil(t, result.SeriesID)
	assert.Equal(t, seriesID, *result.SeriesID)
	require.Len(t, result.Activities, 4)

	hostedBy := map[uuid.UUID]int{}
	for _, a := range result.Activities {
		hostedBy[a.HostChildID]++
		require.NotNil(t, a.SeriesID)
		assert.Equal(t, seriesID, *a.SeriesID)
		assert.Len(t, a.JointHostChildIDs, 1)
		assert.NotContains(t, a.JointHostChildIDs, a.HostChildID)
	}
	assert.Equal(t, 2, hostedBy[first.ID])
	assert.Equal(t, 2, hostedBy[sibling.ID])

	// The friend is connected to the first child only, so that host's
	// occurrences invite directly and the sibling's defer.
	assert.Len(t, result.Invitations, 2)
	assert.Len(t, result.PendingInvitations, 2)

	// A retry with the joint hosts listed the other way round keeps every
	// date on its original host and creates nothing new.
	input.HostChildID = sibling.ID
	input.JointHostChildIDs = []uuid.UUID{first.ID}
	retry, err := s.activities.Create(ctx, parent.ID, input)
	require.NoError(t, err)
	require.Len(t, retry.Activities, 4)
	for i := range result.Activities {
		assert.Equal(t, result.Activities[i].ID, retry.Activities[i].ID)
		assert.Equal(t, result.Activities[i].HostChildID, retry.Activities[i].HostChildID)
	}
	assert.Empty(t, retry.Invitations)
	assert.Empty(t, retry.PendingInvitations)
	assert.Equal(t, 2, s.fixtures.CountRows(t, "invitations", "invited_child_id = $1", friendChild.ID))
}

func TestRecurringSeriesRejectsStrangerCoHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := newStack(t)
	ctx := context.Background()

	parent := s.fixtures.CreateGuardian(t)
	other := s.fixtures.CreateGuardian(t)
	host := s.fixtures.CreateChild(t, parent)
	stranger := s.fixtures.CreateChild(t, other)

	start := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 13)
	_, err := s.activities.Create(ctx, parent.ID, services.CreateActivityInput{
		HostChildID:       host.ID,
		Name:              "Art club",
		StartDate:         start,
		EndDate:           &end,
		IsRecurring:       true,
		RecurringDays:     []time.Weekday{time.Monday},
		JointHostChildIDs: []uuid.UUID{stranger.ID},
	})
	assert.ErrorIs(t, err, apperror.ErrUnresolvableHostChild)

	activities, err := s.activities.ListByHost(ctx, parent.ID, host.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)
}
