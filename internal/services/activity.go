package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/playdate-api/internal/apperror"
	"github.com/dimitrije/playdate-api/internal/database"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

type ActivityService struct {
	db         *database.DB
	splitter   *SeriesSplitter
	dispatcher NotificationDispatcher
	now        func() time.Time
}

func NewActivityService(db *database.DB, splitter *SeriesSplitter, dispatcher NotificationDispatcher) *ActivityService {
	return &ActivityService{db: db, splitter: splitter, dispatcher: dispatcher, now: time.Now}
}

type Invitee struct {
	GuardianID uuid.UUID
	ChildID    uuid.UUID
}

type CreateActivityInput struct {
	HostChildID              uuid.UUID
	Name                     string
	Description              *string
	Location                 *string
	StartDate                time.Time
	EndDate                  *time.Time
	StartTime                *string
	EndTime                  *string
	IsShared                 bool
	AutoNotifyNewConnections bool

	IsRecurring   bool
	RecurringDays []time.Weekday
	Dates         []time.Time
	// SeriesID lets a client retry creation of the same series.
	SeriesID          *uuid.UUID
	JointHostChildIDs []uuid.UUID
	// HostAssignments pins dates (DateLayout keys) to a host.
	HostAssignments map[string]uuid.UUID
	// InvitedChildren lists invitees per host child. Each occurrence only
	// fans out to the invitees of the host that owns it.
	InvitedChildren map[uuid.UUID][]Invitee
}

type CreateActivityResult struct {
	SeriesID           *uuid.UUID                 `json:"series_id,omitempty"`
	Activities         []models.Activity          `json:"activities"`
	Invitations        []models.Invitation        `json:"invitations"`
	PendingInvitations []models.PendingInvitation `json:"pending_invitations"`
}

const activityColumns = `id, host_child_id, created_by_guardian_id, name, description, location,
	start_date, end_date, start_time, end_time, is_shared, auto_notify_new_connections,
	series_id, joint_host_child_ids, created_at, updated_at`

func scanActivity(row pgx.Row) (*models.Activity, error) {
	var a models.Activity
	err := row.Scan(
		&a.ID, &a.HostChildID, &a.CreatedByGuardianID, &a.Name, &a.Description, &a.Location,
		&a.StartDate, &a.EndDate, &a.StartTime, &a.EndTime, &a.IsShared, &a.AutoNotifyNewConnections,
		&a.SeriesID, &a.JointHostChildIDs, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func validateActivityInput(input CreateActivityInput) error {
	if input.Name == "" {
		return apperror.Invalid("name is required")
	}
	if input.StartDate.IsZero() {
		return apperror.Invalid("start date is required")
	}
	if input.EndDate != nil && models.DateOnly(*input.EndDate).Before(models.DateOnly(input.StartDate)) {
		return apperror.Validation(apperror.CodeInvalidSchedule, "end date is before start date")
	}
	for _, t := range []*string{input.StartTime, input.EndTime} {
		if t == nil {
			continue
		}
		if _, err := time.Parse("15:04", *t); err != nil {
			return apperror.Invalid(fmt.Sprintf("invalid time %q, expected HH:MM", *t))
		}
	}
	if input.IsRecurring && len(input.RecurringDays) == 0 && len(input.Dates) == 0 {
		return apperror.Validation(apperror.CodeInvalidSchedule, "recurring activity needs recurring days or dates")
	}
	// A one-off activity has a single row owned by the host child, so there
	// is nowhere to put a joint host's invitees.
	if !input.IsRecurring {
		for host := range input.InvitedChildren {
			if host != input.HostChildID {
				return apperror.Invalid("a one-off activity only takes invitees of its host child")
			}
		}
	}
	return nil
}

// Create stores an activity, or one row per occurrence for a recurring
// series, and fans out invitations for each row to its host's invitees.
// Invitees already connected to the host get an invitation; the rest get a
// pending invitation keyed by their guardian.
func (s *ActivityService) Create(ctx context.Context, callerID uuid.UUID, input CreateActivityInput) (*CreateActivityResult, error) {
	if err := validateActivityInput(input); err != nil {
		return nil, err
	}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := requireChildOf(ctx, tx, input.HostChildID, callerID, apperror.ErrInvalidChildOwnership); err != nil {
		return nil, err
	}

	hosts := Hosts(input.HostChildID, input.JointHostChildIDs)
	for _, h := range hosts {
		if h == input.HostChildID {
			continue
		}
		if err := s.requireJointHost(ctx, tx, callerID, input.HostChildID, h); err != nil {
			return nil, err
		}
	}

	invitees, err := s.resolveInvitees(ctx, tx, hosts, input.InvitedChildren)
	if err != nil {
		return nil, err
	}

	occurrences, existing, seriesID, err := s.plan(ctx, tx, callerID, input, hosts)
	if err != nil {
		return nil, err
	}

	result := &CreateActivityResult{
		SeriesID:           seriesID,
		Invitations:        []models.Invitation{},
		PendingInvitations: []models.PendingInvitation{},
	}
	for _, occ := range occurrences {
		key := occ.Date.Format(models.DateLayout)
		if a, ok := existing[key]; ok {
			result.Activities = append(result.Activities, *a)
			continue
		}

		row := models.Activity{
			HostChildID:              occ.HostChildID,
			CreatedByGuardianID:      callerID,
			Name:                     input.Name,
			Description:              input.Description,
			Location:                 input.Location,
			StartDate:                occ.Date,
			EndDate:                  occ.Date,
			StartTime:                input.StartTime,
			EndTime:                  input.EndTime,
			IsShared:                 input.IsShared,
			AutoNotifyNewConnections: input.AutoNotifyNewConnections,
			SeriesID:                 seriesID,
			JointHostChildIDs:        otherHosts(hosts, occ.HostChildID),
		}
		if seriesID == nil && input.EndDate != nil {
			row.EndDate = models.DateOnly(*input.EndDate)
		}

		activity, created, err := insertActivity(ctx, tx, row)
		if err != nil {
			return nil, err
		}
		result.Activities = append(result.Activities, *activity)
		if !created {
			continue
		}

		for _, inv := range invitees[occ.HostChildID] {
			if err := s.fanOut(ctx, tx, callerID, activity.ID, inv, result); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"host_child_id": input.HostChildID,
		"occurrences":   len(result.Activities),
		"invitations":   len(result.Invitations),
		"pending":       len(result.PendingInvitations),
	}).Info("activity created")

	dispatchAll(ctx, s.dispatcher, invitationNotifications(result.Invitations, s.now()))
	return result, nil
}

// requireJointHost accepts a co-host that is a sibling of the host child or
// already connected to it.
func (s *ActivityService) requireJointHost(ctx context.Context, q database.Querier, callerID, hostChildID, jointChildID uuid.UUID) error {
	child, err := lookupChild(ctx, q, jointChildID)
	if errors.Is(err, apperror.ErrChildNotFound) {
		return apperror.ErrUnresolvableHostChild
	}
	if err != nil {
		return err
	}
	if child.GuardianID == callerID {
		return nil
	}
	connected, err := areConnected(ctx, q, hostChildID, jointChildID)
	if err != nil {
		return err
	}
	if !connected {
		return apperror.ErrUnresolvableHostChild
	}
	return nil
}

type resolvedInvitee struct {
	Invitee
	connected bool
}

func (s *ActivityService) resolveInvitees(ctx context.Context, q database.Querier, hosts []uuid.UUID, byHost map[uuid.UUID][]Invitee) (map[uuid.UUID][]resolvedInvitee, error) {
	isHost := make(map[uuid.UUID]bool, len(hosts))
	for _, h := range hosts {
		isHost[h] = true
	}

	for host := range byHost {
		if !isHost[host] {
			return nil, apperror.ErrUnresolvableHostChild
		}
	}

	out := make(map[uuid.UUID][]resolvedInvitee, len(byHost))
	for _, host := range hosts {
		for _, inv := range byHost[host] {
			if isHost[inv.ChildID] {
				return nil, apperror.Invalid("a host child cannot be invited to its own series")
			}
			if _, err := requireChildOf(ctx, q, inv.ChildID, inv.GuardianID, apperror.ErrChildNotOwnedByGuardian); err != nil {
				return nil, err
			}
			connected, err := areConnected(ctx, q, host, inv.ChildID)
			if err != nil {
				return nil, err
			}
			out[host] = append(out[host], resolvedInvitee{Invitee: inv, connected: connected})
		}
	}
	return out, nil
}

// plan works out the occurrence rows. For a series retry, dates that
// already have a row are returned in existing and keep their stored host.
func (s *ActivityService) plan(ctx context.Context, q database.Querier, callerID uuid.UUID, input CreateActivityInput, hosts []uuid.UUID) ([]Occurrence, map[string]*models.Activity, *uuid.UUID, error) {
	if !input.IsRecurring {
		return []Occurrence{{Date: models.DateOnly(input.StartDate), HostChildID: input.HostChildID}}, nil, nil, nil
	}

	end := input.StartDate
	if input.EndDate != nil {
		end = *input.EndDate
	}
	dates, err := s.splitter.Dates(input.StartDate, end, input.RecurringDays, input.Dates)
	if err != nil {
		return nil, nil, nil, err
	}

	seriesID := uuid.New()
	existing := map[string]*models.Activity{}
	existingHosts := map[string]uuid.UUID{}
	if input.SeriesID != nil {
		seriesID = *input.SeriesID
		rows, err := q.Query(ctx, `
			SELECT `+activityColumns+`
			FROM activities WHERE series_id = $1
			ORDER BY start_date
			FOR UPDATE
		`, seriesID)
		if err != nil {
			return nil, nil, nil, storeError("load series", err)
		}
		for rows.Next() {
			a, err := scanActivity(rows)
			if err != nil {
				rows.Close()
				return nil, nil, nil, fmt.Errorf("failed to scan activity: %w", err)
			}
			key := a.StartDate.Format(models.DateLayout)
			existing[key] = a
			existingHosts[key] = a.HostChildID
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, nil, nil, storeError("load series", err)
		}
		for _, a := range existing {
			if a.CreatedByGuardianID != callerID {
				return nil, nil, nil, apperror.Forbidden("series belongs to another guardian")
			}
		}
	}

	occurrences, err := s.splitter.Assign(dates, hosts, input.HostAssignments, existingHosts)
	if err != nil {
		return nil, nil, nil, err
	}
	return occurrences, existing, &seriesID, nil
}

func otherHosts(hosts []uuid.UUID, host uuid.UUID) []uuid.UUID {
	out := []uuid.UUID{}
	for _, h := range hosts {
		if h != host {
			out = append(out, h)
		}
	}
	return out
}

// insertActivity stores a row. A series row that lost a race to a
// concurrent retry is returned as it was stored, with created false.
func insertActivity(ctx context.Context, q database.Querier, a models.Activity) (*models.Activity, bool, error) {
	created, err := scanActivity(q.QueryRow(ctx, `
		INSERT INTO activities (host_child_id, created_by_guardian_id, name, description, location,
			start_date, end_date, start_time, end_time, is_shared, auto_notify_new_connections,
			series_id, joint_host_child_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING
		RETURNING `+activityColumns,
		a.HostChildID, a.CreatedByGuardianID, a.Name, a.Description, a.Location,
		a.StartDate, a.EndDate, a.StartTime, a.EndTime, a.IsShared, a.AutoNotifyNewConnections,
		a.SeriesID, a.JointHostChildIDs,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || a.SeriesID == nil {
		return nil, false, storeError("create activity", err)
	}

	existing, err := scanActivity(q.QueryRow(ctx, `
		SELECT `+activityColumns+` FROM activities WHERE series_id = $1 AND start_date = $2
	`, a.SeriesID, a.StartDate))
	if err != nil {
		return nil, false, storeError("load existing occurrence", err)
	}
	return existing, false, nil
}

func (s *ActivityService) fanOut(ctx context.Context, q database.Querier, callerID, activityID uuid.UUID, inv resolvedInvitee, result *CreateActivityResult) error {
	if inv.connected {
		created, isNew, err := insertInvitation(ctx, q, models.Invitation{
			ActivityID:        activityID,
			InviterGuardianID: callerID,
			InvitedGuardianID: inv.GuardianID,
			InvitedChildID:    inv.ChildID,
		})
		if err != nil {
			return err
		}
		if isNew {
			result.Invitations = append(result.Invitations, *created)
		}
		return nil
	}

	childID := inv.ChildID
	p, err := insertPending(ctx, q, activityID, callerID, models.ByGuardian(inv.GuardianID, &childID), nil)
	if err != nil {
		return err
	}
	result.PendingInvitations = append(result.PendingInvitations, *p)
	return nil
}

// GetByID returns an activity to its host guardian, its creator, or a
// guardian with a child invited to it.
func (s *ActivityService) GetByID(ctx context.Context, callerID, id uuid.UUID) (*models.Activity, error) {
	a, err := scanActivity(s.db.Pool.QueryRow(ctx, `
		SELECT `+activityColumns+` FROM activities WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrActivityNotFound
	}
	if err != nil {
		return nil, storeError("get activity", err)
	}
	if a.CreatedByGuardianID == callerID {
		return a, nil
	}

	var visible bool
	err = s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM children WHERE id = $1 AND guardian_id = $3)
			OR EXISTS(SELECT 1 FROM invitations WHERE activity_id = $2 AND invited_guardian_id = $3)
	`, a.HostChildID, a.ID, callerID).Scan(&visible)
	if err != nil {
		return nil, storeError("check activity access", err)
	}
	if !visible {
		return nil, apperror.ErrForbidden
	}
	return a, nil
}

// ListByHost returns the activities hosted by childID, soonest first.
// callerID must own the child.
func (s *ActivityService) ListByHost(ctx context.Context, callerID, childID uuid.UUID) ([]models.Activity, error) {
	if _, err := requireChildOf(ctx, s.db.Pool, childID, callerID, apperror.ErrForbidden); err != nil {
		return nil, err
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities WHERE host_child_id = $1
		ORDER BY start_date, id
	`, childID)
	if err != nil {
		return nil, storeError("list activities", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}
