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

// NotificationDispatcher delivers notifications after a successful commit.
// Delivery is fire-and-forget from the engine's point of view.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n models.Notification) error
}

// storeError passes engine errors through untouched, marks retryable store
// failures as transient and wraps everything else. A unique violation that
// got past an ON CONFLICT clause means a concurrent writer won the race; a
// retry reads the row it wrote.
func storeError(action string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if database.IsTransient(err) || database.IsUniqueViolation(err) {
		return apperror.Transient(fmt.Errorf("failed to %s: %w", action, err))
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func dispatchAll(ctx context.Context, d NotificationDispatcher, notifications []models.Notification) {
	if d == nil {
		return
	}
	for _, n := range notifications {
		if err := d.Dispatch(ctx, n); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"kind":      n.Kind,
				"recipient": n.RecipientGuardianID,
				"subject":   n.SubjectID,
			}).Warn("notification dispatch failed")
		}
	}
}

func invitationNotifications(invitations []models.Invitation, at time.Time) []models.Notification {
	out := make([]models.Notification, 0, len(invitations))
	for _, inv := range invitations {
		out = append(out, models.InvitationCreated(inv, at))
	}
	return out
}

const invitationColumns = `id, activity_id, inviter_guardian_id, invited_guardian_id, invited_child_id,
	status, message, created_at, status_viewed_at, responded_at`

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.ID, &inv.ActivityID, &inv.InviterGuardianID, &inv.InvitedGuardianID, &inv.InvitedChildID,
		&inv.Status, &inv.Message, &inv.CreatedAt, &inv.StatusViewedAt, &inv.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

const pendingColumns = `id, activity_id, target_kind, target_guardian_id, connection_request_id,
	invited_child_id, created_by_guardian_id, message, created_at`

func scanPending(row pgx.Row) (*models.PendingInvitation, error) {
	var p models.PendingInvitation
	var guardianID, requestID *uuid.UUID
	err := row.Scan(
		&p.ID, &p.ActivityID, &p.Target.Kind, &guardianID, &requestID,
		&p.Target.ChildID, &p.CreatedByGuardianID, &p.Message, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if guardianID != nil {
		p.Target.GuardianID = *guardianID
	}
	if requestID != nil {
		p.Target.RequestID = *requestID
	}
	return &p, nil
}

// pendingTargetArgs flattens a target into its nullable column values.
func pendingTargetArgs(t models.PendingTarget) (guardianID, requestID *uuid.UUID) {
	switch t.Kind {
	case models.PendingTargetGuardian:
		id := t.GuardianID
		return &id, nil
	case models.PendingTargetConnectionRequest:
		id := t.RequestID
		return nil, &id
	}
	return nil, nil
}

// insertInvitation creates a concrete invitation unless one already exists
// for the same activity and child. created reports which happened; when it
// is false the returned invitation is the existing row.
func insertInvitation(ctx context.Context, q database.Querier, inv models.Invitation) (*models.Invitation, bool, error) {
	created, err := scanInvitation(q.QueryRow(ctx, `
		INSERT INTO invitations (activity_id, inviter_guardian_id, invited_guardian_id, invited_child_id, status, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (activity_id, invited_child_id) DO NOTHING
		RETURNING `+invitationColumns,
		inv.ActivityID, inv.InviterGuardianID, inv.InvitedGuardianID, inv.InvitedChildID,
		models.InvitationStatusPending, inv.Message,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, storeError("create invitation", err)
	}

	existing, err := scanInvitation(q.QueryRow(ctx, `
		SELECT `+invitationColumns+`
		FROM invitations WHERE activity_id = $1 AND invited_child_id = $2
	`, inv.ActivityID, inv.InvitedChildID))
	if err != nil {
		return nil, false, storeError("load existing invitation", err)
	}
	return existing, false, nil
}

func lookupChild(ctx context.Context, q database.Querier, childID uuid.UUID) (*models.Child, error) {
	var child models.Child
	err := q.QueryRow(ctx, `
		SELECT id, guardian_id, name, created_at FROM children WHERE id = $1
	`, childID).Scan(&child.ID, &child.GuardianID, &child.Name, &child.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrChildNotFound
	}
	if err != nil {
		return nil, storeError("load child", err)
	}
	return &child, nil
}

// requireChildOf returns notOwned when the child is missing or belongs to
// another guardian.
func requireChildOf(ctx context.Context, q database.Querier, childID, guardianID uuid.UUID, notOwned *apperror.Error) (*models.Child, error) {
	if childID == uuid.Nil {
		return nil, notOwned
	}
	child, err := lookupChild(ctx, q, childID)
	if errors.Is(err, apperror.ErrChildNotFound) {
		return nil, notOwned
	}
	if err != nil {
		return nil, err
	}
	if child.GuardianID != guardianID {
		return nil, notOwned
	}
	return child, nil
}

func guardianExists(ctx context.Context, q database.Querier, guardianID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM guardians WHERE id = $1)
	`, guardianID).Scan(&exists)
	if err != nil {
		return false, storeError("check guardian", err)
	}
	return exists, nil
}

// areConnected reports whether an accepted connection exists between two
// children, in either order.
func areConnected(ctx context.Context, q database.Querier, childX, childY uuid.UUID) (bool, error) {
	pair := models.NewConnection(models.Side{ChildID: childX}, models.Side{ChildID: childY})
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM connections WHERE child_a_id = $1 AND child_b_id = $2)
	`, pair.ChildAID, pair.ChildBID).Scan(&exists)
	if err != nil {
		return false, storeError("check connection", err)
	}
	return exists, nil
}

// activityAccess is the slice of an activity needed to authorize writes
// against it.
type activityAccess struct {
	ID                  uuid.UUID
	Name                string
	HostChildID         uuid.UUID
	HostGuardianID      uuid.UUID
	CreatedByGuardianID uuid.UUID
}

func (a activityAccess) ManagedBy(guardianID uuid.UUID) bool {
	return a.HostGuardianID == guardianID || a.CreatedByGuardianID == guardianID
}

func lookupActivityAccess(ctx context.Context, q database.Querier, activityID uuid.UUID) (*activityAccess, error) {
	var a activityAccess
	err := q.QueryRow(ctx, `
		SELECT a.id, a.name, a.host_child_id, hc.guardian_id, a.created_by_guardian_id
		FROM activities a
		JOIN children hc ON hc.id = a.host_child_id
		WHERE a.id = $1
	`, activityID).Scan(&a.ID, &a.Name, &a.HostChildID, &a.HostGuardianID, &a.CreatedByGuardianID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrActivityNotFound
	}
	if err != nil {
		return nil, storeError("load activity", err)
	}
	return &a, nil
}
