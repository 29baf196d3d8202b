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
)

// InvitationService is the invitation ledger: concrete invitations and the
// pending invitations waiting on a connection.
type InvitationService struct {
	db         *database.DB
	dispatcher NotificationDispatcher
	now        func() time.Time
}

func NewInvitationService(db *database.DB, dispatcher NotificationDispatcher) *InvitationService {
	return &InvitationService{db: db, dispatcher: dispatcher, now: time.Now}
}

type InviteInput struct {
	InvitedGuardianID uuid.UUID
	InvitedChildID    uuid.UUID
	Message           *string
}

// Invite creates a concrete invitation for a child connected to the host
// child. callerID must host or have created the activity. Children not yet
// connected go through CreatePending.
func (s *InvitationService) Invite(ctx context.Context, callerID, activityID uuid.UUID, input InviteInput) (*models.Invitation, error) {
	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	activity, err := lookupActivityAccess(ctx, tx, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.ManagedBy(callerID) {
		return nil, apperror.Forbidden("only the host can invite to this activity")
	}
	if input.InvitedChildID == activity.HostChildID {
		return nil, apperror.Invalid("host child cannot be invited to its own activity")
	}
	if _, err := requireChildOf(ctx, tx, input.InvitedChildID, input.InvitedGuardianID, apperror.ErrChildNotOwnedByGuardian); err != nil {
		return nil, err
	}
	connected, err := areConnected(ctx, tx, activity.HostChildID, input.InvitedChildID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, apperror.ErrChildNotConnected
	}

	inv, created, err := insertInvitation(ctx, tx, models.Invitation{
		ActivityID:        activity.ID,
		InviterGuardianID: callerID,
		InvitedGuardianID: input.InvitedGuardianID,
		InvitedChildID:    input.InvitedChildID,
		Message:           input.Message,
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, apperror.AlreadyInvited(inv.ID)
	}

	// A pending invitation for the same child is now redundant.
	if _, err := tx.Exec(ctx, `
		DELETE FROM pending_invitations WHERE activity_id = $1 AND invited_child_id = $2
	`, activity.ID, input.InvitedChildID); err != nil {
		return nil, storeError("delete superseded pending invitation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit transaction", err)
	}

	dispatchAll(ctx, s.dispatcher, invitationNotifications([]models.Invitation{*inv}, s.now()))
	return inv, nil
}

// CreatePending records deferred invitations for targets that are not yet
// connected to the host. All targets are validated before anything is
// written; a retry returns the rows created the first time.
func (s *InvitationService) CreatePending(ctx context.Context, callerID, activityID uuid.UUID, targets []models.PendingTarget, message *string) ([]models.PendingInvitation, error) {
	if len(targets) == 0 {
		return nil, apperror.Invalid("at least one pending target is required")
	}

	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	activity, err := lookupActivityAccess(ctx, tx, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.ManagedBy(callerID) {
		return nil, apperror.Forbidden("only the host can invite to this activity")
	}

	for _, target := range targets {
		if err := validatePendingTarget(ctx, tx, activity, target); err != nil {
			return nil, err
		}
	}

	pendings := make([]models.PendingInvitation, 0, len(targets))
	for _, target := range targets {
		p, err := insertPending(ctx, tx, activity.ID, callerID, target, message)
		if err != nil {
			return nil, err
		}
		pendings = append(pendings, *p)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit transaction", err)
	}
	return pendings, nil
}

func validatePendingTarget(ctx context.Context, q database.Querier, activity *activityAccess, target models.PendingTarget) error {
	switch target.Kind {
	case models.PendingTargetGuardian:
		// The host's own guardian can never become a new connection.
		if target.GuardianID == uuid.Nil || target.GuardianID == activity.HostGuardianID {
			return apperror.ErrUnresolvablePendingTarget
		}
		exists, err := guardianExists(ctx, q, target.GuardianID)
		if err != nil {
			return err
		}
		if !exists {
			return apperror.ErrUnresolvablePendingTarget
		}
		if target.ChildID != nil {
			if _, err := requireChildOf(ctx, q, *target.ChildID, target.GuardianID, apperror.ErrChildNotOwnedByGuardian); err != nil {
				return err
			}
			connected, err := areConnected(ctx, q, activity.HostChildID, *target.ChildID)
			if err != nil {
				return err
			}
			if connected {
				return apperror.ErrAlreadyConnected
			}
		}

	case models.PendingTargetConnectionRequest:
		if target.ChildID == nil || *target.ChildID == uuid.Nil {
			return apperror.ErrPendingTargetMissingChild
		}
		var requester, addressee uuid.UUID
		var status models.RequestStatus
		err := q.QueryRow(ctx, `
			SELECT requester_guardian_id, target_guardian_id, status
			FROM connection_requests WHERE id = $1
		`, target.RequestID).Scan(&requester, &addressee, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrUnresolvablePendingTarget
		}
		if err != nil {
			return storeError("load connection request", err)
		}
		if status != models.RequestStatusPending {
			return apperror.ErrUnresolvablePendingTarget
		}
		child, err := lookupChild(ctx, q, *target.ChildID)
		if errors.Is(err, apperror.ErrChildNotFound) {
			return apperror.ErrChildNotOwnedByGuardian
		}
		if err != nil {
			return err
		}
		if child.GuardianID != requester && child.GuardianID != addressee {
			return apperror.ErrChildNotOwnedByGuardian
		}

	default:
		return apperror.ErrUnresolvablePendingTarget
	}

	if target.ChildID == nil {
		return nil
	}
	if *target.ChildID == activity.HostChildID {
		return apperror.Invalid("host child cannot be invited to its own activity")
	}
	var existingID uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT id FROM invitations WHERE activity_id = $1 AND invited_child_id = $2
	`, activity.ID, *target.ChildID).Scan(&existingID)
	if err == nil {
		return apperror.AlreadyInvited(existingID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return storeError("check existing invitation", err)
	}
	return nil
}

// insertPending creates a pending invitation or returns the identical one
// that already exists.
func insertPending(ctx context.Context, q database.Querier, activityID, createdBy uuid.UUID, target models.PendingTarget, message *string) (*models.PendingInvitation, error) {
	guardianID, requestID := pendingTargetArgs(target)

	p, err := scanPending(q.QueryRow(ctx, `
		INSERT INTO pending_invitations (activity_id, target_kind, target_guardian_id, connection_request_id,
			invited_child_id, created_by_guardian_id, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
		RETURNING `+pendingColumns,
		activityID, target.Kind, guardianID, requestID, target.ChildID, createdBy, message,
	))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeError("create pending invitation", err)
	}

	p, err = scanPending(q.QueryRow(ctx, `
		SELECT `+pendingColumns+`
		FROM pending_invitations
		WHERE activity_id = $1
		  AND target_guardian_id IS NOT DISTINCT FROM $2
		  AND connection_request_id IS NOT DISTINCT FROM $3
		  AND invited_child_id IS NOT DISTINCT FROM $4
	`, activityID, guardianID, requestID, target.ChildID))
	if err != nil {
		return nil, storeError("load existing pending invitation", err)
	}
	return p, nil
}

func (s *InvitationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	inv, err := scanInvitation(s.db.Pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrInvitationNotFound
	}
	if err != nil {
		return nil, storeError("get invitation", err)
	}
	return inv, nil
}

// Respond moves a pending invitation to accepted or rejected. Only the
// invited guardian may answer, and only once.
func (s *InvitationService) Respond(ctx context.Context, callerID, invitationID uuid.UUID, decision models.Decision) (*models.Invitation, error) {
	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	inv, err := scanInvitation(tx.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations WHERE id = $1 FOR UPDATE
	`, invitationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrInvitationNotFound
	}
	if err != nil {
		return nil, storeError("lock invitation", err)
	}

	if inv.InvitedGuardianID != callerID {
		return nil, apperror.Forbidden("only the invited guardian can respond to this invitation")
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, apperror.AlreadyResolved(inv.ID, string(inv.Status))
	}

	now := s.now()
	updated, err := scanInvitation(tx.QueryRow(ctx, `
		UPDATE invitations
		SET status = $2, responded_at = $3, status_viewed_at = COALESCE(status_viewed_at, $3)
		WHERE id = $1
		RETURNING `+invitationColumns,
		inv.ID, models.StatusFor(decision), now,
	))
	if err != nil {
		return nil, storeError("update invitation", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit transaction", err)
	}

	activityID := updated.ActivityID
	childID := updated.InvitedChildID
	dispatchAll(ctx, s.dispatcher, []models.Notification{{
		Kind:                models.NotificationInvitationResponded,
		RecipientGuardianID: updated.InviterGuardianID,
		SubjectID:           updated.ID,
		ActivityID:          &activityID,
		ChildID:             &childID,
		CreatedAt:           now,
	}})

	return updated, nil
}

// MarkViewed stamps status_viewed_at the first time the invited guardian
// sees the invitation. Later calls leave the original stamp.
func (s *InvitationService) MarkViewed(ctx context.Context, callerID, invitationID uuid.UUID) (*models.Invitation, error) {
	inv, err := s.GetByID(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InvitedGuardianID != callerID {
		return nil, apperror.ErrForbidden
	}
	if inv.StatusViewedAt != nil {
		return inv, nil
	}

	updated, err := scanInvitation(s.db.Pool.QueryRow(ctx, `
		UPDATE invitations SET status_viewed_at = COALESCE(status_viewed_at, $2)
		WHERE id = $1
		RETURNING `+invitationColumns,
		invitationID, s.now(),
	))
	if err != nil {
		return nil, storeError("mark invitation viewed", err)
	}
	return updated, nil
}

// ListForActivity builds the participant list. Callers must manage the
// activity or have a child invited to it.
func (s *InvitationService) ListForActivity(ctx context.Context, callerID, activityID uuid.UUID) (*models.Participants, error) {
	q := s.db.Pool
	var host models.Participant
	var createdBy uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT c.id, c.name, g.id, g.name, a.created_by_guardian_id
		FROM activities a
		JOIN children c ON c.id = a.host_child_id
		JOIN guardians g ON g.id = c.guardian_id
		WHERE a.id = $1
	`, activityID).Scan(&host.ChildID, &host.ChildName, &host.GuardianID, &host.GuardianName, &createdBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrActivityNotFound
	}
	if err != nil {
		return nil, storeError("load activity host", err)
	}

	invitations, err := s.listInvitations(ctx, `
		SELECT i.id, i.activity_id, i.inviter_guardian_id, i.invited_guardian_id, i.invited_child_id,
			i.status, i.message, i.created_at, i.status_viewed_at, i.responded_at, c.name, g.name
		FROM invitations i
		JOIN children c ON c.id = i.invited_child_id
		JOIN guardians g ON g.id = i.invited_guardian_id
		WHERE i.activity_id = $1
		ORDER BY i.created_at, i.id
	`, activityID)
	if err != nil {
		return nil, err
	}

	allowed := host.GuardianID == callerID || createdBy == callerID
	for _, inv := range invitations {
		if inv.InvitedGuardianID == callerID {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperror.ErrForbidden
	}

	rows, err := q.Query(ctx, `
		SELECT `+pendingColumns+`
		FROM pending_invitations
		WHERE activity_id = $1
		ORDER BY created_at, id
	`, activityID)
	if err != nil {
		return nil, storeError("list pending invitations", err)
	}
	defer rows.Close()

	pendings := []models.PendingInvitation{}
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending invitation: %w", err)
		}
		pendings = append(pendings, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list pending invitations", err)
	}

	return &models.Participants{
		Host:               host,
		Invitations:        invitations,
		PendingInvitations: pendings,
	}, nil
}

// ListForGuardian returns the invitations addressed to guardianID, newest
// first.
func (s *InvitationService) ListForGuardian(ctx context.Context, guardianID uuid.UUID) ([]models.Invitation, error) {
	return s.listInvitations(ctx, `
		SELECT i.id, i.activity_id, i.inviter_guardian_id, i.invited_guardian_id, i.invited_child_id,
			i.status, i.message, i.created_at, i.status_viewed_at, i.responded_at, c.name, g.name
		FROM invitations i
		JOIN children c ON c.id = i.invited_child_id
		JOIN guardians g ON g.id = i.invited_guardian_id
		WHERE i.invited_guardian_id = $1
		ORDER BY i.created_at DESC, i.id
	`, guardianID)
}

func (s *InvitationService) listInvitations(ctx context.Context, sql string, arg uuid.UUID) ([]models.Invitation, error) {
	rows, err := s.db.Pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, storeError("list invitations", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		var inv models.Invitation
		if err := rows.Scan(
			&inv.ID, &inv.ActivityID, &inv.InviterGuardianID, &inv.InvitedGuardianID, &inv.InvitedChildID,
			&inv.Status, &inv.Message, &inv.CreatedAt, &inv.StatusViewedAt, &inv.RespondedAt,
			&inv.InvitedChildName, &inv.InvitedGuardianName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list invitations", err)
	}
	return invitations, nil
}

// PrunePending deletes pending invitations made redundant by a concrete
// invitation for the same activity and child.
func (s *InvitationService) PrunePending(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		DELETE FROM pending_invitations p
		USING invitations i
		WHERE i.activity_id = p.activity_id AND i.invited_child_id = p.invited_child_id
	`)
	if err != nil {
		return 0, storeError("prune pending invitations", err)
	}
	return tag.RowsAffected(), nil
}
