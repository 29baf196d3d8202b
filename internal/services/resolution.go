package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dimitrije/playdate-api/internal/database"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ResolutionEngine materializes invitations when a connection is accepted.
// It never opens its own transaction: callers pass the transaction that
// created or locked the connection so both fan-outs commit together.
type ResolutionEngine struct {
	now func() time.Time
}

func NewResolutionEngine() *ResolutionEngine {
	return &ResolutionEngine{now: time.Now}
}

// Resolution reports what a single Resolve run created.
type Resolution struct {
	Promoted     []models.Invitation
	AutoNotified []models.Invitation
	Rekeyed      int64
}

// Invitations returns every invitation created by the run, promoted first.
func (r *Resolution) Invitations() []models.Invitation {
	out := make([]models.Invitation, 0, len(r.Promoted)+len(r.AutoNotified))
	out = append(out, r.Promoted...)
	return append(out, r.AutoNotified...)
}

// Resolve runs pending promotion and auto-notify for both sides of conn.
// requestID is the accepted request, when there is one; pending invitations
// keyed to it are matched as well as those keyed by guardian. Every write is
// guarded by a uniqueness check, so running Resolve twice for the same
// connection creates nothing the second time.
func (e *ResolutionEngine) Resolve(ctx context.Context, q database.Querier, conn models.Connection, requestID *uuid.UUID) (*Resolution, error) {
	res := &Resolution{}
	today := models.DateOnly(e.now().UTC())

	for _, host := range []models.Side{conn.SideA(), conn.SideB()} {
		other, _ := conn.Other(host.ChildID)

		promoted, err := e.promote(ctx, q, host, other, requestID)
		if err != nil {
			return nil, err
		}
		res.Promoted = append(res.Promoted, promoted...)

		notified, err := e.autoNotify(ctx, q, host, other, today)
		if err != nil {
			return nil, err
		}
		res.AutoNotified = append(res.AutoNotified, notified...)
	}

	if requestID != nil {
		n, err := rekeyRequestPendings(ctx, q, *requestID)
		if err != nil {
			return nil, err
		}
		res.Rekeyed = n
	}

	log.WithFields(log.Fields{
		"connection_id": conn.ID,
		"promoted":      len(res.Promoted),
		"auto_notified": len(res.AutoNotified),
		"rekeyed":       res.Rekeyed,
	}).Info("connection resolved")

	return res, nil
}

type promotable struct {
	id         uuid.UUID
	activityID uuid.UUID
	inviterID  uuid.UUID
	message    *string
}

// promote turns pending invitations for activities hosted by host into
// invitations for other's child. A guardian-keyed pending naming a specific
// child only matches when that child is the one just connected.
func (e *ResolutionEngine) promote(ctx context.Context, q database.Querier, host, other models.Side, requestID *uuid.UUID) ([]models.Invitation, error) {
	rows, err := q.Query(ctx, `
		SELECT p.id, p.activity_id, p.created_by_guardian_id, p.message
		FROM pending_invitations p
		JOIN activities a ON a.id = p.activity_id
		WHERE a.host_child_id = $1
		  AND (
		    (p.target_kind = 'guardian' AND p.target_guardian_id = $2
		      AND (p.invited_child_id IS NULL OR p.invited_child_id = $3))
		    OR (p.target_kind = 'connection_request' AND p.connection_request_id = $4
		      AND p.invited_child_id = $3)
		  )
		ORDER BY p.created_at, p.id
		FOR UPDATE OF p
	`, host.ChildID, other.GuardianID, other.ChildID, requestID)
	if err != nil {
		return nil, storeError("load pending invitations", err)
	}

	var matches []promotable
	for rows.Next() {
		var m promotable
		if err := rows.Scan(&m.id, &m.activityID, &m.inviterID, &m.message); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan pending invitation: %w", err)
		}
		matches = append(matches, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeError("load pending invitations", err)
	}

	var created []models.Invitation
	for _, m := range matches {
		inv, isNew, err := insertInvitation(ctx, q, models.Invitation{
			ActivityID:        m.activityID,
			InviterGuardianID: m.inviterID,
			InvitedGuardianID: other.GuardianID,
			InvitedChildID:    other.ChildID,
			Message:           m.message,
		})
		if err != nil {
			return nil, err
		}
		if _, err := q.Exec(ctx, `DELETE FROM pending_invitations WHERE id = $1`, m.id); err != nil {
			return nil, storeError("delete promoted pending invitation", err)
		}
		if isNew {
			created = append(created, *inv)
		}
	}
	return created, nil
}

// autoNotify invites other's child to every upcoming auto-notify activity
// hosted by host.
func (e *ResolutionEngine) autoNotify(ctx context.Context, q database.Querier, host, other models.Side, today time.Time) ([]models.Invitation, error) {
	rows, err := q.Query(ctx, `
		INSERT INTO invitations (activity_id, inviter_guardian_id, invited_guardian_id, invited_child_id, status)
		SELECT a.id, $2::uuid, $3::uuid, $4::uuid, 'pending'
		FROM activities a
		WHERE a.host_child_id = $1
		  AND a.auto_notify_new_connections
		  AND a.start_date >= $5::date
		ORDER BY a.start_date, a.id
		ON CONFLICT (activity_id, invited_child_id) DO NOTHING
		RETURNING `+invitationColumns,
		host.ChildID, host.GuardianID, other.GuardianID, other.ChildID, today,
	)
	if err != nil {
		return nil, storeError("auto-notify invitations", err)
	}
	defer rows.Close()

	var created []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		created = append(created, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("auto-notify invitations", err)
	}
	return created, nil
}

// rekeyRequestPendings moves pending invitations still keyed to an accepted
// request over to the invited child's guardian. The request is terminal, so
// without this they could never resolve.
func rekeyRequestPendings(ctx context.Context, q database.Querier, requestID uuid.UUID) (int64, error) {
	// Drop the ones that would collide with an existing guardian-keyed row.
	_, err := q.Exec(ctx, `
		DELETE FROM pending_invitations p
		USING children c, pending_invitations g
		WHERE p.connection_request_id = $1
		  AND c.id = p.invited_child_id
		  AND g.activity_id = p.activity_id
		  AND g.target_kind = 'guardian'
		  AND g.target_guardian_id = c.guardian_id
		  AND g.invited_child_id = p.invited_child_id
	`, requestID)
	if err != nil {
		return 0, storeError("drop duplicate request pendings", err)
	}

	tag, err := q.Exec(ctx, `
		UPDATE pending_invitations p
		SET target_kind = 'guardian', target_guardian_id = c.guardian_id, connection_request_id = NULL
		FROM children c
		WHERE p.connection_request_id = $1 AND c.id = p.invited_child_id
	`, requestID)
	if err != nil {
		return 0, storeError("rekey request pendings", err)
	}
	return tag.RowsAffected(), nil
}
