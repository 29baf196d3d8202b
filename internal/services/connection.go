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

type ConnectionService struct {
	db         *database.DB
	engine     *ResolutionEngine
	dispatcher NotificationDispatcher
	now        func() time.Time
}

func NewConnectionService(db *database.DB, engine *ResolutionEngine, dispatcher NotificationDispatcher) *ConnectionService {
	return &ConnectionService{db: db, engine: engine, dispatcher: dispatcher, now: time.Now}
}

type CreateRequestInput struct {
	RequesterChildID uuid.UUID
	TargetGuardianID uuid.UUID
	TargetChildID    *uuid.UUID
	Message          *string
}

// RespondResult is the outcome of answering a connection request.
// Connection and Resolution are nil on reject; Resolution is also nil when
// the accept was a repeat of an earlier one.
type RespondResult struct {
	Request    *models.ConnectionRequest
	Connection *models.Connection
	Resolution *Resolution
}

const requestColumns = `id, requester_guardian_id, requester_child_id, target_guardian_id, target_child_id,
	message, status, created_at, responded_at`

func scanRequest(row pgx.Row) (*models.ConnectionRequest, error) {
	var r models.ConnectionRequest
	err := row.Scan(
		&r.ID, &r.RequesterGuardianID, &r.RequesterChildID, &r.TargetGuardianID, &r.TargetChildID,
		&r.Message, &r.Status, &r.CreatedAt, &r.RespondedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const connectionColumns = `id, guardian_a_id, child_a_id, guardian_b_id, child_b_id, request_id, created_at`

func scanConnection(row pgx.Row) (*models.Connection, error) {
	var c models.Connection
	err := row.Scan(&c.ID, &c.GuardianAID, &c.ChildAID, &c.GuardianBID, &c.ChildBID, &c.RequestID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// findConnection returns the connection between two children, or nil.
func findConnection(ctx context.Context, q database.Querier, childX, childY uuid.UUID) (*models.Connection, error) {
	pair := models.NewConnection(models.Side{ChildID: childX}, models.Side{ChildID: childY})
	conn, err := scanConnection(q.QueryRow(ctx, `
		SELECT `+connectionColumns+`
		FROM connections WHERE child_a_id = $1 AND child_b_id = $2
	`, pair.ChildAID, pair.ChildBID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("load connection", err)
	}
	return conn, nil
}

func (s *ConnectionService) CreateRequest(ctx context.Context, callerID uuid.UUID, input CreateRequestInput) (*models.ConnectionRequest, error) {
	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	q := s.db.Pool
	if _, err := requireChildOf(ctx, q, input.RequesterChildID, callerID, apperror.ErrInvalidChildOwnership); err != nil {
		return nil, err
	}
	if input.TargetGuardianID == callerID {
		return nil, apperror.ErrSelfConnection
	}

	exists, err := guardianExists(ctx, q, input.TargetGuardianID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ErrGuardianNotFound
	}

	if input.TargetChildID != nil {
		if _, err := requireChildOf(ctx, q, *input.TargetChildID, input.TargetGuardianID, apperror.ErrChildNotOwnedByGuardian); err != nil {
			return nil, err
		}
		conn, err := findConnection(ctx, q, input.RequesterChildID, *input.TargetChildID)
		if err != nil {
			return nil, err
		}
		if conn != nil {
			return nil, apperror.AlreadyConnected(conn.ID)
		}
	}

	req, err := scanRequest(q.QueryRow(ctx, `
		INSERT INTO connection_requests (requester_guardian_id, requester_child_id, target_guardian_id, target_child_id, message)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING `+requestColumns,
		callerID, input.RequesterChildID, input.TargetGuardianID, input.TargetChildID, input.Message,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var existingID uuid.UUID
		err = q.QueryRow(ctx, `
			SELECT id FROM connection_requests
			WHERE requester_guardian_id = $1 AND requester_child_id = $2 AND target_guardian_id = $3
			  AND target_child_id IS NOT DISTINCT FROM $4 AND status = 'pending'
		`, callerID, input.RequesterChildID, input.TargetGuardianID, input.TargetChildID).Scan(&existingID)
		if err != nil {
			return nil, storeError("load duplicate connection request", err)
		}
		return nil, apperror.DuplicatePendingRequest(existingID)
	}
	if err != nil {
		return nil, storeError("create connection request", err)
	}

	childID := req.RequesterChildID
	dispatchAll(ctx, s.dispatcher, []models.Notification{{
		Kind:                models.NotificationConnectionRequested,
		RecipientGuardianID: req.TargetGuardianID,
		SubjectID:           req.ID,
		ChildID:             &childID,
		CreatedAt:           s.now(),
	}})

	return req, nil
}

func (s *ConnectionService) GetRequest(ctx context.Context, id uuid.UUID) (*models.ConnectionRequest, error) {
	req, err := scanRequest(s.db.Pool.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM connection_requests WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrRequestNotFound
	}
	if err != nil {
		return nil, storeError("get connection request", err)
	}
	return req, nil
}

// Respond answers a connection request as callerID, who must be its target
// guardian. Accepting creates the connection and runs the resolution engine
// in the same transaction. Accepting an already accepted request returns
// the existing connection.
func (s *ConnectionService) Respond(ctx context.Context, callerID, requestID uuid.UUID, decision models.Decision, responderChildID *uuid.UUID) (*RespondResult, error) {
	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := scanRequest(tx.QueryRow(ctx, `
		SELECT `+requestColumns+` FROM connection_requests WHERE id = $1 FOR UPDATE
	`, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrRequestNotFound
	}
	if err != nil {
		return nil, storeError("lock connection request", err)
	}

	if req.TargetGuardianID != callerID {
		return nil, apperror.Forbidden("only the target guardian can respond to this request")
	}

	switch req.Status {
	case models.RequestStatusAccepted:
		if decision != models.DecisionAccept || req.TargetChildID == nil {
			return nil, apperror.AlreadyResolved(req.ID, string(req.Status))
		}
		conn, err := findConnection(ctx, tx, req.RequesterChildID, *req.TargetChildID)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, apperror.ErrConnectionNotFound
		}
		return &RespondResult{Request: req, Connection: conn}, nil
	case models.RequestStatusRejected:
		return nil, apperror.AlreadyResolved(req.ID, string(req.Status))
	}

	now := s.now()
	if decision == models.DecisionReject {
		if _, err := tx.Exec(ctx, `
			UPDATE connection_requests SET status = $2, responded_at = $3 WHERE id = $1
		`, req.ID, models.RequestStatusRejected, now); err != nil {
			return nil, storeError("reject connection request", err)
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM pending_invitations WHERE connection_request_id = $1
		`, req.ID); err != nil {
			return nil, storeError("delete request pending invitations", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, storeError("commit transaction", err)
		}
		req.Status = models.RequestStatusRejected
		req.RespondedAt = &now
		return &RespondResult{Request: req}, nil
	}

	targetChildID, err := s.responderChild(ctx, tx, req, callerID, responderChildID)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE connection_requests SET status = $2, target_child_id = $3, responded_at = $4 WHERE id = $1
	`, req.ID, models.RequestStatusAccepted, targetChildID, now); err != nil {
		return nil, storeError("accept connection request", err)
	}
	req.Status = models.RequestStatusAccepted
	req.TargetChildID = &targetChildID
	req.RespondedAt = &now

	conn, err := s.createConnection(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	resolution, err := s.engine.Resolve(ctx, tx, *conn, &req.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit transaction", err)
	}

	log.WithFields(log.Fields{
		"request_id":    req.ID,
		"connection_id": conn.ID,
	}).Info("connection request accepted")

	requesterChild := req.RequesterChildID
	notifications := []models.Notification{{
		Kind:                models.NotificationConnectionAccepted,
		RecipientGuardianID: req.RequesterGuardianID,
		SubjectID:           conn.ID,
		ChildID:             &requesterChild,
		CreatedAt:           now,
	}}
	notifications = append(notifications, invitationNotifications(resolution.Invitations(), now)...)
	dispatchAll(ctx, s.dispatcher, notifications)

	return &RespondResult{Request: req, Connection: conn, Resolution: resolution}, nil
}

// responderChild picks the target guardian's child for the new connection.
func (s *ConnectionService) responderChild(ctx context.Context, q database.Querier, req *models.ConnectionRequest, callerID uuid.UUID, responderChildID *uuid.UUID) (uuid.UUID, error) {
	if req.TargetChildID != nil {
		return *req.TargetChildID, nil
	}
	if responderChildID != nil {
		if _, err := requireChildOf(ctx, q, *responderChildID, callerID, apperror.ErrInvalidChildOwnership); err != nil {
			return uuid.Nil, err
		}
		return *responderChildID, nil
	}

	rows, err := q.Query(ctx, `SELECT id FROM children WHERE guardian_id = $1 LIMIT 2`, callerID)
	if err != nil {
		return uuid.Nil, storeError("list responder children", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return uuid.Nil, fmt.Errorf("failed to scan child id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return uuid.Nil, storeError("list responder children", err)
	}
	if len(ids) != 1 {
		return uuid.Nil, apperror.ErrTargetChildRequired
	}
	return ids[0], nil
}

// createConnection inserts the connection for an accepted request, or
// returns the one that already links the same children.
func (s *ConnectionService) createConnection(ctx context.Context, q database.Querier, req *models.ConnectionRequest) (*models.Connection, error) {
	conn := models.NewConnection(
		models.Side{GuardianID: req.RequesterGuardianID, ChildID: req.RequesterChildID},
		models.Side{GuardianID: req.TargetGuardianID, ChildID: *req.TargetChildID},
	)

	created, err := scanConnection(q.QueryRow(ctx, `
		INSERT INTO connections (guardian_a_id, child_a_id, guardian_b_id, child_b_id, request_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (child_a_id, child_b_id) DO NOTHING
		RETURNING `+connectionColumns,
		conn.GuardianAID, conn.ChildAID, conn.GuardianBID, conn.ChildBID, req.ID,
	))
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storeError("create connection", err)
	}

	existing, err := findConnection(ctx, q, conn.ChildAID, conn.ChildBID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("failed to create connection: conflicting row vanished")
	}
	return existing, nil
}

// ResolveConnection re-runs the resolution engine for an existing
// connection. It is the repair path after a resolution was interrupted.
func (s *ConnectionService) ResolveConnection(ctx context.Context, connectionID uuid.UUID) (*Resolution, error) {
	ctx, cancel := s.db.WithTimeout(ctx)
	defer cancel()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, storeError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	conn, err := scanConnection(tx.QueryRow(ctx, `
		SELECT `+connectionColumns+` FROM connections WHERE id = $1 FOR UPDATE
	`, connectionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrConnectionNotFound
	}
	if err != nil {
		return nil, storeError("lock connection", err)
	}

	resolution, err := s.engine.Resolve(ctx, tx, *conn, conn.RequestID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError("commit transaction", err)
	}

	dispatchAll(ctx, s.dispatcher, invitationNotifications(resolution.Invitations(), s.now()))
	return resolution, nil
}

func (s *ConnectionService) GetConnection(ctx context.Context, id uuid.UUID) (*models.Connection, error) {
	conn, err := scanConnection(s.db.Pool.QueryRow(ctx, `
		SELECT `+connectionColumns+` FROM connections WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrConnectionNotFound
	}
	if err != nil {
		return nil, storeError("get connection", err)
	}
	return conn, nil
}

// ListConnections returns every accepted connection involving childID.
// callerID must own the child.
func (s *ConnectionService) ListConnections(ctx context.Context, callerID, childID uuid.UUID) ([]models.Connection, error) {
	if _, err := requireChildOf(ctx, s.db.Pool, childID, callerID, apperror.ErrInvalidChildOwnership); err != nil {
		return nil, err
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE child_a_id = $1 OR child_b_id = $1
		ORDER BY created_at, id
	`, childID)
	if err != nil {
		return nil, storeError("list connections", err)
	}
	defer rows.Close()

	var conns []models.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, *conn)
	}
	return conns, rows.Err()
}

// ListIncomingRequests returns pending requests addressed to guardianID.
func (s *ConnectionService) ListIncomingRequests(ctx context.Context, guardianID uuid.UUID) ([]models.ConnectionRequest, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM connection_requests
		WHERE target_guardian_id = $1 AND status = 'pending'
		ORDER BY created_at, id
	`, guardianID)
	if err != nil {
		return nil, storeError("list connection requests", err)
	}
	defer rows.Close()

	var reqs []models.ConnectionRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}
