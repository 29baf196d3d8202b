package handlers

import (
	"context"

	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/google/uuid"
)

// DirectoryServiceInterface defines the methods used by handlers from DirectoryService
type DirectoryServiceInterface interface {
	GetGuardian(ctx context.Context, id uuid.UUID) (*models.Guardian, error)
	CreateChild(ctx context.Context, guardianID uuid.UUID, name string) (*models.Child, error)
	ListChildren(ctx context.Context, guardianID uuid.UUID) ([]models.Child, error)
}

// ConnectionServiceInterface defines the methods used by handlers from ConnectionService
type ConnectionServiceInterface interface {
	CreateRequest(ctx context.Context, callerID uuid.UUID, input services.CreateRequestInput) (*models.ConnectionRequest, error)
	Respond(ctx context.Context, callerID, requestID uuid.UUID, decision models.Decision, responderChildID *uuid.UUID) (*services.RespondResult, error)
	ListConnections(ctx context.Context, callerID, childID uuid.UUID) ([]models.Connection, error)
	ListIncomingRequests(ctx context.Context, guardianID uuid.UUID) ([]models.ConnectionRequest, error)
}

// ActivityServiceInterface defines the methods used by handlers from ActivityService
type ActivityServiceInterface interface {
	Create(ctx context.Context, callerID uuid.UUID, input services.CreateActivityInput) (*services.CreateActivityResult, error)
	GetByID(ctx context.Context, callerID, id uuid.UUID) (*models.Activity, error)
	ListByHost(ctx context.Context, callerID, childID uuid.UUID) ([]models.Activity, error)
}

// InvitationServiceInterface defines the methods used by handlers from InvitationService
type InvitationServiceInterface interface {
	Invite(ctx context.Context, callerID, activityID uuid.UUID, input services.InviteInput) (*models.Invitation, error)
	CreatePending(ctx context.Context, callerID, activityID uuid.UUID, targets []models.PendingTarget, message *string) ([]models.PendingInvitation, error)
	Respond(ctx context.Context, callerID, invitationID uuid.UUID, decision models.Decision) (*models.Invitation, error)
	MarkViewed(ctx context.Context, callerID, invitationID uuid.UUID) (*models.Invitation, error)
	ListForActivity(ctx context.Context, callerID, activityID uuid.UUID) (*models.Participants, error)
	ListForGuardian(ctx context.Context, guardianID uuid.UUID) ([]models.Invitation, error)
}

// Ensure services implement interfaces
var (
	_ DirectoryServiceInterface  = (*services.DirectoryService)(nil)
	_ ConnectionServiceInterface = (*services.ConnectionService)(nil)
	_ ActivityServiceInterface   = (*services.ActivityService)(nil)
	_ InvitationServiceInterface = (*services.InvitationService)(nil)
)
