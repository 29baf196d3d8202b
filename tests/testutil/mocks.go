package testutil

import (
	"context"

	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockDirectoryService mocks the DirectoryService
type MockDirectoryService struct {
	mock.Mock
}

func (m *MockDirectoryService) GetGuardian(ctx context.Context, id uuid.UUID) (*models.Guardian, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Guardian), args.Error(1)
}

func (m *MockDirectoryService) CreateChild(ctx context.Context, guardianID uuid.UUID, name string) (*models.Child, error) {
	args := m.Called(ctx, guardianID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Child), args.Error(1)
}

func (m *MockDirectoryService) ListChildren(ctx context.Context, guardianID uuid.UUID) ([]models.Child, error) {
	args := m.Called(ctx, guardianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Child), args.Error(1)
}

// MockConnectionService mocks the ConnectionService
type MockConnectionService struct {
	mock.Mock
}

func (m *MockConnectionService) CreateRequest(ctx context.Context, callerID uuid.UUID, input services.CreateRequestInput) (*models.ConnectionRequest, error) {
	args := m.Called(ctx, callerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectionRequest), args.Error(1)
}

func (m *MockConnectionService) Respond(ctx context.Context, callerID, requestID uuid.UUID, decision models.Decision, responderChildID *uuid.UUID) (*services.RespondResult, error) {
	args := m.Called(ctx, callerID, requestID, decision, responderChildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RespondResult), args.Error(1)
}

func (m *MockConnectionService) ListConnections(ctx context.Context, callerID, childID uuid.UUID) ([]models.Connection, error) {
	args := m.Called(ctx, callerID, childID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Connection), args.Error(1)
}

func (m *MockConnectionService) ListIncomingRequests(ctx context.Context, guardianID uuid.UUID) ([]models.ConnectionRequest, error) {
	args := m.Called(ctx, guardianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConnectionRequest), args.Error(1)
}

// MockActivityService mocks the ActivityService
type MockActivityService struct {
	mock.Mock
}

func (m *MockActivityService) Create(ctx context.Context, callerID uuid.UUID, input services.CreateActivityInput) (*services.CreateActivityResult, error) {
	args := m.Called(ctx, callerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CreateActivityResult), args.Error(1)
}

func (m *MockActivityService) GetByID(ctx context.Context, callerID, id uuid.UUID) (*models.Activity, error) {
	args := m.Called(ctx, callerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Activity), args.Error(1)
}

func (m *MockActivityService) ListByHost(ctx context.Context, callerID, childID uuid.UUID) ([]models.Activity, error) {
	args := m.Called(ctx, callerID, childID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Activity), args.Error(1)
}

// MockInvitationService mocks the InvitationService
type MockInvitationService struct {
	mock.Mock
}

func (m *MockInvitationService) Invite(ctx context.Context, callerID, activityID uuid.UUID, input services.InviteInput) (*models.Invitation, error) {
	args := m.Called(ctx, callerID, activityID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationService) CreatePending(ctx context.Context, callerID, activityID uuid.UUID, targets []models.PendingTarget, message *string) ([]models.PendingInvitation, error) {
	args := m.Called(ctx, callerID, activityID, targets, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingInvitation), args.Error(1)
}

func (m *MockInvitationService) Respond(ctx context.Context, callerID, invitationID uuid.UUID, decision models.Decision) (*models.Invitation, error) {
	args := m.Called(ctx, callerID, invitationID, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationService) MarkViewed(ctx context.Context, callerID, invitationID uuid.UUID) (*models.Invitation, error) {
	args := m.Called(ctx, callerID, invitationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationService) ListForActivity(ctx context.Context, callerID, activityID uuid.UUID) (*models.Participants, error) {
	args := m.Called(ctx, callerID, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participants), args.Error(1)
}

func (m *MockInvitationService) ListForGuardian(ctx context.Context, guardianID uuid.UUID) ([]models.Invitation, error) {
	args := m.Called(ctx, guardianID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invitation), args.Error(1)
}
