package services

import (
	"context"
	"testing"

	"github.com/dimitrije/playdate-api/internal/apperror"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDirectoryService(t *testing.T) (*DirectoryService, pgxmock.PgxPoolIface) {
	t.Helper()
	db, mock := setupMockDB(t)
	return NewDirectoryService(db), mock
}

func guardianRow(id uuid.UUID, email, name string) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "email", "name", "created_at", "updated_at"}).
		AddRow(id, email, name, fixedNow, fixedNow)
}

func TestDirectoryService_FindOrCreateGuardian_Existing(t *testing.T) {
	svc, mock := setupDirectoryService(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM guardians WHERE email`).
		WithArgs("ana@example.com").
		WillReturnRows(guardianRow(id, "ana@example.com", "Ana"))

	g, err := svc.FindOrCreateGuardian(ctx, "ana@example.com", "Someone Else")

	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	assert.Equal(t, "Ana", g.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryService_FindOrCreateGuardian_Creates(t *testing.T) {
	svc, mock := setupDirectoryService(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM guardians WHERE email`).
		WithArgs("bo@example.com").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO guardians \(email, name\)`).
		WithArgs("bo@example.com", "Bo").
		WillReturnRows(guardianRow(id, "bo@example.com", "Bo"))

	g, err := svc.FindOrCreateGuardian(ctx, "bo@example.com", "Bo")

	require.NoError(t, err)
	assert.Equal(t, id, g.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryService_GetGuardian_NotFound(t *testing.T) {
	svc, mock := setupDirectoryService(t)
	ctx := context.Background()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM guardians WHERE id`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetGuardian(ctx, id)

	assert.ErrorIs(t, err, apperror.ErrGuardianNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryService_CreateChild(t *testing.T) {
	svc, mock := setupDirectoryService(t)
	ctx := context.Background()
	guardianID := uuid.New()
	childID := uuid.New()

	mock.ExpectQuery(`INSERT INTO children \(guardian_id, name\)`).
		WithArgs(guardianID, "Mia").
		WillReturnRows(childRow(models.Child{ID: childID, GuardianID: guardianID, Name: "Mia"}))

	child, err := svc.CreateChild(ctx, guardianID, "Mia")

	require.NoError(t, err)
	assert.Equal(t, childID, child.ID)
	assert.Equal(t, guardianID, child.GuardianID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryService_CreateChild_EmptyName(t *testing.T) {
	svc, mock := setupDirectoryService(t)

	_, err := svc.CreateChild(context.Background(), uuid.New(), "")

	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryService_GetChild_NotFound(t *testing.T) {
	svc, mock := setupDirectoryService(t)
	childID := uuid.New()

	mock.ExpectQuery(`SELECT id, guardian_id, name, created_at FROM children WHERE id`).
		WithArgs(childID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.GetChild(context.Background(), childID)

	assert.ErrorIs(t, err, apperror.ErrChildNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryService_ListChildren(t *testing.T) {
	svc, mock := setupDirectoryService(t)
	guardianID := uuid.New()

	rows := pgxmock.NewRows([]string{"id", "guardian_id", "name", "created_at"}).
		AddRow(uuid.New(), guardianID, "Mia", fixedNow).
		AddRow(uuid.New(), guardianID, "Leo", fixedNow)
	mock.ExpectQuery(`SELECT .+ FROM children WHERE guardian_id`).
		WithArgs(guardianID).
		WillReturnRows(rows)

	children, err := svc.ListChildren(context.Background(), guardianID)

	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Mia", children[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
