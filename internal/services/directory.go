package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dimitrije/playdate-api/internal/apperror"
	"github.com/dimitrije/playdate-api/internal/database"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DirectoryService owns guardians and their children. Account lifecycle is
// handled elsewhere; this is the minimum the engine needs to resolve ids.
type DirectoryService struct {
	db *database.DB
}

func NewDirectoryService(db *database.DB) *DirectoryService {
	return &DirectoryService{db: db}
}

// FindOrCreateGuardian returns the guardian with email, creating it when
// missing.
func (s *DirectoryService) FindOrCreateGuardian(ctx context.Context, email, name string) (*models.Guardian, error) {
	guardian, err := s.GetGuardianByEmail(ctx, email)
	if err == nil {
		return guardian, nil
	}
	if !errors.Is(err, apperror.ErrGuardianNotFound) {
		return nil, err
	}

	var g models.Guardian
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO guardians (email, name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET updated_at = guardians.updated_at
		RETURNING id, email, name, created_at, updated_at
	`, email, name).Scan(&g.ID, &g.Email, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, storeError("create guardian", err)
	}
	return &g, nil
}

func (s *DirectoryService) GetGuardian(ctx context.Context, id uuid.UUID) (*models.Guardian, error) {
	var g models.Guardian
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, email, name, created_at, updated_at
		FROM guardians WHERE id = $1
	`, id).Scan(&g.ID, &g.Email, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrGuardianNotFound
	}
	if err != nil {
		return nil, storeError("get guardian", err)
	}
	return &g, nil
}

func (s *DirectoryService) GetGuardianByEmail(ctx context.Context, email string) (*models.Guardian, error) {
	var g models.Guardian
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, email, name, created_at, updated_at
		FROM guardians WHERE email = $1
	`, email).Scan(&g.ID, &g.Email, &g.Name, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.ErrGuardianNotFound
	}
	if err != nil {
		return nil, storeError("get guardian by email", err)
	}
	return &g, nil
}

func (s *DirectoryService) CreateChild(ctx context.Context, guardianID uuid.UUID, name string) (*models.Child, error) {
	if name == "" {
		return nil, apperror.Invalid("child name is required")
	}

	var c models.Child
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO children (guardian_id, name)
		VALUES ($1, $2)
		RETURNING id, guardian_id, name, created_at
	`, guardianID, name).Scan(&c.ID, &c.GuardianID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, storeError("create child", err)
	}
	return &c, nil
}

func (s *DirectoryService) GetChild(ctx context.Context, id uuid.UUID) (*models.Child, error) {
	return lookupChild(ctx, s.db.Pool, id)
}

func (s *DirectoryService) ListChildren(ctx context.Context, guardianID uuid.UUID) ([]models.Child, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, guardian_id, name, created_at
		FROM children WHERE guardian_id = $1
		ORDER BY created_at, id
	`, guardianID)
	if err != nil {
		return nil, storeError("list children", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var c models.Child
		if err := rows.Scan(&c.ID, &c.GuardianID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, c)
	}
	return children, rows.Err()
}
