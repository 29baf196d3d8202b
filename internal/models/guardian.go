package models

import (
	"time"

	"github.com/google/uuid"
)

type Guardian struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Child struct {
	ID         uuid.UUID `json:"id"`
	GuardianID uuid.UUID `json:"guardian_id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
}
