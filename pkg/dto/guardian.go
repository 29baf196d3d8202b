package dto

import "github.com/google/uuid"

type CreateChildRequest struct {
	Name string `json:"name"`
}

type ChildResponse struct {
	ID         uuid.UUID `json:"id"`
	GuardianID uuid.UUID `json:"guardian_id"`
	Name       string    `json:"name"`
}

type GuardianResponse struct {
	ID       uuid.UUID       `json:"id"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Children []ChildResponse `json:"children"`
}
