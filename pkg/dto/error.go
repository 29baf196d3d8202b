package dto

import "github.com/google/uuid"

type ErrorResponse struct {
	Error      string     `json:"error"`
	Code       string     `json:"code,omitempty"`
	ExistingID *uuid.UUID `json:"existing_id,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
