package handlers

import (
	"github.com/dimitrije/playdate-api/internal/middleware"
	"github.com/dimitrije/playdate-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type GuardianHandler struct {
	directory DirectoryServiceInterface
}

func NewGuardianHandler(directory DirectoryServiceInterface) *GuardianHandler {
	return &GuardianHandler{directory: directory}
}

func (h *GuardianHandler) GetMe(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	ctx := c.Request.Context()
	guardian, err := h.directory.GetGuardian(ctx, guardianID)
	if err != nil {
		respondError(c, err)
		return
	}

	children, err := h.directory.ListChildren(ctx, guardianID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := dto.GuardianResponse{
		ID:       guardian.ID,
		Email:    guardian.Email,
		Name:     guardian.Name,
		Children: make([]dto.ChildResponse, len(children)),
	}
	for i, child := range children {
		response.Children[i] = dto.ChildResponse{ID: child.ID, GuardianID: child.GuardianID, Name: child.Name}
	}

	_ = c.JSON(200, response)
}

func (h *GuardianHandler) CreateChild(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateChildRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	child, err := h.directory.CreateChild(c.Request.Context(), guardianID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(201, dto.ChildResponse{ID: child.ID, GuardianID: child.GuardianID, Name: child.Name})
}
