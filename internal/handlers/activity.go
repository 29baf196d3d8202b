package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/dimitrije/playdate-api/internal/middleware"
	"github.com/dimitrije/playdate-api/internal/models"
	"github.com/dimitrije/playdate-api/internal/services"
	"github.com/dimitrije/playdate-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type ActivityHandler struct {
	activities ActivityServiceInterface
}

func NewActivityHandler(activities ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a YYYY-MM-DD date", field)
	}
	return d, nil
}

func toActivityInput(req dto.CreateActivityRequest) (services.CreateActivityInput, error) {
	input := services.CreateActivityInput{
		HostChildID:              req.HostChildID,
		Name:                     req.Name,
		Description:              req.Description,
		Location:                 req.Location,
		StartTime:                req.StartTime,
		EndTime:                  req.EndTime,
		IsShared:                 req.IsShared,
		AutoNotifyNewConnections: req.AutoNotifyNewConnections,
		IsRecurring:              req.IsRecurring,
		SeriesID:                 req.SeriesID,
		JointHostChildIDs:        req.JointHostChildIDs,
		HostAssignments:          req.HostAssignments,
	}

	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return input, err
	}
	input.StartDate = start

	if req.EndDate != nil {
		end, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			return input, err
		}
		input.EndDate = &end
	}

	for _, day := range req.RecurringDays {
		w, ok := weekdays[strings.ToLower(day)]
		if !ok {
			return input, fmt.Errorf("unknown recurring day %q", day)
		}
		input.RecurringDays = append(input.RecurringDays, w)
	}

	for _, raw := range req.Dates {
		d, err := parseDate("dates", raw)
		if err != nil {
			return input, err
		}
		input.Dates = append(input.Dates, d)
	}

	for key := range req.HostAssignments {
		if _, err := parseDate("host_assignments", key); err != nil {
			return input, err
		}
	}

	if len(req.InvitedChildren) > 0 {
		input.InvitedChildren = make(map[uuid.UUID][]services.Invitee)
		for _, inv := range req.InvitedChildren {
			host := req.HostChildID
			if inv.HostChildID != nil {
				host = *inv.HostChildID
			}
			input.InvitedChildren[host] = append(input.InvitedChildren[host], services.Invitee{
				GuardianID: inv.GuardianID,
				ChildID:    inv.ChildID,
			})
		}
	}

	return input, nil
}

func (h *ActivityHandler) Create(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateActivityRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.HostChildID == uuid.Nil {
		c.BadRequest("host_child_id is required")
		return
	}
	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	input, err := toActivityInput(req)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	result, err := h.activities.Create(c.Request.Context(), guardianID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	response := dto.CreateActivityResponse{
		SeriesID:           result.SeriesID,
		Activities:         result.Activities,
		Invitations:        result.Invitations,
		PendingInvitations: make([]dto.PendingInvitationResponse, len(result.PendingInvitations)),
	}
	for i, p := range result.PendingInvitations {
		response.PendingInvitations[i] = pendingResponse(p)
	}

	_ = c.JSON(201, response)
}

func (h *ActivityHandler) Get(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	activityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid activity id")
		return
	}

	activity, err := h.activities.GetByID(c.Request.Context(), guardianID, activityID)
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(200, activity)
}

func (h *ActivityHandler) ListByHost(c *drift.Context) {
	guardianID := middleware.GetGuardianID(c)
	if guardianID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	childID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid child id")
		return
	}

	activities, err := h.activities.ListByHost(c.Request.Context(), guardianID, childID)
	if err != nil {
		respondError(c, err)
		return
	}

	_ = c.JSON(200, activities)
}
