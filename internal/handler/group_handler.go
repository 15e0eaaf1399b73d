package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"oshikatsu/internal/model"
	"oshikatsu/internal/service"
)

// GroupHandler serves the caller's oshi groups.
type GroupHandler struct {
	svc service.GroupService
}

// NewGroupHandler creates a group handler.
func NewGroupHandler(svc service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// CreateGroupRequest is the payload for creating a group.
type CreateGroupRequest struct {
	GroupName   string  `json:"groupName" validate:"required,notblank,max=100"`
	Company     string  `json:"company" validate:"max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (r CreateGroupRequest) changes() model.GroupChanges {
	return model.GroupChanges{Name: r.GroupName, Company: r.Company, Description: r.Description}
}

// UpdateGroupRequest replaces the editable fields of a group.
type UpdateGroupRequest struct {
	GroupID uuid.UUID `json:"groupId" validate:"required"`
	CreateGroupRequest
}

// GroupSearchQuery selects exact or fuzzy name matching.
type GroupSearchQuery struct {
	Full      bool   `query:"full"`
	Fuzzy     bool   `query:"fuzzy"`
	GroupName string `query:"groupName" validate:"required"`
}

// CompanyQuery filters groups by company.
type CompanyQuery struct {
	Company string `query:"company" validate:"required"`
}

// Create godoc
// @Summary Create a group
// @Tags oshi-groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateGroupRequest true "Group"
// @Success 201 {object} GroupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /oshi-groups/create [post]
func (h *GroupHandler) Create(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req CreateGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.svc.Create(c.Request().Context(), session, req.changes())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, newGroupResponse(group))
}

// Search godoc
// @Summary Find groups by name
// @Description full=true returns the single exact match; fuzzy=true returns every group whose name contains groupName.
// @Tags oshi-groups
// @Produce json
// @Security BearerAuth
// @Param full query bool false "Exact match"
// @Param fuzzy query bool false "Substring match"
// @Param groupName query string true "Name or fragment"
// @Success 200 {object} GroupResponse
// @Success 200 {array} GroupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-groups/list-group [get]
func (h *GroupHandler) Search(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var q GroupSearchQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	mode, err := service.ResolveSearchMode(q.Full, q.Fuzzy)
	if err != nil {
		return respondError(err)
	}

	ctx := c.Request().Context()
	if mode == service.SearchExact {
		group, err := h.svc.FindExact(ctx, session, q.GroupName)
		if err != nil {
			return respondError(err)
		}
		return c.JSON(http.StatusOK, newGroupResponse(group))
	}

	groups, err := h.svc.FindFuzzy(ctx, session, q.GroupName)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newGroupResponses(groups))
}

// ListByCompany godoc
// @Summary Find groups by company
// @Tags oshi-groups
// @Produce json
// @Security BearerAuth
// @Param company query string true "Company"
// @Success 200 {array} GroupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-groups/list-company [get]
func (h *GroupHandler) ListByCompany(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var q CompanyQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	groups, err := h.svc.FindByCompany(c.Request().Context(), session, q.Company)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newGroupResponses(groups))
}

// List godoc
// @Summary List every group of the caller
// @Tags oshi-groups
// @Produce json
// @Security BearerAuth
// @Success 200 {array} GroupResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-groups/list [get]
func (h *GroupHandler) List(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	groups, err := h.svc.FindByOwner(c.Request().Context(), session)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newGroupResponses(groups))
}

// Update godoc
// @Summary Update a group
// @Tags oshi-groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateGroupRequest true "Group"
// @Success 200 {object} GroupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /oshi-groups/update [post]
func (h *GroupHandler) Update(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req UpdateGroupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	group, err := h.svc.Update(c.Request().Context(), session, req.GroupID, req.changes())
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newGroupResponse(group))
}

// Delete godoc
// @Summary Delete a group and its members
// @Tags oshi-groups
// @Security BearerAuth
// @Param groupId path string true "Group ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-groups/delete/{groupId} [delete]
func (h *GroupHandler) Delete(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "groupId")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), session, id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
