package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"oshikatsu/internal/errors"
	"oshikatsu/internal/model"
	"oshikatsu/internal/service"
)

// MemberHandler serves members of the caller's groups.
type MemberHandler struct {
	svc service.MemberService
}

// NewMemberHandler creates a member handler.
func NewMemberHandler(svc service.MemberService) *MemberHandler {
	return &MemberHandler{svc: svc}
}

// MemberFields are the editable member attributes. BirthDay is YYYY-MM-DD.
type MemberFields struct {
	MemberName     string `json:"memberName" validate:"required,notblank,max=100"`
	MemberNameKana string `json:"memberNameKana" validate:"required,notblank,max=100"`
	Gender         *uint8 `json:"gender" validate:"required,min=0,max=1"`
	BirthDay       string `json:"birthDay" validate:"required,datetime=2006-01-02"`
}

func (f MemberFields) changes() (model.MemberChanges, error) {
	birthDay, err := parseDate(f.BirthDay)
	if err != nil {
		return model.MemberChanges{}, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: map[string]string{"birthDay": "datetime=" + dateLayout},
		}).SetInternal(err)
	}
	changes := model.MemberChanges{
		Name:     f.MemberName,
		NameKana: f.MemberNameKana,
		BirthDay: birthDay,
	}
	if f.Gender != nil {
		changes.Gender = model.Gender(*f.Gender)
	}
	return changes, nil
}

// CreateMemberRequest adds a member to one of the caller's groups.
type CreateMemberRequest struct {
	GroupID uuid.UUID `json:"groupId" validate:"required"`
	MemberFields
}

// UpdateMemberRequest replaces the editable fields of a member.
type UpdateMemberRequest struct {
	MemberID uuid.UUID `json:"memberId" validate:"required"`
	MemberFields
}

// MemberSearchQuery selects exact or fuzzy name matching.
type MemberSearchQuery struct {
	Full       bool   `query:"full"`
	Fuzzy      bool   `query:"fuzzy"`
	MemberName string `query:"memberName" validate:"required"`
}

// GroupMembersQuery selects the members of one group.
type GroupMembersQuery struct {
	GroupID string `query:"groupId" validate:"required,uuid"`
}

// Create godoc
// @Summary Create a member
// @Tags oshi-members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMemberRequest true "Member"
// @Success 201 {object} MemberResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /oshi-members/create [post]
func (h *MemberHandler) Create(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req CreateMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	changes, err := req.changes()
	if err != nil {
		return err
	}

	member, err := h.svc.Create(c.Request().Context(), session, req.GroupID, changes)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, newMemberResponse(member))
}

// ListByGroup godoc
// @Summary List the members of a group
// @Tags oshi-members
// @Produce json
// @Security BearerAuth
// @Param groupId query string true "Group ID"
// @Success 200 {array} MemberResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-members/list-group [get]
func (h *MemberHandler) ListByGroup(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var q GroupMembersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	members, err := h.svc.FindByGroup(c.Request().Context(), session, uuid.MustParse(q.GroupID))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newMemberResponses(members))
}

// Search godoc
// @Summary Find members by name
// @Description full=true returns the earliest exact match; fuzzy=true returns every member whose name contains memberName.
// @Tags oshi-members
// @Produce json
// @Security BearerAuth
// @Param full query bool false "Exact match"
// @Param fuzzy query bool false "Substring match"
// @Param memberName query string true "Name or fragment"
// @Success 200 {object} MemberResponse
// @Success 200 {array} MemberResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-members/list-member [get]
func (h *MemberHandler) Search(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var q MemberSearchQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	mode, err := service.ResolveSearchMode(q.Full, q.Fuzzy)
	if err != nil {
		return respondError(err)
	}

	ctx := c.Request().Context()
	if mode == service.SearchExact {
		member, err := h.svc.FindExact(ctx, session, q.MemberName)
		if err != nil {
			return respondError(err)
		}
		return c.JSON(http.StatusOK, newMemberResponse(member))
	}

	members, err := h.svc.FindFuzzy(ctx, session, q.MemberName)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newMemberResponses(members))
}

// List godoc
// @Summary List every member of the caller
// @Tags oshi-members
// @Produce json
// @Security BearerAuth
// @Success 200 {array} MemberResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-members/list [get]
func (h *MemberHandler) List(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	members, err := h.svc.FindByOwner(c.Request().Context(), session)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newMemberResponses(members))
}

// Update godoc
// @Summary Update a member
// @Tags oshi-members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateMemberRequest true "Member"
// @Success 200 {object} MemberResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /oshi-members/update [post]
func (h *MemberHandler) Update(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req UpdateMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	changes, err := req.changes()
	if err != nil {
		return err
	}

	member, err := h.svc.Update(c.Request().Context(), session, req.MemberID, changes)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newMemberResponse(member))
}

// Delete godoc
// @Summary Delete a member
// @Tags oshi-members
// @Security BearerAuth
// @Param memberId path string true "Member ID"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /oshi-members/delete/{memberId} [delete]
func (h *MemberHandler) Delete(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "memberId")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), session, id); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
