package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"oshikatsu/internal/service"
)

// UserHandler serves the caller's own account.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// ChangePasswordRequest carries the current and the replacement password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// Me godoc
// @Summary Current user profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	user, err := h.svc.Profile(c.Request().Context(), session)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, newUserResponse(user))
}

// ChangePassword godoc
// @Summary Change password
// @Tags users
// @Accept json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Passwords"
// @Success 204
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /me/password [put]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	session, err := sessionFrom(c)
	if err != nil {
		return err
	}
	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.svc.ChangePassword(c.Request().Context(), session, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
