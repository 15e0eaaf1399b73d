package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"oshikatsu/internal/metrics"
	"oshikatsu/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
	metrics     *metrics.Metrics
}

// NewAuthHandler creates a new auth handler. m may be nil.
func NewAuthHandler(authService service.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{authService: authService, metrics: m}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	h.metrics.ObserveAuth("register", err)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusCreated, newAuthResponse(session))
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	h.metrics.ObserveAuth("login", err)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, newAuthResponse(session))
}
