package router

import (
	stderrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"oshikatsu/docs"
	"oshikatsu/internal/auth"
	"oshikatsu/internal/config"
	"oshikatsu/internal/errors"
	"oshikatsu/internal/handler"
	"oshikatsu/internal/logging"
	"oshikatsu/internal/metrics"
)

// TokenVerifier validates bearer tokens for the secured routes.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Group  *handler.GroupHandler
	Member *handler.MemberHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	m *metrics.Metrics,
	tokens TokenVerifier,
	h Handlers,
) {
	if logger == nil {
		logger = zap.NewNop()
	}

	e.Validator = &CustomValidator{validator: handler.NewValidator()}
	e.HTTPErrorHandler = errorHandler(e, logger)

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	e.Use(m.Middleware())

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)

	// Secured routes (require JWT authentication)
	secured := api.Group("", jwtMiddleware(tokens))

	secured.GET("/me", h.User.Me)
	secured.PUT("/me/password", h.User.ChangePassword)

	groups := secured.Group("/oshi-groups")
	groups.POST("/create", h.Group.Create)
	groups.GET("/list-group", h.Group.Search)
	groups.GET("/list-company", h.Group.ListByCompany)
	groups.GET("/list", h.Group.List)
	groups.POST("/update", h.Group.Update)
	groups.DELETE("/delete/:groupId", h.Group.Delete)

	members := secured.Group("/oshi-members")
	members.POST("/create", h.Member.Create)
	members.GET("/list-group", h.Member.ListByGroup)
	members.GET("/list-member", h.Member.Search)
	members.GET("/list", h.Member.List)
	members.POST("/update", h.Member.Update)
	members.DELETE("/delete/:memberId", h.Member.Delete)
}

// jwtMiddleware verifies the bearer token and stores the resulting
// auth.Session under handler.SessionContextKey. Tokens without ROLE_USER
// are rejected.
func jwtMiddleware(tokens TokenVerifier) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  handler.SessionContextKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := tokens.Verify(token)
			if err != nil {
				return nil, err
			}
			session, err := auth.NewSession(claims)
			if err != nil {
				return nil, err
			}
			if !session.HasAuthority(auth.RoleUser) {
				return nil, auth.ErrTokenInvalid
			}
			return session, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			resp := errors.ErrorResponse{Error: "missing or invalid token", Code: "INVALID_TOKEN"}
			if stderrors.Is(err, auth.ErrTokenExpired) {
				resp = errors.ErrorResponse{Error: "token has expired", Code: "TOKEN_EXPIRED"}
			}
			return echo.NewHTTPError(http.StatusUnauthorized, resp).SetInternal(err)
		},
	})
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			)
			return nil
		},
	})
}

// errorHandler logs server-side failures and renders every error body as
// errors.ErrorResponse.
func errorHandler(e *echo.Echo, logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !stderrors.As(err, &he) {
			he = echo.NewHTTPError(http.StatusInternalServerError, errors.MapErrorToHTTP(err).ToErrorResponse()).SetInternal(err)
		}

		cause := err
		if he.Internal != nil {
			cause = he.Internal
		}
		reqLogger := logger.With(zap.String("path", c.Path()))
		var domainErr *errors.Error
		if stderrors.As(cause, &domainErr) {
			reqLogger = reqLogger.With(zap.Stringer("kind", domainErr.Kind), zap.String("code", domainErr.Code))
		}
		if he.Code >= http.StatusInternalServerError {
			logging.Error(reqLogger, "request failed", cause)
		} else if domainErr != nil {
			reqLogger.Debug("request rejected", zap.Int("status", he.Code))
		}

		message := he.Message
		if msg, ok := message.(string); ok {
			message = errors.ErrorResponse{Error: msg, Code: codeFor(he.Code)}
		}
		// Internal is dropped so echo renders this body rather than a nested HTTPError.
		e.DefaultHTTPErrorHandler(&echo.HTTPError{Code: he.Code, Message: message}, c)
	}
}

func codeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "ERROR"
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
