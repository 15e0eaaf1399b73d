package handler

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"oshikatsu/internal/auth"
	"oshikatsu/internal/errors"
)

// SessionContextKey is where the JWT middleware stores the caller's auth.Session.
const SessionContextKey = "session"

// sessionFrom returns the session the JWT middleware resolved for this request.
func sessionFrom(c echo.Context) (auth.Session, error) {
	session, ok := c.Get(SessionContextKey).(auth.Session)
	if !ok {
		return auth.Session{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "missing or invalid token",
			Code:  "INVALID_TOKEN",
		})
	}
	return session, nil
}

// respondError converts a domain error into an echo error carrying the
// standard ErrorResponse body. The original error is kept for logging.
func respondError(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// bindAndValidate decodes the request into req and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		// The binder already returns an *echo.HTTPError; attaching it as the
		// internal error would make echo render it instead of ours.
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: fieldErrors(err),
		}).SetInternal(err)
	}
	return nil
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		if name != "" {
			name = strings.ToLower(name[:1]) + name[1:]
		}
		if fe.Param() != "" {
			fields[name] = fe.Tag() + "=" + fe.Param()
		} else {
			fields[name] = fe.Tag()
		}
	}
	return fields
}

// pathID parses a UUID path parameter.
func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: name + " must be a UUID",
			Code:  "INVALID_ID",
		})
	}
	return id, nil
}
