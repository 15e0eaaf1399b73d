package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"oshikatsu/internal/auth"
	"oshikatsu/internal/errors"
)

type testValidator struct {
	v *validator.Validate
}

func (t *testValidator) Validate(i interface{}) error {
	return t.v.Struct(i)
}

var testSession = auth.Session{
	UserID:      uuid.MustParse("11111111-1111-1111-1111-111111111111"),
	Principal:   "taro",
	Authorities: auth.DefaultAuthorities(),
}

// newTestEcho returns an echo instance whose routes see testSession, as
// they would behind the JWT middleware.
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: NewValidator()}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Anonymous") == "" {
				c.Set(SessionContextKey, testSession)
			}
			return next(c)
		}
	})
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doAnonymous(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("X-Anonymous", "1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
