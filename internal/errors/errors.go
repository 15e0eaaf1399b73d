package errors

import (
	"errors"
	"net/http"

	"oshikatsu/internal/auth"
)

// Kind classifies domain errors for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindNotFound
	KindConcurrency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindConcurrency:
		return "concurrency"
	default:
		return "internal"
	}
}

// Error is a coded domain error. Two errors are equal under errors.Is when
// their codes match, so wrapped copies still match the sentinels below.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// New creates a coded error of the given kind.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Internal wraps an unexpected failure. Its message is never sent to clients.
func Internal(code string, err error) *Error {
	return &Error{Kind: KindInternal, Code: code, Message: "internal server error", Err: err}
}

var (
	// ErrInvalidCredentials is returned for an unknown username and for a wrong password alike.
	ErrInvalidCredentials = New(KindAuthentication, "INVALID_CREDENTIALS", "invalid username or password")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = New(KindConflict, "USERNAME_TAKEN", "username is already taken")
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = New(KindConflict, "EMAIL_TAKEN", "email is already registered")
	// ErrInvalidPassword is the template for password policy failures.
	ErrInvalidPassword = New(KindValidation, "INVALID_PASSWORD", "password does not satisfy the password policy")

	ErrGroupNotFound      = New(KindNotFound, "GROUP_NOT_FOUND", "group not found")
	ErrGroupAlreadyExists = New(KindConflict, "GROUP_ALREADY_EXISTS", "a group with this name already exists")

	ErrMemberNotFound      = New(KindNotFound, "MEMBER_NOT_FOUND", "member not found")
	ErrMemberAlreadyExists = New(KindConflict, "MEMBER_ALREADY_EXISTS", "a member with this name already exists in the group")
	// ErrParentGroupNotFound is returned when a member references a group the caller does not own.
	ErrParentGroupNotFound = New(KindNotFound, "PARENT_GROUP_NOT_FOUND", "parent group not found")
	ErrInvalidGender       = New(KindValidation, "INVALID_GENDER", "gender must be 0 or 1")

	// ErrConcurrentModification is returned to the losing writer of a concurrent update.
	ErrConcurrentModification = &Error{
		Kind:      KindConcurrency,
		Code:      "CONCURRENT_MODIFICATION",
		Message:   "the resource was modified concurrently, retry the request",
		Retryable: true,
	}

	// ErrInvalidSearchMode is returned unless exactly one of full and fuzzy is requested.
	ErrInvalidSearchMode = New(KindValidation, "INVALID_SEARCH_MODE", "exactly one of full or fuzzy must be true")

	// ErrPrincipalNotResolved means a verified identity has no backing user row.
	ErrPrincipalNotResolved = New(KindInternal, "PRINCIPAL_NOT_RESOLVED", "internal server error")
)

// InvalidPassword wraps a policy violation so that it matches ErrInvalidPassword.
func InvalidPassword(violation error) *Error {
	e := *ErrInvalidPassword
	e.Err = violation
	if violation != nil {
		e.Message = violation.Error()
	}
	return &e
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Reason    string            `json:"reason,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Reason     string
	Retryable  bool
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:     e.Message,
		Code:      e.Code,
		Reason:    e.Reason,
		Retryable: e.Retryable,
	}
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict, KindConcurrency:
		return http.StatusConflict
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}

	httpErr := NewHTTPError(StatusFor(e.Kind), e.Message, e.Code)
	httpErr.Retryable = e.Retryable

	var violation *auth.PolicyViolation
	if errors.As(err, &violation) {
		httpErr.Reason = string(violation.Reason)
	}
	return httpErr
}
