package auth

import (
	"errors"

	"github.com/google/uuid"
)

// RoleUser is granted to every authenticated account.
const RoleUser = "ROLE_USER"

// DefaultAuthorities returns the roles minted into new tokens.
func DefaultAuthorities() []string {
	return []string{RoleUser}
}

// Session is the authenticated caller, resolved once per request from a
// verified token and passed explicitly to ownership-scoped operations.
type Session struct {
	UserID      uuid.UUID
	Principal   string
	Authorities []string
}

// NewSession builds a Session from verified claims.
func NewSession(claims *Claims) (Session, error) {
	if claims == nil || claims.UserID == uuid.Nil {
		return Session{}, errors.New("claims carry no user id")
	}
	authorities := claims.Roles
	if len(authorities) == 0 {
		authorities = DefaultAuthorities()
	}
	return Session{
		UserID:      claims.UserID,
		Principal:   claims.Username,
		Authorities: authorities,
	}, nil
}

// HasAuthority reports whether the session carries role.
func (s Session) HasAuthority(role string) bool {
	for _, a := range s.Authorities {
		if a == role {
			return true
		}
	}
	return false
}
