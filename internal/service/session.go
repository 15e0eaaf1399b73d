package service

import (
	"github.com/google/uuid"

	"oshikatsu/internal/auth"
	apperrors "oshikatsu/internal/errors"
)

// ownerOf returns the tenant id every scoped query filters on.
func ownerOf(session auth.Session) (uuid.UUID, error) {
	if session.UserID == uuid.Nil {
		return uuid.Nil, apperrors.ErrPrincipalNotResolved
	}
	return session.UserID, nil
}

// nonEmpty turns an empty result set into notFound.
func nonEmpty[T any](items []T, notFound error) ([]T, error) {
	if len(items) == 0 {
		return nil, notFound
	}
	return items, nil
}
