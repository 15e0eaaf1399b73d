package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oshikatsu/internal/auth"
	apperrors "oshikatsu/internal/errors"
	"oshikatsu/internal/model"
	"oshikatsu/internal/repository"
)

// userCacheTTL bounds how long a profile is served after its row is gone;
// within that window Profile cannot report PRINCIPAL_NOT_RESOLVED.
const userCacheTTL = 30 * time.Second

// ProfileCache is the subset of cache.Client used for profiles.
type ProfileCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// UserService exposes the caller's own account.
type UserService interface {
	Profile(ctx context.Context, session auth.Session) (*model.User, error)
	ChangePassword(ctx context.Context, session auth.Session, current, next string) error
}

type userService struct {
	users     repository.UserRepository
	cache     ProfileCache
	validator *auth.PasswordValidator
	hasher    auth.PasswordHasher
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(
	users repository.UserRepository,
	cache ProfileCache,
	validator *auth.PasswordValidator,
	hasher auth.PasswordHasher,
	logger *zap.Logger,
) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = noCache{}
	}
	return &userService{
		users:     users,
		cache:     cache,
		validator: validator,
		hasher:    hasher,
		logger:    logger,
		now:       time.Now,
	}
}

type noCache struct{}

func (noCache) GetJSON(context.Context, string, interface{}) bool           { return false }
func (noCache) SetJSON(context.Context, string, interface{}, time.Duration) {}
func (noCache) Delete(context.Context, string)                              {}

func userCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

// Profile returns the caller's user row. A verified token whose user no
// longer exists is an internal error.
func (s *userService) Profile(ctx context.Context, session auth.Session) (*model.User, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}

	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(owner), &cached) {
		return &cached, nil
	}

	user, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, userCacheKey(owner), user, userCacheTTL)
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *userService) ChangePassword(ctx context.Context, session auth.Session, current, next string) error {
	owner, err := ownerOf(session)
	if err != nil {
		return err
	}

	user, err := s.load(ctx, owner)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(auth.CanonicalPassword(current), user.PasswordHash)
	if err != nil {
		return apperrors.Internal("PASSWORD_VERIFY_FAILED", err)
	}
	if !ok {
		return apperrors.ErrInvalidCredentials
	}

	if err := s.validator.Validate(next); err != nil {
		return apperrors.InvalidPassword(err)
	}
	hash, err := s.hasher.Hash(auth.CanonicalPassword(next))
	if err != nil {
		return apperrors.Internal("PASSWORD_HASH_FAILED", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, owner, hash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrPrincipalNotResolved
		}
		return apperrors.Internal("USER_UPDATE_FAILED", err)
	}
	s.cache.Delete(ctx, userCacheKey(owner))
	s.logger.Info("password changed", zap.String("user_id", owner.String()))
	return nil
}

func (s *userService) load(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrPrincipalNotResolved
	}
	if err != nil {
		return nil, apperrors.Internal("USER_LOOKUP_FAILED", err)
	}
	return user, nil
}
