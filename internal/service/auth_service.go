package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oshikatsu/internal/auth"
	apperrors "oshikatsu/internal/errors"
	"oshikatsu/internal/model"
	"oshikatsu/internal/repository"
)

// TokenIssuer mints signed access tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, username string, roles []string) (string, time.Time, error)
}

// AuthSession is returned by a successful registration or login.
type AuthSession struct {
	Token     string
	ExpiresAt time.Time
	UserID    uuid.UUID
	Username  string
	Email     string
}

// AuthService handles registration and login.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*AuthSession, error)
	Login(ctx context.Context, username, password string) (*AuthSession, error)
}

type authService struct {
	users     repository.UserRepository
	validator *auth.PasswordValidator
	hasher    auth.PasswordHasher
	tokens    TokenIssuer
	logger    *zap.Logger
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	validator *auth.PasswordValidator,
	hasher auth.PasswordHasher,
	tokens TokenIssuer,
	logger *zap.Logger,
) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		users:     users,
		validator: validator,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		now:       time.Now,
	}
}

// Register validates the password, enforces username then email uniqueness,
// stores the bcrypt hash of the trimmed password and issues a token.
func (s *authService) Register(ctx context.Context, username, email, password string) (*AuthSession, error) {
	if err := s.validator.Validate(password); err != nil {
		return nil, apperrors.InvalidPassword(err)
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Internal("USER_LOOKUP_FAILED", err)
	}
	if taken {
		return nil, apperrors.ErrUsernameTaken
	}

	taken, err = s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("USER_LOOKUP_FAILED", err)
	}
	if taken {
		return nil, apperrors.ErrEmailTaken
	}

	hash, err := s.hasher.Hash(auth.CanonicalPassword(password))
	if err != nil {
		return nil, apperrors.Internal("PASSWORD_HASH_FAILED", err)
	}

	now := s.now()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.registrationConflict(ctx, username)
		}
		return nil, apperrors.Internal("USER_CREATE_FAILED", err)
	}

	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("username", username))
	return session, nil
}

// registrationConflict decides which key lost an insert race. Username wins ties.
func (s *authService) registrationConflict(ctx context.Context, username string) error {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return apperrors.Internal("USER_LOOKUP_FAILED", err)
	}
	if taken {
		return apperrors.ErrUsernameTaken
	}
	return apperrors.ErrEmailTaken
}

// Login verifies the credentials. Unknown usernames and wrong passwords
// return the same error and cost one hash comparison each.
func (s *authService) Login(ctx context.Context, username, password string) (*AuthSession, error) {
	candidate := auth.CanonicalPassword(password)

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.compareDummy(candidate)
			s.logger.Warn("login rejected", zap.String("username", username))
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Internal("USER_LOOKUP_FAILED", err)
	}

	ok, err := s.hasher.Verify(candidate, user.PasswordHash)
	if err != nil {
		return nil, apperrors.Internal("PASSWORD_VERIFY_FAILED", err)
	}
	if !ok {
		s.logger.Warn("login rejected", zap.String("username", username))
		return nil, apperrors.ErrInvalidCredentials
	}

	if user.ID == uuid.Nil {
		return nil, apperrors.ErrPrincipalNotResolved
	}
	return s.issue(user)
}

func (s *authService) issue(user *model.User) (*AuthSession, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Username, auth.DefaultAuthorities())
	if err != nil {
		return nil, apperrors.Internal("TOKEN_ISSUE_FAILED", err)
	}
	return &AuthSession{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
	}, nil
}

func (s *authService) compareDummy(candidate string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Error("dummy hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(candidate, s.dummyHash)
	}
}
