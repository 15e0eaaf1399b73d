package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"oshikatsu/internal/auth"
	apperrors "oshikatsu/internal/errors"
	"oshikatsu/internal/model"
	"oshikatsu/internal/repository"
)

// MockProfileCache is a mock implementation of ProfileCache.
type MockProfileCache struct {
	mock.Mock
}

func (m *MockProfileCache) GetJSON(ctx context.Context, key string, dst interface{}) bool {
	return m.Called(ctx, key, dst).Bool(0)
}

func (m *MockProfileCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *MockProfileCache) Delete(ctx context.Context, key string) {
	m.Called(ctx, key)
}

func newTestUserService(users repository.UserRepository, cache ProfileCache) UserService {
	return NewUserService(
		users,
		cache,
		auth.NewPasswordValidator(auth.DefaultPasswordPolicy()),
		auth.NewBcryptHasher(4),
		nil,
	)
}

func TestUserService_Profile(t *testing.T) {
	id := uuid.New()
	key := "user:" + id.String()
	user := &model.User{ID: id, Username: "taro", Email: "taro@x.com"}

	t.Run("cache miss loads and fills", func(t *testing.T) {
		users := new(MockUserRepository)
		cache := new(MockProfileCache)
		cache.On("GetJSON", mock.Anything, key, mock.Anything).Return(false)
		users.On("FindByID", mock.Anything, id).Return(user, nil)
		cache.On("SetJSON", mock.Anything, key, user, 30*time.Second).Return()

		got, err := newTestUserService(users, cache).Profile(context.Background(), sessionFor(id))
		require.NoError(t, err)
		assert.Equal(t, "taro", got.Username)
		cache.AssertExpectations(t)
	})

	t.Run("missing row after expiry is unresolved principal", func(t *testing.T) {
		users := new(MockUserRepository)
		cache := new(MockProfileCache)
		cache.On("GetJSON", mock.Anything, key, mock.Anything).Return(false)
		users.On("FindByID", mock.Anything, id).Return(nil, repository.ErrNotFound)

		_, err := newTestUserService(users, cache).Profile(context.Background(), sessionFor(id))
		assert.ErrorIs(t, err, apperrors.ErrPrincipalNotResolved)
		cache.AssertNotCalled(t, "SetJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cache hit skips store", func(t *testing.T) {
		users := new(MockUserRepository)
		cache := new(MockProfileCache)
		cache.On("GetJSON", mock.Anything, key, mock.Anything).
			Run(func(args mock.Arguments) { *args.Get(2).(*model.User) = *user }).
			Return(true)

		got, err := newTestUserService(users, cache).Profile(context.Background(), sessionFor(id))
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("token for deleted user", func(t *testing.T) {
		users := new(MockUserRepository)
		users.On("FindByID", mock.Anything, id).Return(nil, repository.ErrNotFound)

		_, err := newTestUserService(users, nil).Profile(context.Background(), sessionFor(id))
		assert.ErrorIs(t, err, apperrors.ErrPrincipalNotResolved)
		assert.Equal(t, 500, apperrors.MapErrorToHTTP(err).StatusCode)
	})
}

func TestUserService_ChangePassword(t *testing.T) {
	store := newMemStore()
	authSvc := newTestAuthService(memUserRepo{store}, auth.NewJWTService("secret", "oshikatsu", time.Hour))
	users := newTestUserService(memUserRepo{store}, nil)
	ctx := context.Background()

	registered, err := authSvc.Register(ctx, "taro", "taro@x.com", "Secret1A")
	require.NoError(t, err)
	session := sessionFor(registered.UserID)

	err = users.ChangePassword(ctx, session, "wrongpw", "Secret2B")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	err = users.ChangePassword(ctx, session, "Secret1A", "weak")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)

	require.NoError(t, users.ChangePassword(ctx, session, "Secret1A", "Secret2B"))

	_, err = authSvc.Login(ctx, "taro", "Secret1A")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = authSvc.Login(ctx, "taro", "Secret2B")
	assert.NoError(t, err)
}

func TestUserService_ChangePasswordInvalidatesCache(t *testing.T) {
	hash, err := auth.NewBcryptHasher(4).Hash("Secret1A")
	require.NoError(t, err)
	id := uuid.New()

	users := new(MockUserRepository)
	cache := new(MockProfileCache)
	users.On("FindByID", mock.Anything, id).Return(&model.User{ID: id, PasswordHash: hash}, nil)
	users.On("UpdatePasswordHash", mock.Anything, id, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
	cache.On("Delete", mock.Anything, "user:"+id.String()).Return()

	require.NoError(t, newTestUserService(users, cache).ChangePassword(context.Background(), sessionFor(id), "Secret1A", "Secret2B"))
	users.AssertExpectations(t)
	cache.AssertExpectations(t)
}
