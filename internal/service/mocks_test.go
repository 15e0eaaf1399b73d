package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"oshikatsu/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, updatedAt time.Time) error {
	args := m.Called(ctx, id, hash, updatedAt)
	return args.Error(0)
}

// MockTokenIssuer is a mock implementation of TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(userID uuid.UUID, username string, roles []string) (string, time.Time, error) {
	args := m.Called(userID, username, roles)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// MockGroupRepository is a mock implementation of GroupRepository.
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *model.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupRepository) FindByName(ctx context.Context, owner uuid.UUID, name string) (*model.Group, error) {
	args := m.Called(ctx, owner, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupRepository) groups(args mock.Arguments) ([]model.Group, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Group), args.Error(1)
}

func (m *MockGroupRepository) FindByNameContaining(ctx context.Context, owner uuid.UUID, fragment string) ([]model.Group, error) {
	return m.groups(m.Called(ctx, owner, fragment))
}

func (m *MockGroupRepository) FindByCompany(ctx context.Context, owner uuid.UUID, company string) ([]model.Group, error) {
	return m.groups(m.Called(ctx, owner, company))
}

func (m *MockGroupRepository) FindByOwner(ctx context.Context, owner uuid.UUID) ([]model.Group, error) {
	return m.groups(m.Called(ctx, owner))
}

func (m *MockGroupRepository) ExistsByName(ctx context.Context, owner uuid.UUID, name string) (bool, error) {
	args := m.Called(ctx, owner, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockGroupRepository) Update(ctx context.Context, group *model.Group, expectedVersion int64) error {
	args := m.Called(ctx, group, expectedVersion)
	return args.Error(0)
}

func (m *MockGroupRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	args := m.Called(ctx, owner, id)
	return args.Error(0)
}
