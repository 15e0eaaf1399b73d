package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"oshikatsu/internal/auth"
	"oshikatsu/internal/model"
	"oshikatsu/internal/service"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*service.AuthSession, error) {
	args := m.Called(ctx, username, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthSession), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*service.AuthSession, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthSession), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Profile(ctx context.Context, session auth.Session) (*model.User, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, session auth.Session, current, next string) error {
	args := m.Called(ctx, session, current, next)
	return args.Error(0)
}

type MockGroupService struct {
	mock.Mock
}

func (m *MockGroupService) group(args mock.Arguments) (*model.Group, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Group), args.Error(1)
}

func (m *MockGroupService) groups(args mock.Arguments) ([]model.Group, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Group), args.Error(1)
}

func (m *MockGroupService) Create(ctx context.Context, session auth.Session, changes model.GroupChanges) (*model.Group, error) {
	return m.group(m.Called(ctx, session, changes))
}

func (m *MockGroupService) FindExact(ctx context.Context, session auth.Session, name string) (*model.Group, error) {
	return m.group(m.Called(ctx, session, name))
}

func (m *MockGroupService) FindFuzzy(ctx context.Context, session auth.Session, fragment string) ([]model.Group, error) {
	return m.groups(m.Called(ctx, session, fragment))
}

func (m *MockGroupService) FindByCompany(ctx context.Context, session auth.Session, company string) ([]model.Group, error) {
	return m.groups(m.Called(ctx, session, company))
}

func (m *MockGroupService) FindByOwner(ctx context.Context, session auth.Session) ([]model.Group, error) {
	return m.groups(m.Called(ctx, session))
}

func (m *MockGroupService) Update(ctx context.Context, session auth.Session, id uuid.UUID, changes model.GroupChanges) (*model.Group, error) {
	return m.group(m.Called(ctx, session, id, changes))
}

func (m *MockGroupService) Delete(ctx context.Context, session auth.Session, id uuid.UUID) error {
	return m.Called(ctx, session, id).Error(0)
}

type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) member(args mock.Arguments) (*model.Member, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *MockMemberService) members(args mock.Arguments) ([]model.Member, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Member), args.Error(1)
}

func (m *MockMemberService) Create(ctx context.Context, session auth.Session, groupID uuid.UUID, changes model.MemberChanges) (*model.Member, error) {
	return m.member(m.Called(ctx, session, groupID, changes))
}

func (m *MockMemberService) FindByGroup(ctx context.Context, session auth.Session, groupID uuid.UUID) ([]model.Member, error) {
	return m.members(m.Called(ctx, session, groupID))
}

func (m *MockMemberService) FindExact(ctx context.Context, session auth.Session, name string) (*model.Member, error) {
	return m.member(m.Called(ctx, session, name))
}

func (m *MockMemberService) FindFuzzy(ctx context.Context, session auth.Session, fragment string) ([]model.Member, error) {
	return m.members(m.Called(ctx, session, fragment))
}

func (m *MockMemberService) FindByOwner(ctx context.Context, session auth.Session) ([]model.Member, error) {
	return m.members(m.Called(ctx, session))
}

func (m *MockMemberService) Update(ctx context.Context, session auth.Session, id uuid.UUID, changes model.MemberChanges) (*model.Member, error) {
	return m.member(m.Called(ctx, session, id, changes))
}

func (m *MockMemberService) Delete(ctx context.Context, session auth.Session, id uuid.UUID) error {
	return m.Called(ctx, session, id).Error(0)
}
