package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"oshikatsu/internal/auth"
	apperrors "oshikatsu/internal/errors"
	"oshikatsu/internal/model"
	"oshikatsu/internal/service"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected an oops error, got %v", err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestLoadFixture(t *testing.T) {
	fx, err := loadFixture(strings.NewReader(`{
		"user": {"username": "taro", "email": "taro@example.com", "password": "Passw0rd"},
		"groups": [{"name": "Stars", "company": "Acme", "members": [
			{"name": "Hanako", "nameKana": "はなこ", "gender": 1, "birthDay": "2001-02-03"}
		]}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "taro", fx.User.Username)
	require.Len(t, fx.Groups, 1)
	changes, err := fx.Groups[0].Members[0].changes()
	require.NoError(t, err)
	assert.Equal(t, model.GenderFemale, changes.Gender)
	assert.True(t, changes.BirthDay.Equal(time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC)))
}

func TestLoadFixture_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{name: "malformed", json: `{"user":`},
		{name: "unknown field", json: `{"user":{"username":"taro","email":"t@e.co","password":"x"},"extra":1}`},
		{name: "missing user", json: `{"groups":[]}`},
		{name: "unnamed group", json: `{"user":{"username":"taro","email":"t@e.co","password":"x"},"groups":[{"name":" "}]}`},
		{name: "bad gender", json: `{"user":{"username":"taro","email":"t@e.co","password":"x"},"groups":[{"name":"G","members":[{"name":"A","gender":3}]}]}`},
		{name: "bad date", json: `{"user":{"username":"taro","email":"t@e.co","password":"x"},"groups":[{"name":"G","members":[{"name":"A","birthDay":"2001/02/03"}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFixture(strings.NewReader(tt.json))
			require.Error(t, err)
			assertCode(t, err, "FIXTURE_INVALID")
		})
	}
}

type fakeAuth struct {
	userID     uuid.UUID
	registered bool
	logins     int
}

func (f *fakeAuth) Register(_ context.Context, username, email, _ string) (*service.AuthSession, error) {
	if f.registered {
		return nil, apperrors.ErrUsernameTaken
	}
	f.registered = true
	return &service.AuthSession{UserID: f.userID, Username: username, Email: email}, nil
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (*service.AuthSession, error) {
	f.logins++
	return &service.AuthSession{UserID: f.userID, Username: username}, nil
}

type fakeGroups struct {
	service.GroupService
	byName map[string]*model.Group
}

func (f *fakeGroups) Create(_ context.Context, session auth.Session, c model.GroupChanges) (*model.Group, error) {
	if _, ok := f.byName[c.Name]; ok {
		return nil, apperrors.ErrGroupAlreadyExists
	}
	g := model.NewGroup(session.UserID, c, time.Now())
	g.ID = uuid.New()
	f.byName[c.Name] = &g
	return &g, nil
}

func (f *fakeGroups) FindExact(_ context.Context, _ auth.Session, name string) (*model.Group, error) {
	if g, ok := f.byName[name]; ok {
		return g, nil
	}
	return nil, apperrors.ErrGroupNotFound
}

type fakeMembers struct {
	service.MemberService
	keys map[string]bool
}

func (f *fakeMembers) Create(_ context.Context, session auth.Session, groupID uuid.UUID, c model.MemberChanges) (*model.Member, error) {
	key := groupID.String() + "/" + c.Name
	if f.keys[key] {
		return nil, apperrors.ErrMemberAlreadyExists
	}
	f.keys[key] = true
	m := model.NewMember(session.UserID, groupID, c, time.Now())
	return &m, nil
}

func TestSeeder_RunIsIdempotent(t *testing.T) {
	fx, err := loadFixture(strings.NewReader(`{
		"user": {"username": "taro", "email": "taro@example.com", "password": "Passw0rd"},
		"groups": [
			{"name": "Stars", "members": [{"name": "Hanako", "gender": 1}, {"name": "Yuki", "gender": 1}]},
			{"name": "Arcadia", "members": [{"name": "Ren"}]}
		]
	}`))
	require.NoError(t, err)

	authSvc := &fakeAuth{userID: uuid.New()}
	var out bytes.Buffer
	s := &seeder{
		auth:    authSvc,
		groups:  &fakeGroups{byName: map[string]*model.Group{}},
		members: &fakeMembers{keys: map[string]bool{}},
		logger:  zap.NewNop(),
		out:     &out,
	}

	first, err := s.run(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, seedStats{groupsCreated: 2, membersCreated: 3}, first)
	assert.Equal(t, 0, authSvc.logins)

	second, err := s.run(context.Background(), fx)
	require.NoError(t, err)
	assert.Equal(t, seedStats{groupsSkipped: 2, membersSkipped: 3}, second)
	assert.Equal(t, 1, authSvc.logins)
	assert.Contains(t, out.String(), "already exists")
}

func TestSeeder_PropagatesServiceErrors(t *testing.T) {
	fx := &fixture{
		User:   fixtureUser{Username: "taro", Email: "taro@example.com", Password: "short"},
		Groups: nil,
	}
	s := &seeder{
		auth:   failingAuth{err: apperrors.InvalidPassword(&auth.PolicyViolation{Reason: auth.ReasonTooShort, Limit: 8})},
		logger: zap.NewNop(),
		out:    &bytes.Buffer{},
	}

	_, err := s.run(context.Background(), fx)
	require.Error(t, err)
	assertCode(t, err, "SEED_USER_FAILED")
	assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
}

type failingAuth struct {
	err error
}

func (f failingAuth) Register(context.Context, string, string, string) (*service.AuthSession, error) {
	return nil, f.err
}

func (f failingAuth) Login(context.Context, string, string) (*service.AuthSession, error) {
	return nil, f.err
}

func TestNewSeedCmd(t *testing.T) {
	cmd := NewSeedCmd()
	require.NotNil(t, cmd)
	assert.Equal(t, "seed", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	file, err := cmd.Flags().GetString("file")
	require.NoError(t, err)
	assert.Equal(t, "seed.json", file)

	timeout, err := cmd.Flags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Equal(t, defaultSeedTimeout, timeout)
}

func TestLoadConfig_FlagsFeedKoanf(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("JWT_SECRET", "seed-secret")

	cmd := NewSeedCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--database.driver", "postgres", "--database.dsn", "host=db user=app"}))

	cfg, err := loadConfig("", cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "host=db user=app", cfg.DatabaseDSN)
}

func TestRunSeed_MissingFixture(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_SECRET", "seed-secret")

	cmd := NewSeedCmd()
	cmd.SetContext(context.Background())
	cmd.SetOut(&bytes.Buffer{})

	err := runSeed(cmd, &seedOptions{fixturePath: "/nonexistent/seed.json", timeout: time.Second})
	require.Error(t, err)
	assertCode(t, err, "FIXTURE_OPEN_FAILED")
}
