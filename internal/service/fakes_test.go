package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"oshikatsu/internal/model"
	"oshikatsu/internal/repository"
)

// memStore is an in-memory stand-in for the database that enforces the same
// unique keys and ownership filters as the SQL schema.
type memStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	groups  map[uuid.UUID]model.Group
	members map[uuid.UUID]model.Member
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[uuid.UUID]model.User{},
		groups:  map[uuid.UUID]model.Group{},
		members: map[uuid.UUID]model.Member{},
	}
}

type memUserRepo struct{ s *memStore }
type memGroupRepo struct{ s *memStore }
type memMemberRepo struct{ s *memStore }

func (r memUserRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r memUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Username == username })
}

func (r memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Email == email })
}

func (r memUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r memUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r memUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = updatedAt
	r.s.users[id] = u
	return nil
}

func (r memGroupRepo) Create(_ context.Context, group *model.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, g := range r.s.groups {
		if g.UserID == group.UserID && g.Name == group.Name {
			return repository.ErrDuplicate
		}
	}
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	r.s.groups[group.ID] = *group
	return nil
}

func (r memGroupRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (r memGroupRepo) filter(match func(model.Group) bool) []model.Group {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Group
	for _, g := range r.s.groups {
		if match(g) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r memGroupRepo) FindByName(_ context.Context, owner uuid.UUID, name string) (*model.Group, error) {
	found := r.filter(func(g model.Group) bool { return g.UserID == owner && g.Name == name })
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

func (r memGroupRepo) FindByNameContaining(_ context.Context, owner uuid.UUID, fragment string) ([]model.Group, error) {
	return r.filter(func(g model.Group) bool { return g.UserID == owner && strings.Contains(g.Name, fragment) }), nil
}

func (r memGroupRepo) FindByCompany(_ context.Context, owner uuid.UUID, company string) ([]model.Group, error) {
	return r.filter(func(g model.Group) bool { return g.UserID == owner && g.Company == company }), nil
}

func (r memGroupRepo) FindByOwner(_ context.Context, owner uuid.UUID) ([]model.Group, error) {
	return r.filter(func(g model.Group) bool { return g.UserID == owner }), nil
}

func (r memGroupRepo) ExistsByName(ctx context.Context, owner uuid.UUID, name string) (bool, error) {
	_, err := r.FindByName(ctx, owner, name)
	return err == nil, nil
}

func (r memGroupRepo) Update(_ context.Context, group *model.Group, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.groups[group.ID]
	if !ok || stored.UserID != group.UserID || stored.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	for id, g := range r.s.groups {
		if id != group.ID && g.UserID == group.UserID && g.Name == group.Name {
			return repository.ErrDuplicate
		}
	}
	group.Version = expectedVersion + 1
	r.s.groups[group.ID] = *group
	return nil
}

func (r memGroupRepo) Delete(_ context.Context, owner, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.groups[id]
	if !ok || g.UserID != owner {
		return repository.ErrNotFound
	}
	delete(r.s.groups, id)
	for mid, m := range r.s.members {
		if m.GroupID == id {
			delete(r.s.members, mid)
		}
	}
	return nil
}

func (r memMemberRepo) Create(_ context.Context, member *model.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.members {
		if m.UserID == member.UserID && m.GroupID == member.GroupID && m.Name == member.Name {
			return repository.ErrDuplicate
		}
	}
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	stored := *member
	stored.Group = nil
	r.s.members[member.ID] = stored
	return nil
}

func (r memMemberRepo) withGroup(m model.Member) model.Member {
	if g, ok := r.s.groups[m.GroupID]; ok {
		m.Group = &g
	}
	return m
}

func (r memMemberRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m = r.withGroup(m)
	return &m, nil
}

func (r memMemberRepo) filter(match func(model.Member) bool) []model.Member {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Member
	for _, m := range r.s.members {
		if match(m) {
			out = append(out, r.withGroup(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r memMemberRepo) FindByName(_ context.Context, owner uuid.UUID, name string) (*model.Member, error) {
	found := r.filter(func(m model.Member) bool { return m.UserID == owner && m.Name == name })
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

func (r memMemberRepo) FindByNameContaining(_ context.Context, owner uuid.UUID, fragment string) ([]model.Member, error) {
	return r.filter(func(m model.Member) bool { return m.UserID == owner && strings.Contains(m.Name, fragment) }), nil
}

func (r memMemberRepo) FindByGroup(_ context.Context, owner, groupID uuid.UUID) ([]model.Member, error) {
	return r.filter(func(m model.Member) bool { return m.UserID == owner && m.GroupID == groupID }), nil
}

func (r memMemberRepo) FindByOwner(_ context.Context, owner uuid.UUID) ([]model.Member, error) {
	return r.filter(func(m model.Member) bool { return m.UserID == owner }), nil
}

func (r memMemberRepo) ExistsByName(_ context.Context, owner, groupID uuid.UUID, name string) (bool, error) {
	found := r.filter(func(m model.Member) bool {
		return m.UserID == owner && m.GroupID == groupID && m.Name == name
	})
	return len(found) > 0, nil
}

func (r memMemberRepo) Update(_ context.Context, member *model.Member, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.members[member.ID]
	if !ok || stored.UserID != member.UserID || stored.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	member.Version = expectedVersion + 1
	next := *member
	next.Group = nil
	r.s.members[member.ID] = next
	return nil
}

func (r memMemberRepo) Delete(_ context.Context, owner, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.members[id]
	if !ok || m.UserID != owner {
		return repository.ErrNotFound
	}
	delete(r.s.members, id)
	return nil
}
