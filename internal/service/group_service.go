package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"oshikatsu/internal/auth"
	apperrors "oshikatsu/internal/errors"
	"oshikatsu/internal/model"
	"oshikatsu/internal/repository"
)

// GroupService manages the caller's groups. Every operation is scoped to
// the session's user; rows of other users behave as if they did not exist.
type GroupService interface {
	Create(ctx context.Context, session auth.Session, changes model.GroupChanges) (*model.Group, error)
	FindExact(ctx context.Context, session auth.Session, name string) (*model.Group, error)
	FindFuzzy(ctx context.Context, session auth.Session, fragment string) ([]model.Group, error)
	FindByCompany(ctx context.Context, session auth.Session, company string) ([]model.Group, error)
	FindByOwner(ctx context.Context, session auth.Session) ([]model.Group, error)
	Update(ctx context.Context, session auth.Session, id uuid.UUID, changes model.GroupChanges) (*model.Group, error)
	Delete(ctx context.Context, session auth.Session, id uuid.UUID) error
}

type groupService struct {
	groups repository.GroupRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewGroupService creates a new group service.
func NewGroupService(groups repository.GroupRepository, logger *zap.Logger) GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &groupService{groups: groups, logger: logger, now: time.Now}
}

func (s *groupService) Create(ctx context.Context, session auth.Session, changes model.GroupChanges) (*model.Group, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}

	exists, err := s.groups.ExistsByName(ctx, owner, changes.Name)
	if err != nil {
		return nil, apperrors.Internal("GROUP_LOOKUP_FAILED", err)
	}
	if exists {
		return nil, apperrors.ErrGroupAlreadyExists
	}

	group := model.NewGroup(owner, changes, s.now())
	if err := s.groups.Create(ctx, &group); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrGroupAlreadyExists
		}
		return nil, apperrors.Internal("GROUP_CREATE_FAILED", err)
	}

	s.logger.Debug("group created", zap.String("group_id", group.ID.String()), zap.String("user_id", owner.String()))
	return &group, nil
}

func (s *groupService) FindExact(ctx context.Context, session auth.Session, name string) (*model.Group, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.FindByName(ctx, owner, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrGroupNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("GROUP_LOOKUP_FAILED", err)
	}
	return group, nil
}

func (s *groupService) FindFuzzy(ctx context.Context, session auth.Session, fragment string) ([]model.Group, error) {
	return s.list(ctx, session, func(owner uuid.UUID) ([]model.Group, error) {
		return s.groups.FindByNameContaining(ctx, owner, fragment)
	})
}

func (s *groupService) FindByCompany(ctx context.Context, session auth.Session, company string) ([]model.Group, error) {
	return s.list(ctx, session, func(owner uuid.UUID) ([]model.Group, error) {
		return s.groups.FindByCompany(ctx, owner, company)
	})
}

func (s *groupService) FindByOwner(ctx context.Context, session auth.Session) ([]model.Group, error) {
	return s.list(ctx, session, func(owner uuid.UUID) ([]model.Group, error) {
		return s.groups.FindByOwner(ctx, owner)
	})
}

func (s *groupService) list(ctx context.Context, session auth.Session, query func(owner uuid.UUID) ([]model.Group, error)) ([]model.Group, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}
	groups, err := query(owner)
	if err != nil {
		return nil, apperrors.Internal("GROUP_LOOKUP_FAILED", err)
	}
	return nonEmpty(groups, apperrors.ErrGroupNotFound)
}

func (s *groupService) Update(ctx context.Context, session auth.Session, id uuid.UUID, changes model.GroupChanges) (*model.Group, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}
	current, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if changes.Name != current.Name {
		exists, err := s.groups.ExistsByName(ctx, owner, changes.Name)
		if err != nil {
			return nil, apperrors.Internal("GROUP_LOOKUP_FAILED", err)
		}
		if exists {
			return nil, apperrors.ErrGroupAlreadyExists
		}
	}

	next := model.ApplyGroupUpdate(*current, changes, s.now())
	if err := s.groups.Update(ctx, &next, current.Version); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			return nil, apperrors.ErrConcurrentModification
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.ErrGroupAlreadyExists
		default:
			return nil, apperrors.Internal("GROUP_UPDATE_FAILED", err)
		}
	}
	return &next, nil
}

func (s *groupService) Delete(ctx context.Context, session auth.Session, id uuid.UUID) error {
	owner, err := ownerOf(session)
	if err != nil {
		return err
	}
	if _, err := s.loadOwned(ctx, owner, id); err != nil {
		return err
	}

	if err := s.groups.Delete(ctx, owner, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrGroupNotFound
		}
		return apperrors.Internal("GROUP_DELETE_FAILED", err)
	}
	s.logger.Debug("group deleted", zap.String("group_id", id.String()), zap.String("user_id", owner.String()))
	return nil
}

// loadOwned returns the group only if owner owns it.
func (s *groupService) loadOwned(ctx context.Context, owner, id uuid.UUID) (*model.Group, error) {
	group, err := s.groups.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrGroupNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("GROUP_LOOKUP_FAILED", err)
	}
	if group.UserID != owner {
		return nil, apperrors.ErrGroupNotFound
	}
	return group, nil
}
