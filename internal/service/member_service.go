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

// MemberService manages the caller's members. A member can only be attached
// to a group of the same owner.
type MemberService interface {
	Create(ctx context.Context, session auth.Session, groupID uuid.UUID, changes model.MemberChanges) (*model.Member, error)
	FindByGroup(ctx context.Context, session auth.Session, groupID uuid.UUID) ([]model.Member, error)
	FindExact(ctx context.Context, session auth.Session, name string) (*model.Member, error)
	FindFuzzy(ctx context.Context, session auth.Session, fragment string) ([]model.Member, error)
	FindByOwner(ctx context.Context, session auth.Session) ([]model.Member, error)
	Update(ctx context.Context, session auth.Session, id uuid.UUID, changes model.MemberChanges) (*model.Member, error)
	Delete(ctx context.Context, session auth.Session, id uuid.UUID) error
}

type memberService struct {
	members repository.MemberRepository
	groups  repository.GroupRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewMemberService creates a new member service.
func NewMemberService(members repository.MemberRepository, groups repository.GroupRepository, logger *zap.Logger) MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &memberService{members: members, groups: groups, logger: logger, now: time.Now}
}

func (s *memberService) Create(ctx context.Context, session auth.Session, groupID uuid.UUID, changes model.MemberChanges) (*model.Member, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}
	if !changes.Gender.Valid() {
		return nil, apperrors.ErrInvalidGender
	}

	parent, err := s.groups.FindByID(ctx, groupID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrParentGroupNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("GROUP_LOOKUP_FAILED", err)
	}
	if parent.UserID != owner {
		return nil, apperrors.ErrParentGroupNotFound
	}

	exists, err := s.members.ExistsByName(ctx, owner, groupID, changes.Name)
	if err != nil {
		return nil, apperrors.Internal("MEMBER_LOOKUP_FAILED", err)
	}
	if exists {
		return nil, apperrors.ErrMemberAlreadyExists
	}

	member := model.NewMember(owner, groupID, changes, s.now())
	if err := s.members.Create(ctx, &member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrMemberAlreadyExists
		}
		return nil, apperrors.Internal("MEMBER_CREATE_FAILED", err)
	}
	member.Group = parent

	s.logger.Debug("member created", zap.String("member_id", member.ID.String()), zap.String("group_id", groupID.String()))
	return &member, nil
}

func (s *memberService) FindByGroup(ctx context.Context, session auth.Session, groupID uuid.UUID) ([]model.Member, error) {
	return s.list(ctx, session, func(owner uuid.UUID) ([]model.Member, error) {
		return s.members.FindByGroup(ctx, owner, groupID)
	})
}

func (s *memberService) FindExact(ctx context.Context, session auth.Session, name string) (*model.Member, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}
	member, err := s.members.FindByName(ctx, owner, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrMemberNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("MEMBER_LOOKUP_FAILED", err)
	}
	return member, nil
}

func (s *memberService) FindFuzzy(ctx context.Context, session auth.Session, fragment string) ([]model.Member, error) {
	return s.list(ctx, session, func(owner uuid.UUID) ([]model.Member, error) {
		return s.members.FindByNameContaining(ctx, owner, fragment)
	})
}

func (s *memberService) FindByOwner(ctx context.Context, session auth.Session) ([]model.Member, error) {
	return s.list(ctx, session, func(owner uuid.UUID) ([]model.Member, error) {
		return s.members.FindByOwner(ctx, owner)
	})
}

func (s *memberService) list(ctx context.Context, session auth.Session, query func(owner uuid.UUID) ([]model.Member, error)) ([]model.Member, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}
	members, err := query(owner)
	if err != nil {
		return nil, apperrors.Internal("MEMBER_LOOKUP_FAILED", err)
	}
	return nonEmpty(members, apperrors.ErrMemberNotFound)
}

func (s *memberService) Update(ctx context.Context, session auth.Session, id uuid.UUID, changes model.MemberChanges) (*model.Member, error) {
	owner, err := ownerOf(session)
	if err != nil {
		return nil, err
	}
	if !changes.Gender.Valid() {
		return nil, apperrors.ErrInvalidGender
	}
	current, err := s.loadOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if changes.Name != current.Name {
		exists, err := s.members.ExistsByName(ctx, owner, current.GroupID, changes.Name)
		if err != nil {
			return nil, apperrors.Internal("MEMBER_LOOKUP_FAILED", err)
		}
		if exists {
			return nil, apperrors.ErrMemberAlreadyExists
		}
	}

	next := model.ApplyMemberUpdate(*current, changes, s.now())
	if err := s.members.Update(ctx, &next, current.Version); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			return nil, apperrors.ErrConcurrentModification
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperrors.ErrMemberAlreadyExists
		default:
			return nil, apperrors.Internal("MEMBER_UPDATE_FAILED", err)
		}
	}
	next.Group = current.Group
	return &next, nil
}

func (s *memberService) Delete(ctx context.Context, session auth.Session, id uuid.UUID) error {
	owner, err := ownerOf(session)
	if err != nil {
		return err
	}
	if _, err := s.loadOwned(ctx, owner, id); err != nil {
		return err
	}

	if err := s.members.Delete(ctx, owner, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrMemberNotFound
		}
		return apperrors.Internal("MEMBER_DELETE_FAILED", err)
	}
	return nil
}

// loadOwned returns the member only if owner owns it.
func (s *memberService) loadOwned(ctx context.Context, owner, id uuid.UUID) (*model.Member, error) {
	member, err := s.members.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrMemberNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("MEMBER_LOOKUP_FAILED", err)
	}
	if member.UserID != owner {
		return nil, apperrors.ErrMemberNotFound
	}
	return member, nil
}
