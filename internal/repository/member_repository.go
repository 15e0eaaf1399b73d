package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oshikatsu/internal/model"
)

// MemberRepository defines member persistence operations. Read methods
// preload the parent group.
type MemberRepository interface {
	Create(ctx context.Context, member *model.Member) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Member, error)
	// FindByName returns the earliest created member with exactly this name.
	FindByName(ctx context.Context, owner uuid.UUID, name string) (*model.Member, error)
	FindByNameContaining(ctx context.Context, owner uuid.UUID, fragment string) ([]model.Member, error)
	FindByGroup(ctx context.Context, owner, groupID uuid.UUID) ([]model.Member, error)
	FindByOwner(ctx context.Context, owner uuid.UUID) ([]model.Member, error)
	ExistsByName(ctx context.Context, owner, groupID uuid.UUID, name string) (bool, error)
	Update(ctx context.Context, member *model.Member, expectedVersion int64) error
	Delete(ctx context.Context, owner, id uuid.UUID) error
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository.
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *model.Member) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error; err != nil {
		if IsUniqueViolation(err) {
			return oops.Code("MEMBER_DUPLICATE").With("name", member.Name).Wrap(ErrDuplicate)
		}
		return oops.Code("MEMBER_CREATE_FAILED").With("name", member.Name).Wrap(err)
	}
	return nil
}

func (r *memberRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).Preload("Group").Where("id = ?", id).Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("MEMBER_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBER_QUERY_FAILED").With("id", id.String()).Wrap(err)
	}
	return &member, nil
}

func (r *memberRepository) FindByName(ctx context.Context, owner uuid.UUID, name string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).Preload("Group").
		Where("user_id = ? AND name = ?", owner, name).
		Order("created_at, id").
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("MEMBER_NOT_FOUND").With("name", name).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBER_QUERY_FAILED").With("name", name).Wrap(err)
	}
	return &member, nil
}

func (r *memberRepository) FindByNameContaining(ctx context.Context, owner uuid.UUID, fragment string) ([]model.Member, error) {
	return r.list(ctx, "user_id = ? AND name LIKE ?", owner, containsPattern(fragment))
}

func (r *memberRepository) FindByGroup(ctx context.Context, owner, groupID uuid.UUID) ([]model.Member, error) {
	return r.list(ctx, "user_id = ? AND group_id = ?", owner, groupID)
}

func (r *memberRepository) FindByOwner(ctx context.Context, owner uuid.UUID) ([]model.Member, error) {
	return r.list(ctx, "user_id = ?", owner)
}

func (r *memberRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Member, error) {
	var members []model.Member
	err := r.db.WithContext(ctx).Preload("Group").
		Where(query, args...).
		Order("name").
		Find(&members).Error
	if err != nil {
		return nil, oops.Code("MEMBER_QUERY_FAILED").With("query", query).Wrap(err)
	}
	return members, nil
}

func (r *memberRepository) ExistsByName(ctx context.Context, owner, groupID uuid.UUID, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Member{}).
		Where("user_id = ? AND group_id = ? AND name = ?", owner, groupID, name).
		Count(&count).Error
	if err != nil {
		return false, oops.Code("MEMBER_QUERY_FAILED").With("name", name).Wrap(err)
	}
	return count > 0, nil
}

func (r *memberRepository) Update(ctx context.Context, member *model.Member, expectedVersion int64) error {
	res := r.db.WithContext(ctx).Model(&model.Member{}).
		Where("id = ? AND user_id = ? AND version = ?", member.ID, member.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"name":       member.Name,
			"name_kana":  member.NameKana,
			"gender":     member.Gender,
			"birth_day":  member.BirthDay,
			"updated_at": member.UpdatedAt,
			"version":    gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return oops.Code("MEMBER_DUPLICATE").With("name", member.Name).Wrap(ErrDuplicate)
		}
		return oops.Code("MEMBER_UPDATE_FAILED").With("id", member.ID.String()).Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return oops.Code("MEMBER_STALE").
			With("id", member.ID.String()).
			With("expected_version", expectedVersion).
			Wrap(ErrStaleVersion)
	}
	member.Version = expectedVersion + 1
	return nil
}

func (r *memberRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner).Delete(&model.Member{})
	if res.Error != nil {
		return oops.Code("MEMBER_DELETE_FAILED").With("id", id.String()).Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return oops.Code("MEMBER_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	return nil
}
