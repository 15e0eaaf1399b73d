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

// GroupRepository defines group persistence operations. Every query except
// FindByID is scoped to an owner.
type GroupRepository interface {
	Create(ctx context.Context, group *model.Group) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Group, error)
	FindByName(ctx context.Context, owner uuid.UUID, name string) (*model.Group, error)
	FindByNameContaining(ctx context.Context, owner uuid.UUID, fragment string) ([]model.Group, error)
	FindByCompany(ctx context.Context, owner uuid.UUID, company string) ([]model.Group, error)
	FindByOwner(ctx context.Context, owner uuid.UUID) ([]model.Group, error)
	ExistsByName(ctx context.Context, owner uuid.UUID, name string) (bool, error)
	// Update writes group if its stored version still equals expectedVersion,
	// bumping the version. It returns ErrStaleVersion otherwise.
	Update(ctx context.Context, group *model.Group, expectedVersion int64) error
	Delete(ctx context.Context, owner, id uuid.UUID) error
}

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(group).Error; err != nil {
		if IsUniqueViolation(err) {
			return oops.Code("GROUP_DUPLICATE").With("name", group.Name).Wrap(ErrDuplicate)
		}
		return oops.Code("GROUP_CREATE_FAILED").With("name", group.Name).Wrap(err)
	}
	return nil
}

func (r *groupRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("GROUP_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("GROUP_QUERY_FAILED").With("id", id.String()).Wrap(err)
	}
	return &group, nil
}

func (r *groupRepository) FindByName(ctx context.Context, owner uuid.UUID, name string) (*model.Group, error) {
	var group model.Group
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", owner, name).
		Take(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("GROUP_NOT_FOUND").With("name", name).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("GROUP_QUERY_FAILED").With("name", name).Wrap(err)
	}
	return &group, nil
}

func (r *groupRepository) FindByNameContaining(ctx context.Context, owner uuid.UUID, fragment string) ([]model.Group, error) {
	return r.list(ctx, "user_id = ? AND name LIKE ?", owner, containsPattern(fragment))
}

func (r *groupRepository) FindByCompany(ctx context.Context, owner uuid.UUID, company string) ([]model.Group, error) {
	return r.list(ctx, "user_id = ? AND company = ?", owner, company)
}

func (r *groupRepository) FindByOwner(ctx context.Context, owner uuid.UUID) ([]model.Group, error) {
	return r.list(ctx, "user_id = ?", owner)
}

func (r *groupRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Group, error) {
	var groups []model.Group
	if err := r.db.WithContext(ctx).Where(query, args...).Order("name").Find(&groups).Error; err != nil {
		return nil, oops.Code("GROUP_QUERY_FAILED").With("query", query).Wrap(err)
	}
	return groups, nil
}

func (r *groupRepository) ExistsByName(ctx context.Context, owner uuid.UUID, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Group{}).
		Where("user_id = ? AND name = ?", owner, name).
		Count(&count).Error
	if err != nil {
		return false, oops.Code("GROUP_QUERY_FAILED").With("name", name).Wrap(err)
	}
	return count > 0, nil
}

func (r *groupRepository) Update(ctx context.Context, group *model.Group, expectedVersion int64) error {
	res := r.db.WithContext(ctx).Model(&model.Group{}).
		Where("id = ? AND user_id = ? AND version = ?", group.ID, group.UserID, expectedVersion).
		Updates(map[string]interface{}{
			"name":        group.Name,
			"company":     group.Company,
			"description": group.Description,
			"updated_at":  group.UpdatedAt,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return oops.Code("GROUP_DUPLICATE").With("name", group.Name).Wrap(ErrDuplicate)
		}
		return oops.Code("GROUP_UPDATE_FAILED").With("id", group.ID.String()).Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return oops.Code("GROUP_STALE").
			With("id", group.ID.String()).
			With("expected_version", expectedVersion).
			Wrap(ErrStaleVersion)
	}
	group.Version = expectedVersion + 1
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, owner).Delete(&model.Group{})
	if res.Error != nil {
		return oops.Code("GROUP_DELETE_FAILED").With("id", id.String()).Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return oops.Code("GROUP_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	return nil
}
