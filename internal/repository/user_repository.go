package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"gorm.io/gorm"

	"oshikatsu/internal/model"
)

// UserRepository is the credential store: persisted users looked up by
// username, email or id.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, updatedAt time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if IsUniqueViolation(err) {
			return oops.Code("USER_DUPLICATE").With("username", user.Username).Wrap(ErrDuplicate)
		}
		return oops.Code("USER_CREATE_FAILED").With("username", user.Username).Wrap(err)
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "username", username)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *userRepository) findOne(ctx context.Context, column string, value interface{}) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where(column+" = ?", value).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, oops.Code("USER_NOT_FOUND").With(column, value).Wrap(ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").With(column, value).Wrap(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", username)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", email)
}

func (r *userRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where(column+" = ?", value).Count(&count).Error; err != nil {
		return false, oops.Code("USER_QUERY_FAILED").With(column, value).Wrap(err)
	}
	return count > 0, nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": updatedAt})
	if res.Error != nil {
		return oops.Code("USER_UPDATE_FAILED").With("id", id.String()).Wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(ErrNotFound)
	}
	return nil
}
