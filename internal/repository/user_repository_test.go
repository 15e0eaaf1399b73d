package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oshikatsu/internal/model"
)

var userColumns = []string{"id", "username", "email", "password_hash", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "success"},
		{name: "duplicate username", execErr: &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'taro'"}, wantErr: ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewUserRepository(db)

			exp := mock.ExpectExec("INSERT INTO `users`")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, 1))
			}

			user := &model.User{Username: "taro", Email: "taro@x.com", PasswordHash: "hash"}
			err := repo.Create(context.Background(), user)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, user.ID)
		})
	}
}

func TestUserRepository_FindByUsername(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(id.String(), "taro", "taro@x.com", "hash", now, now))

	user, err := repo.FindByUsername(context.Background(), "taro")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "taro@x.com", user.Email)
}

func TestUserRepository_FindByUsername_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.FindByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_FindByID_QueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Exists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE username = \\?").
		WithArgs("taro").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE email = \\?").
		WithArgs("new@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	taken, err := repo.ExistsByUsername(context.Background(), "taro")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.ExistsByEmail(context.Background(), "new@x.com")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUserRepository_UpdatePasswordHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()

	mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `users` SET").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePasswordHash(context.Background(), id, "new-hash", time.Now()))
	assert.ErrorIs(t, repo.UpdatePasswordHash(context.Background(), id, "new-hash", time.Now()), ErrNotFound)
}
