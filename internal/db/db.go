package db

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"oshikatsu/internal/model"
)

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Dialector returns the gorm dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the database, retrying with exponential backoff while
// the server is still coming up.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*gorm.DB, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var conn *gorm.DB
	attempt := 0
	backoff := retry.WithMaxRetries(connectAttempts-1, retry.NewExponential(connectBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
		if err != nil {
			logger.Warn("database connect failed", zap.String("driver", driver), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			logger.Warn("database ping failed", zap.String("driver", driver), zap.Int("attempt", attempt), zap.Error(err))
			_ = sqlDB.Close()
			return retry.RetryableError(err)
		}
		conn = db
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return conn, nil
}

// Migrate creates or updates the schema. With reset set, the tables are
// dropped first, children before parents.
func Migrate(db *gorm.DB, reset bool) error {
	if reset {
		if err := db.Migrator().DropTable(&model.Member{}, &model.Group{}, &model.User{}); err != nil {
			return fmt.Errorf("drop tables: %w", err)
		}
	}
	if err := db.AutoMigrate(&model.User{}, &model.Group{}, &model.Member{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
