package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when no row matches a lookup, update or delete.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update violates a unique index.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleVersion is returned when an optimistic update matched no row at the expected version.
	ErrStaleVersion = errors.New("stale record version")
)

const mysqlDuplicateEntry = 1062

// IsUniqueViolation reports whether err is a unique-constraint violation from
// gorm's error translation, the MySQL driver, or pgx.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return true
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere in a column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
