package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrConcurrentModification is returned when a versioned row changed between
	// read and write. The caller re-reads and tries again.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// IsConflict reports whether err is a write conflict that a retry may resolve.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) || errors.Is(err, ErrDuplicate)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func translateCreate(err error) error {
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
