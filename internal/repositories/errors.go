package repositories

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
	// ErrConstraint indicates the write broke an integrity rule other than uniqueness.
	ErrConstraint = errors.New("constraint violation")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"

	shareCodeConstraint = "shares_share_code_key"
)

// classify maps integrity violations reported by the database onto the
// package sentinels. It returns nil when err is not an integrity violation.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return ErrConflict
	case pgForeignKeyViolation:
		return ErrNotFound
	case pgCheckViolation, pgNotNullViolation:
		return ErrConstraint
	}
	return nil
}

// isShareCodeConflict reports whether err is a uniqueness violation on the share code.
func isShareCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return pgErr.ConstraintName == shareCodeConstraint || strings.Contains(pgErr.Message, shareCodeConstraint)
}
