package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString = errors.New("empty postgres connection string")
	ErrFailedToParseConfig   = errors.New("failed to parse postgres config")
	ErrFailedToConnect       = errors.New("failed to connect to postgres")
	ErrHealthcheckFailed     = errors.New("postgres healthcheck failed")
)

// SQLSTATE classes the profile upsert must distinguish.
const (
	sqlstateUniqueViolation       = "23505"
	sqlstateInsufficientPrivilege = "42501"
)

// IsNotFound detects pgx.ErrNoRows for consistent not-found handling.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation detects a unique constraint violation (SQLSTATE 23505),
// such as a username collision.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateUniqueViolation
}

// IsPermissionDenied detects a row-level-security or privilege rejection
// (SQLSTATE 42501). This class must never be conflated with a uniqueness
// violation: one is a system race, the other a user-fixable input.
func IsPermissionDenied(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == sqlstateInsufficientPrivilege
}
