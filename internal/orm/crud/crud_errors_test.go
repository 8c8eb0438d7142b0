package crud

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestConvertDBErrorWithPgErrors(t *testing.T) {
	// Test unique violation
	pgErr := &pgconn.PgError{Code: "23505", Detail: "Key (s)=(test) already exists."}
	err := ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.Contains(t, err.Error(), "Key (s)")

	// Test foreign key violation
	pgErr = &pgconn.PgError{Code: "23503", Detail: "Key (owner_id)=(123) is not present in table owners."}
	err = ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrForeignKeyViolation)
	assert.Contains(t, err.Error(), "Key (owner_id)")

	// Test check violation
	pgErr = &pgconn.PgError{Code: "23514", Detail: "Check constraint failed"}
	err = ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrCheckViolation)

	// Test not null violation
	pgErr = &pgconn.PgError{Code: "23502", ColumnName: "renamed"}
	err = ConvertDBError(pgErr)
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.Contains(t, err.Error(), "renamed")

	// Test unknown pg error
	pgErr = &pgconn.PgError{Code: "99999", Message: "Unknown error"}
	err = ConvertDBError(pgErr)
	assert.Equal(t, pgErr, err)

	// Test generic error
	genericErr := errors.New("generic error")
	err = ConvertDBError(genericErr)
	assert.Equal(t, genericErr, err)

	assert.NoError(t, ConvertDBError(nil))
}

func TestConvertDBErrorWithPqErrors(t *testing.T) {
	err := ConvertDBError(fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Detail: "duplicate"}))
	assert.True(t, IsUniqueViolation(err))

	err = ConvertDBError(&pq.Error{Code: "23502", Column: "s"})
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.Contains(t, err.Error(), "column s")
}

func TestConvertDBErrorWithSQLiteErrors(t *testing.T) {
	err := ConvertDBError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique})
	assert.True(t, IsUniqueViolation(err))

	err = ConvertDBError(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintForeignKey})
	assert.True(t, IsForeignKeyViolation(err))

	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	assert.Equal(t, busy, ConvertDBError(busy))
}

func TestConvertDBErrorNoRows(t *testing.T) {
	assert.True(t, IsNotFound(ConvertDBError(sql.ErrNoRows)))
}
