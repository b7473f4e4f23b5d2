package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Common database error types that can be used by consumers of this package.
// They abstract away the underlying driver error details.
var (
	// ErrRecordNotFound is returned when a query doesn't find any matching records
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert or update violates a unique constraint
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrForeignKey is returned when an operation violates a foreign key constraint
	ErrForeignKey = errors.New("foreign key violation")

	// ErrInvalidData is returned when the data being saved doesn't meet validation rules
	ErrInvalidData = errors.New("invalid data")

	// ErrMissingWhereClause is returned by Delete and Update on an unfiltered query set
	ErrMissingWhereClause = errors.New("missing where clause")

	// ErrUnknownField is returned when a lookup names a field the model does not have
	ErrUnknownField = errors.New("unknown field")

	// ErrUnsupportedLookup is returned for lookups the compiler cannot express
	ErrUnsupportedLookup = errors.New("unsupported lookup")

	// ErrInvalidOperand is returned when a lookup value does not fit its operator
	ErrInvalidOperand = errors.New("invalid lookup operand")

	// ErrInvalidModel is returned when the model of a query set cannot be parsed
	ErrInvalidModel = errors.New("invalid model")
)

// PostgreSQL SQLSTATE codes mapped by TranslateError.
const (
	codeUniqueViolation       = "23505"
	codeForeignKeyViolation   = "23503"
	codeNotNullViolation      = "23502"
	codeCheckViolation        = "23514"
	codeInvalidTextRepr       = "22P02"
	codeSerializationFailure  = "40001"
	codeDeadlockDetected      = "40P01"
	classConnectionException  = "08"
	classInsufficientResource = "53"
)

// TranslateError converts gorm and pgx errors into the errors above.
// Errors it does not recognize are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKey
	case errors.Is(err, gorm.ErrInvalidData):
		return ErrInvalidData
	case errors.Is(err, gorm.ErrMissingWhereClause):
		return ErrMissingWhereClause
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		case codeNotNullViolation, codeCheckViolation, codeInvalidTextRepr:
			return fmt.Errorf("%w: %s", ErrInvalidData, pgErr.Message)
		}
	}

	return err
}

// IsRetryable reports whether running the same statement again may succeed:
// connection failures, serialization failures, deadlocks and resource shortages.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	class := pgErr.Code
	if len(class) >= 2 {
		class = class[:2]
	}
	return class == classConnectionException || class == classInsufficientResource
}

// TranslateError is the method form of the package-level TranslateError.
func (p *Postgres) TranslateError(err error) error {
	return TranslateError(err)
}
