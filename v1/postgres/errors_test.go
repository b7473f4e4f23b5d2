package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, ErrRecordNotFound},
		{"wrapped record not found", fmt.Errorf("loading: %w", gorm.ErrRecordNotFound), ErrRecordNotFound},
		{"gorm duplicate", gorm.ErrDuplicatedKey, ErrDuplicateKey},
		{"gorm foreign key", gorm.ErrForeignKeyViolated, ErrForeignKey},
		{"missing where", gorm.ErrMissingWhereClause, ErrMissingWhereClause},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "books_pkey"}, ErrDuplicateKey},
		{"foreign key violation", &pgconn.PgError{Code: "23503", ConstraintName: "fk_books_author"}, ErrForeignKey},
		{"not null violation", &pgconn.PgError{Code: "23502", Message: "null value"}, ErrInvalidData},
		{"check violation", &pgconn.PgError{Code: "23514", Message: "check"}, ErrInvalidData},
		{"invalid text", &pgconn.PgError{Code: "22P02", Message: "invalid input syntax"}, ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, TranslateError(tt.err), tt.want)
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, TranslateError(nil))
	})

	t.Run("unknown errors pass through", func(t *testing.T) {
		custom := errors.New("custom error")
		assert.Equal(t, custom, TranslateError(custom))

		syntax := &pgconn.PgError{Code: "42601"}
		assert.Equal(t, error(syntax), TranslateError(syntax))
	})

	t.Run("constraint name is kept", func(t *testing.T) {
		err := TranslateError(&pgconn.PgError{Code: "23505", ConstraintName: "books_pkey"})
		assert.Contains(t, err.Error(), "books_pkey")
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"too many connections", &pgconn.PgError{Code: "53300"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
