package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))

	assert.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
