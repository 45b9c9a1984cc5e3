package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weavetrack/weavetrack/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", shared.NewValidationError("sets", "must be positive"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("decode: %w", shared.ErrValidation), http.StatusBadRequest},
		{"not found", shared.NotFound("order", 3), http.StatusNotFound},
		{"duplicate", shared.ErrIdempotencyConflict, http.StatusConflict},
		{"conflict", shared.ErrConflict, http.StatusConflict},
		{"persistence", shared.NewPersistenceError("insert", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: password authentication failed"))

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Detail)
}

func TestRespondErrorCapacityExtensions(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, fmt.Errorf("create lot: %w", &shared.InsufficientCapacityError{OrderID: 4, DesignNumber: "D2", Requested: 6, Available: 5}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "insufficient-capacity", body.Type)
	assert.Equal(t, "D2", body.Extensions["design_number"])
	assert.EqualValues(t, 6, body.Extensions["requested"])
	assert.EqualValues(t, 5, body.Extensions["available"])
}
