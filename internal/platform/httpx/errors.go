// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/weavetrack/weavetrack/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var capErr *shared.InsufficientCapacityError
	var valErr *shared.ValidationError
	switch {
	case errors.As(err, &capErr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Type:   "insufficient-capacity",
			Title:  "Insufficient Capacity",
			Status: http.StatusBadRequest,
			Detail: capErr.Error(),
			Extensions: map[string]any{
				"order_id":      capErr.OrderID,
				"design_number": capErr.DesignNumber,
				"requested":     capErr.Requested,
				"available":     capErr.Available,
			},
		})
	case errors.As(err, &valErr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:      "Validation Failed",
			Status:     http.StatusBadRequest,
			Detail:     valErr.Error(),
			Extensions: map[string]any{"field": valErr.Field},
		})
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
