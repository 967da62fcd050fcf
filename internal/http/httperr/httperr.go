// Package httperr maps settlement domain errors onto HTTP status codes so
// every handler reports failures the same way.
package httperr

import (
	"errors"
	"net/http"

	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

// Write reports err with the status code matching its kind: invalid input
// is 400, a missing row 404 and an out-of-order workflow step 409.
// Anything else is an internal error and the detail stays out of the body.
func Write(w http.ResponseWriter, err error) {
	var validationErr *settlement.ValidationError
	if errors.As(err, &validationErr) {
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
		return
	}

	if errors.Is(err, money.ErrCurrencyMismatch) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if errors.Is(err, settlement.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var transitionErr *settlement.TransitionError
	if errors.As(err, &transitionErr) {
		http.Error(w, transitionErr.Error(), http.StatusConflict)
		return
	}

	http.Error(w, "internal error", http.StatusInternalServerError)
}
