package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cremeria/auth"
	"cremeria/sales"
	"cremeria/store"
)

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeDomainError maps domain sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sales.ErrEmptyCart),
		errors.Is(err, sales.ErrNoTender),
		errors.Is(err, sales.ErrTenderMismatch),
		errors.Is(err, sales.ErrMissingCreditCustomer),
		errors.Is(err, sales.ErrBadLine):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, sales.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrBadCredentials),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrSessionInvalid),
		errors.Is(err, auth.ErrUserInactive),
		errors.Is(err, auth.ErrTooManyAttempts):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}
