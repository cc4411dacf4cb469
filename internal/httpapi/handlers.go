package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/confirmation"
	"github.com/theodoreromeos/account-management/internal/identity"
	"github.com/theodoreromeos/account-management/internal/token"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decode reads and validates a JSON request body.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "invalid field: "+verrs[0].Field())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

// respondError maps domain errors onto HTTP status codes.
func (a *API) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, "token expired")
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid token")
	case errors.Is(err, confirmation.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, "passwords do not match")
	case errors.Is(err, account.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, account.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid state")
	case errors.Is(err, account.ErrConflict), errors.Is(err, identity.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	case errors.Is(err, identity.ErrUnavailable), errors.Is(err, confirmation.ErrIdentityRejected):
		writeError(w, http.StatusBadGateway, "upstream service failed")
	default:
		a.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
