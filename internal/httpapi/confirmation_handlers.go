package httpapi

import (
	"net/http"

	"github.com/theodoreromeos/account-management/internal/confirmation"
)

// tokenParam extracts the verification token from the query string.
func tokenParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return "", false
	}
	return raw, true
}

func (a *API) ConfirmSimpleUser(w http.ResponseWriter, r *http.Request) {
	raw, ok := tokenParam(w, r)
	if !ok {
		return
	}
	res, err := a.confirmations.ConfirmSimpleUser(r.Context(), raw)
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) ConfirmOrgUserByUser(w http.ResponseWriter, r *http.Request) {
	raw, ok := tokenParam(w, r)
	if !ok {
		return
	}
	res, err := a.confirmations.ConfirmOrganizationUserByUser(r.Context(), raw)
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) ConfirmOrgUserByOrganization(w http.ResponseWriter, r *http.Request) {
	raw, ok := tokenParam(w, r)
	if !ok {
		return
	}
	res, err := a.confirmations.ConfirmOrganizationUserByOrganization(r.Context(), raw)
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type orgAdminConfirmRequest struct {
	Email           string `json:"email" validate:"required,email"`
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func (a *API) ConfirmOrgAdmin(w http.ResponseWriter, r *http.Request) {
	raw, ok := tokenParam(w, r)
	if !ok {
		return
	}
	var req orgAdminConfirmRequest
	if !a.decode(w, r, &req) {
		return
	}
	res, err := a.confirmations.ConfirmOrganizationAdmin(r.Context(), raw, confirmation.AdminConfirmInput{
		Email:           req.Email,
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
