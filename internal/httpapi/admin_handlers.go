package httpapi

import (
	"net/http"
	"strconv"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/registration"
)

type manageProfileRequest struct {
	OldEmail     string `json:"oldEmail" validate:"required,email"`
	NewEmail     string `json:"newEmail" validate:"omitempty,email"`
	MobileNumber string `json:"mobileNumber"`
	OldPassword  string `json:"oldPassword"`
	NewPassword  string `json:"newPassword"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
}

type manageProfileResponse struct {
	AccountID    string `json:"accountId"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobileNumber"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
}

func (a *API) ManageProfile(w http.ResponseWriter, r *http.Request) {
	var req manageProfileRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := a.registrations.ManageProfile(r.Context(), registration.ManageProfileInput{
		OldEmail:     req.OldEmail,
		NewEmail:     req.NewEmail,
		MobileNumber: req.MobileNumber,
		OldPassword:  req.OldPassword,
		NewPassword:  req.NewPassword,
		Name:         req.Name,
		Surname:      req.Surname,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, manageProfileResponse{
		AccountID:    p.ID,
		Email:        p.Email,
		MobileNumber: p.MobileNumber,
		Name:         p.Name,
		Surname:      p.Surname,
	})
}

type processItem struct {
	ID                 int64  `json:"id"`
	OrganizationName   string `json:"organizationName"`
	RegistrationNumber string `json:"registrationNumber"`
	Country            string `json:"country"`
	AdminEmail         string `json:"adminEmail"`
	Decision           string `json:"decision"`
}

type processPageResponse struct {
	Items         []processItem `json:"items"`
	PageNumber    int           `json:"pageNumber"`
	PageSize      int           `json:"pageSize"`
	TotalElements int64         `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
}

func (a *API) SearchProcesses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	filter := account.ProcessFilter{
		OrganizationName:   q.Get("name"),
		RegistrationNumber: q.Get("registrationNumber"),
		Decision:           account.RegistrationDecision(q.Get("decision")),
	}
	res, err := a.registrations.SearchProcesses(r.Context(), filter, page, pageSize)
	if err != nil {
		a.respondError(w, err)
		return
	}
	out := processPageResponse{
		Items:         make([]processItem, 0, len(res.Items)),
		PageNumber:    res.PageNumber,
		PageSize:      res.PageSize,
		TotalElements: res.TotalElements,
		TotalPages:    res.TotalPages,
	}
	for _, p := range res.Items {
		out.Items = append(out.Items, processItem{
			ID:                 p.ID,
			OrganizationName:   p.OrganizationName,
			RegistrationNumber: p.RegistrationNumber,
			Country:            p.Country,
			AdminEmail:         p.AdminEmail,
			Decision:           string(p.Decision),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type decisionRequest struct {
	ProcessID int64 `json:"processId" validate:"required"`
	Approve   bool  `json:"approve"`
}

func (a *API) DecideProcess(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.registrations.Decide(r.Context(), req.ProcessID, req.Approve); err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "decision recorded"})
}
