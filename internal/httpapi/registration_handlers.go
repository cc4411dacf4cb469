package httpapi

import (
	"net/http"
	"time"

	"github.com/theodoreromeos/account-management/internal/registration"
)

const birthDateLayout = "2006-01-02"

type simpleUserRequest struct {
	Email        string `json:"email" validate:"required,email"`
	MobileNumber string `json:"mobileNumber" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Surname      string `json:"surname" validate:"required"`
	BirthDate    string `json:"birthDate" validate:"required"`
}

func (a *API) RegisterSimpleUser(w http.ResponseWriter, r *http.Request) {
	var req simpleUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	birth, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid birthDate, expected YYYY-MM-DD")
		return
	}
	rcpt, err := a.registrations.RegisterSimpleUser(r.Context(), registration.SimpleUserInput{
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Name:         req.Name,
		Surname:      req.Surname,
		BirthDate:    birth,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rcpt)
}

type orgUserRequest struct {
	Email              string `json:"email" validate:"required,email"`
	MobileNumber       string `json:"mobileNumber" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Surname            string `json:"surname" validate:"required"`
	BirthDate          string `json:"birthDate" validate:"required"`
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
}

func (a *API) RegisterOrganizationUser(w http.ResponseWriter, r *http.Request) {
	var req orgUserRequest
	if !a.decode(w, r, &req) {
		return
	}
	birth, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid birthDate, expected YYYY-MM-DD")
		return
	}
	rcpt, err := a.registrations.RegisterOrganizationUser(r.Context(), registration.OrgUserInput{
		Email:              req.Email,
		MobileNumber:       req.MobileNumber,
		Name:               req.Name,
		Surname:            req.Surname,
		BirthDate:          birth,
		RegistrationNumber: req.RegistrationNumber,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rcpt)
}

type organizationRequest struct {
	OrganizationName   string `json:"organizationName" validate:"required"`
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
	Country            string `json:"country" validate:"required"`
	AdminEmail         string `json:"adminEmail" validate:"required,email"`
	AdminPhone         string `json:"adminPhone" validate:"required"`
	AdminName          string `json:"adminName" validate:"required"`
	AdminSurname       string `json:"adminSurname" validate:"required"`
}

func (a *API) RegisterOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if !a.decode(w, r, &req) {
		return
	}
	rcpt, err := a.registrations.RegisterOrganization(r.Context(), registration.OrganizationApplication{
		OrganizationName:   req.OrganizationName,
		RegistrationNumber: req.RegistrationNumber,
		Country:            req.Country,
		AdminEmail:         req.AdminEmail,
		AdminPhone:         req.AdminPhone,
		AdminName:          req.AdminName,
		AdminSurname:       req.AdminSurname,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rcpt)
}
