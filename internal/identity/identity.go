// Package identity talks to the external identity service, the system of
// record for login credentials. All calls are synchronous RPC-style requests;
// a failure here is terminal for the calling saga step.
package identity

import (
	"context"
	"errors"
	"fmt"
)

// Role is the credential role requested for a new organization account.
type Role string

const (
	RoleSimpleUser        Role = "SIMPLE_USER"
	RoleOrganizationAdmin Role = "ORGANIZATION_ADMIN"
)

// ConfirmationStatus is the identity service's verdict on an account confirm.
type ConfirmationStatus string

const (
	ConfirmationConfirmed ConfirmationStatus = "CONFIRMED"
	ConfirmationFailed    ConfirmationStatus = "FAILED"
)

// NewSimpleCredentials is a request to create an individual's credentials.
type NewSimpleCredentials struct {
	Email        string
	MobileNumber string
	Password     string
}

// NewOrganizationCredentials is a request to create credentials bound to an
// organization, either for an employee or for the organization's admin.
type NewOrganizationCredentials struct {
	Email              string
	MobileNumber       string
	Password           string
	RegistrationNumber string
}

// ManageAccount changes an existing account's contact details or password.
type ManageAccount struct {
	OldEmail     string
	NewEmail     string
	MobileNumber string
	OldPassword  string
	NewPassword  string
}

// AdminContact is one organization admin able to approve employee requests.
type AdminContact struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
}

// Client is the identity-service contract consumed by this service.
type Client interface {
	CreateSimpleCredentials(ctx context.Context, req NewSimpleCredentials) (accountID string, err error)
	CreateOrganizationCredentials(ctx context.Context, req NewOrganizationCredentials, role Role) (accountID string, err error)
	ConfirmAccount(ctx context.Context, accountID string) (ConfirmationStatus, error)
	ManageAccount(ctx context.Context, req ManageAccount) (accountID string, err error)
	OrgAdminContacts(ctx context.Context, registrationNumber string) ([]AdminContact, error)
	ConfirmOrgAdminAccount(ctx context.Context, accountID, oldPassword, newPassword string) (ConfirmationStatus, error)
}

// Sentinel errors for use with errors.Is.
var (
	// ErrConflict indicates credentials already exist for the identity.
	ErrConflict = errors.New("identity: conflict")
	// ErrNotFound indicates the referenced account is unknown upstream.
	ErrNotFound = errors.New("identity: not found")
	// ErrUnavailable indicates the identity service failed or was
	// unreachable; callers treat it as an upstream failure.
	ErrUnavailable = errors.New("identity: unavailable")
)

// APIError is a typed failure from the identity service HTTP API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity api error (status %d): %s", e.StatusCode, e.Message)
}

// Is maps HTTP status classes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 404:
		return target == ErrNotFound
	case 409:
		return target == ErrConflict
	}
	if e.StatusCode >= 500 && e.StatusCode < 600 {
		return target == ErrUnavailable
	}
	return false
}
