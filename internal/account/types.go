package account

import "time"

// Profile is a confirmed or pending account record. The id is the account id
// issued by the identity service, assigned as soon as credentials exist there.
type Profile struct {
	ID           string
	Email        string
	MobileNumber string
	Name         string
	Surname      string
	BirthDate    time.Time
	// OrgID references the employing organization, empty for individuals.
	OrgID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Organization is a legal entity unique by registration number.
type Organization struct {
	ID                 string
	Name               string
	RegistrationNumber string
	Email              string
	Country            string
	EmergencyPhone     string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RegistrationDecision is a pending application's admin verdict.
type RegistrationDecision string

const (
	DecisionPending  RegistrationDecision = "PENDING"
	DecisionApproved RegistrationDecision = "APPROVED"
	DecisionRejected RegistrationDecision = "REJECTED"
)

// RegistrationProcess is an organization's pending application: the legal
// entity's identity fields plus the submitting admin's contact details.
type RegistrationProcess struct {
	ID                 int64
	OrganizationName   string
	RegistrationNumber string
	Country            string
	AdminEmail         string
	AdminPhone         string
	AdminName          string
	AdminSurname       string
	Decision           RegistrationDecision
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RequestStatus tracks the two-party approval of an organization employee.
// Transitions are strictly forward: PENDING_EMPLOYEE -> PENDING_COMPANY -> APPROVED.
type RequestStatus string

const (
	StatusPendingEmployee RequestStatus = "PENDING_EMPLOYEE"
	StatusPendingCompany  RequestStatus = "PENDING_COMPANY"
	StatusApproved        RequestStatus = "APPROVED"
)

// RegistrationRequest tracks a would-be employee's two-party approval.
type RegistrationRequest struct {
	ID                 int64
	UserEmail          string
	RegistrationNumber string
	Status             RequestStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ProcessFilter narrows a registration process search. Zero values match all.
type ProcessFilter struct {
	OrganizationName   string
	RegistrationNumber string
	Decision           RegistrationDecision
}

// ProcessPage is one page of registration process search results, newest first.
type ProcessPage struct {
	Items         []*RegistrationProcess
	PageNumber    int
	PageSize      int
	TotalElements int64
	TotalPages    int
}
