package account

import "context"

// ProfileStore persists account profiles.
type ProfileStore interface {
	Create(ctx context.Context, p *Profile) error
	Find(ctx context.Context, id string) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	ExistsByEmailAndMobile(ctx context.Context, email, mobile string) (bool, error)
	Update(ctx context.Context, p *Profile) error
	// Delete removes a profile row; used only as a saga compensation.
	Delete(ctx context.Context, id string) error
}

// OrganizationStore persists organizations.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	FindByRegistrationNumber(ctx context.Context, regNumber string) (*Organization, error)
	ExistsByRegistrationNumber(ctx context.Context, regNumber string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// ProcessStore persists organization registration applications.
type ProcessStore interface {
	Create(ctx context.Context, p *RegistrationProcess) error
	Find(ctx context.Context, id int64) (*RegistrationProcess, error)
	// UpdateDecision persists a PENDING -> APPROVED/REJECTED transition and
	// fails with ErrInvalidState when the row is no longer pending.
	UpdateDecision(ctx context.Context, id int64, decision RegistrationDecision) error
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter ProcessFilter, page, pageSize int) (*ProcessPage, error)
}

// RequestStore persists organization user registration requests.
type RequestStore interface {
	Create(ctx context.Context, r *RegistrationRequest) error
	FindByUserEmail(ctx context.Context, email string) (*RegistrationRequest, error)
	// Advance persists a forward status transition. It fails with
	// ErrInvalidState unless the row currently holds the expected status,
	// which makes out-of-order confirmations race-safe at the store level.
	Advance(ctx context.Context, id int64, from, to RequestStatus) error
	Delete(ctx context.Context, id int64) error
}

// Store bundles the relational stores behind one dependency.
type Store interface {
	Profiles() ProfileStore
	Organizations() OrganizationStore
	Processes() ProcessStore
	Requests() RequestStore
}
