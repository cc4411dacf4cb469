// Package token mints and verifies the signed, single-use verification
// tokens that drive account confirmation. Every signed token is backed by a
// store row; redemption checks both the signature and the row.
package token

import (
	"context"
	"errors"
	"time"
)

// Status of a stored verification token. A token moves PENDING -> USED
// exactly once, or PENDING -> REVOKED; rows are never deleted.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusUsed    Status = "USED"
	StatusRevoked Status = "REVOKED"
)

// Purpose identifies which confirmation endpoint a token may redeem. It is a
// first-class claim matched explicitly on redemption, so a token minted for
// one workflow can never drive another.
type Purpose string

const (
	PurposeSimpleUser Purpose = "simple-user"
	// PurposeOrgUserEmployee is the first stage of the two-party approval,
	// redeemable by the employee.
	PurposeOrgUserEmployee Purpose = "org-user-employee"
	// PurposeOrgUserCompany is the second stage, redeemable by an
	// organization admin.
	PurposeOrgUserCompany Purpose = "org-user-company"
	PurposeOrgAdmin       Purpose = "org-admin"
)

// VerificationToken is one outstanding confirmation grant.
type VerificationToken struct {
	ID        int64
	JTI       string
	SubjectID string
	Status    Status
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Store persists verification token rows.
type Store interface {
	Create(ctx context.Context, t *VerificationToken) error
	Find(ctx context.Context, id int64) (*VerificationToken, error)
	// MarkUsed transitions PENDING -> USED. It reports ErrInvalidToken when
	// the row was already consumed, which makes concurrent redemption safe.
	MarkUsed(ctx context.Context, id int64) error
}

var (
	// ErrInvalidToken covers bad signature, unknown row, jti mismatch,
	// wrong purpose and wrong status. Callers deliberately cannot tell
	// these apart.
	ErrInvalidToken = errors.New("token: invalid")
	// ErrTokenExpired is surfaced separately so the caller can suggest
	// requesting a fresh confirmation link.
	ErrTokenExpired = errors.New("token: expired")
)
