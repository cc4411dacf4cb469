package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/identity"
)

// ManageProfileInput changes an account's contact details or password. The
// old email identifies the account; empty optional fields are left untouched.
type ManageProfileInput struct {
	OldEmail     string
	NewEmail     string
	MobileNumber string
	OldPassword  string
	NewPassword  string
	Name         string
	Surname      string
}

// ManageProfile updates credentials at the identity service first, then
// brings the local profile in line. A profile row missing locally is
// recreated from the submitted details so the two systems reconverge.
func (s *Service) ManageProfile(ctx context.Context, in ManageProfileInput) (*account.Profile, error) {
	accountID, err := s.identity.ManageAccount(ctx, identity.ManageAccount{
		OldEmail:     in.OldEmail,
		NewEmail:     in.NewEmail,
		MobileNumber: in.MobileNumber,
		OldPassword:  in.OldPassword,
		NewPassword:  in.NewPassword,
	})
	if err != nil {
		return nil, err
	}

	email := in.NewEmail
	if email == "" {
		email = in.OldEmail
	}

	p, err := s.store.Profiles().FindByEmail(ctx, in.OldEmail)
	switch {
	case err == nil:
		if in.NewEmail != "" {
			p.Email = in.NewEmail
		}
		if in.MobileNumber != "" {
			p.MobileNumber = in.MobileNumber
		}
		if in.Name != "" {
			p.Name = in.Name
		}
		if in.Surname != "" {
			p.Surname = in.Surname
		}
		if err := s.store.Profiles().Update(ctx, p); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	case errors.Is(err, account.ErrNotFound):
		p = &account.Profile{
			ID:           accountID,
			Email:        email,
			MobileNumber: in.MobileNumber,
			Name:         in.Name,
			Surname:      in.Surname,
		}
		if err := s.store.Profiles().Create(ctx, p); err != nil {
			return nil, fmt.Errorf("recreate profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("find profile: %w", err)
	}

	s.log.WithField("account_id", p.ID).Info("profile updated")
	return p, nil
}
