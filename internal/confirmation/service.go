// Package confirmation redeems verification tokens. Each operation verifies
// the token for its own purpose, performs the confirmation work, and only
// then consumes the token, so a failed confirmation can be retried with the
// same link.
package confirmation

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/identity"
	"github.com/theodoreromeos/account-management/internal/messaging"
	"github.com/theodoreromeos/account-management/internal/token"
)

var (
	// ErrPasswordMismatch is returned when the two password fields of an
	// admin confirmation differ.
	ErrPasswordMismatch = errors.New("confirmation: passwords do not match")
	// ErrIdentityRejected is returned when the identity service answered
	// but refused to confirm the account. The token stays redeemable.
	ErrIdentityRejected = errors.New("confirmation: identity service rejected the confirmation")
)

// Result acknowledges a successful confirmation step.
type Result struct {
	Message string `json:"message"`
}

// Service performs confirmation flows.
type Service struct {
	store     account.Store
	tokens    *token.Service
	identity  identity.Client
	publisher messaging.Publisher
	log       *logrus.Logger
	// confirmBaseURL prefixes the approval links mailed to organization admins.
	confirmBaseURL string
}

// NewService wires a confirmation Service.
func NewService(
	store account.Store,
	tokens *token.Service,
	idClient identity.Client,
	publisher messaging.Publisher,
	confirmBaseURL string,
	log *logrus.Logger,
) *Service {
	return &Service{
		store:          store,
		tokens:         tokens,
		identity:       idClient,
		publisher:      publisher,
		confirmBaseURL: confirmBaseURL,
		log:            log,
	}
}

// matchProfile rejects tokens whose claims no longer describe the stored
// profile, so a stale or replayed token cannot confirm a changed account.
func (s *Service) matchProfile(ctx context.Context, claims *token.Claims) error {
	p, err := s.store.Profiles().Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return token.ErrInvalidToken
		}
		return fmt.Errorf("find profile: %w", err)
	}
	if p.Email != claims.Email {
		return token.ErrInvalidToken
	}
	return nil
}

// ConfirmSimpleUser redeems an individual's verification link. The token is
// consumed only after the identity service reports the account confirmed.
func (s *Service) ConfirmSimpleUser(ctx context.Context, raw string) (*Result, error) {
	red, err := s.tokens.Verify(ctx, raw, token.PurposeSimpleUser)
	if err != nil {
		return nil, err
	}
	if err := s.matchProfile(ctx, red.Claims); err != nil {
		return nil, err
	}
	status, err := s.identity.ConfirmAccount(ctx, red.Claims.Subject)
	if err != nil {
		return nil, err
	}
	if status != identity.ConfirmationConfirmed {
		s.warnUpstreamRejection("simple-user", red.Claims.Subject)
		return nil, ErrIdentityRejected
	}
	if err := s.tokens.MarkUsed(ctx, red.Record.ID); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishEmail(ctx, messaging.SendEmail{
		Recipients: []string{red.Claims.Email},
		Subject:    "Your account is ready",
		Body:       "Your email address has been verified and your account is now active.",
	}); err != nil {
		// The account is confirmed either way; the welcome mail is best effort.
		s.log.WithError(err).Warn("could not enqueue confirmation notice")
	}
	s.log.WithField("account_id", red.Claims.Subject).Info("simple user confirmed")
	return &Result{Message: "account confirmed"}, nil
}

// ConfirmOrganizationUserByUser redeems the employee-stage link. It moves the
// approval to the company stage and mails every organization admin a link
// carrying a fresh company-stage token.
func (s *Service) ConfirmOrganizationUserByUser(ctx context.Context, raw string) (*Result, error) {
	red, err := s.tokens.Verify(ctx, raw, token.PurposeOrgUserEmployee)
	if err != nil {
		return nil, err
	}
	if err := s.matchProfile(ctx, red.Claims); err != nil {
		return nil, err
	}
	req, err := s.store.Requests().FindByUserEmail(ctx, red.Claims.Email)
	if err != nil {
		return nil, fmt.Errorf("find registration request: %w", err)
	}
	if req.RegistrationNumber != red.Claims.Organization {
		return nil, token.ErrInvalidToken
	}
	if err := s.store.Requests().Advance(ctx, req.ID, account.StatusPendingEmployee, account.StatusPendingCompany); err != nil {
		return nil, err
	}

	admins, err := s.identity.OrgAdminContacts(ctx, req.RegistrationNumber)
	if err != nil {
		return nil, err
	}
	if len(admins) == 0 {
		return nil, fmt.Errorf("%w: organization %s has no admins", identity.ErrNotFound, req.RegistrationNumber)
	}

	signed, err := s.tokens.Issue(ctx, token.IssueParams{
		SubjectID:    red.Claims.Subject,
		Email:        red.Claims.Email,
		Organization: req.RegistrationNumber,
		Purpose:      token.PurposeOrgUserCompany,
	})
	if err != nil {
		return nil, err
	}
	recipients := make([]string, 0, len(admins))
	for _, a := range admins {
		recipients = append(recipients, a.Email)
	}
	link := fmt.Sprintf("%s/org-user/admin?token=%s", s.confirmBaseURL, url.QueryEscape(signed))
	if err := s.publisher.PublishEmail(ctx, messaging.SendEmail{
		Recipients: recipients,
		Subject:    "Employee registration approval needed",
		Body: fmt.Sprintf("%s asked to join your organization. Approve the request here: %s",
			red.Claims.Email, link),
	}); err != nil {
		return nil, err
	}

	if err := s.tokens.MarkUsed(ctx, red.Record.ID); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"email": red.Claims.Email,
		"org":   req.RegistrationNumber,
	}).Info("employee stage confirmed, awaiting company approval")
	return &Result{Message: "confirmation recorded, your organization has been asked to approve"}, nil
}

// ConfirmOrganizationUserByOrganization redeems the company-stage link an
// organization admin received. On approval the identity service activates
// the employee's account; if it answers with a rejection the request stays
// approved locally and the token stays redeemable for a retry.
func (s *Service) ConfirmOrganizationUserByOrganization(ctx context.Context, raw string) (*Result, error) {
	red, err := s.tokens.Verify(ctx, raw, token.PurposeOrgUserCompany)
	if err != nil {
		return nil, err
	}
	if err := s.matchProfile(ctx, red.Claims); err != nil {
		return nil, err
	}
	req, err := s.store.Requests().FindByUserEmail(ctx, red.Claims.Email)
	if err != nil {
		return nil, fmt.Errorf("find registration request: %w", err)
	}
	if req.RegistrationNumber != red.Claims.Organization {
		return nil, token.ErrInvalidToken
	}
	if err := s.store.Requests().Advance(ctx, req.ID, account.StatusPendingCompany, account.StatusApproved); err != nil {
		return nil, err
	}

	status, err := s.identity.ConfirmAccount(ctx, red.Claims.Subject)
	if err != nil {
		return nil, err
	}
	if status != identity.ConfirmationConfirmed {
		s.warnUpstreamRejection("org-user-company", red.Claims.Subject)
		return nil, ErrIdentityRejected
	}
	if err := s.tokens.MarkUsed(ctx, red.Record.ID); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"email": red.Claims.Email,
		"org":   req.RegistrationNumber,
	}).Info("organization user approved by company")
	return &Result{Message: "employee account confirmed"}, nil
}

// AdminConfirmInput is an organization admin's activation submission: the
// emailed token plus the placeholder password and its replacement.
type AdminConfirmInput struct {
	Email           string
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// ConfirmOrganizationAdmin activates an organization admin account. The new
// password pair must match before the token is even looked at.
func (s *Service) ConfirmOrganizationAdmin(ctx context.Context, raw string, in AdminConfirmInput) (*Result, error) {
	if in.NewPassword == "" || in.NewPassword != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	red, err := s.tokens.Verify(ctx, raw, token.PurposeOrgAdmin)
	if err != nil {
		return nil, err
	}
	if red.Claims.Email != in.Email {
		return nil, token.ErrInvalidToken
	}
	if err := s.matchProfile(ctx, red.Claims); err != nil {
		return nil, err
	}
	status, err := s.identity.ConfirmOrgAdminAccount(ctx, red.Claims.Subject, in.OldPassword, in.NewPassword)
	if err != nil {
		return nil, err
	}
	if status != identity.ConfirmationConfirmed {
		s.warnUpstreamRejection("org-admin", red.Claims.Subject)
		return nil, ErrIdentityRejected
	}
	if err := s.tokens.MarkUsed(ctx, red.Record.ID); err != nil {
		return nil, err
	}
	s.log.WithField("account_id", red.Claims.Subject).Info("organization admin confirmed")
	return &Result{Message: "admin account confirmed"}, nil
}

// warnUpstreamRejection leaves a trail for manual reconciliation: local state
// may have advanced while the identity account remains unconfirmed.
func (s *Service) warnUpstreamRejection(flow, accountID string) {
	s.log.WithFields(logrus.Fields{
		"flow":       flow,
		"account_id": accountID,
	}).Warn("identity service rejected the confirmation; token left pending for retry")
}
