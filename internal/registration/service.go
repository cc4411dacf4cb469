// Package registration implements account intake: individual sign-up,
// organization employee sign-up, organization applications and the admin
// decisions that approve or reject them. Multi-system writes run as sagas so
// a failure half-way leaves no orphaned credentials or rows behind.
package registration

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/identity"
	"github.com/theodoreromeos/account-management/internal/messaging"
	"github.com/theodoreromeos/account-management/internal/saga"
	"github.com/theodoreromeos/account-management/internal/token"
)

// Receipt is the uniform acknowledgment returned by every registration
// operation. Duplicate and unknown-organization submissions return the same
// receipt as genuine ones so responses leak nothing about existing accounts.
type Receipt struct {
	Message string `json:"message"`
}

const receiptMessage = "registration received, check your email for further instructions"

// SimpleUserInput is an individual's sign-up submission.
type SimpleUserInput struct {
	Email        string
	MobileNumber string
	Name         string
	Surname      string
	BirthDate    time.Time
}

// OrgUserInput is an employee's sign-up submission, tied to an organization
// by its registration number.
type OrgUserInput struct {
	Email              string
	MobileNumber       string
	Name               string
	Surname            string
	BirthDate          time.Time
	RegistrationNumber string
}

// OrganizationApplication is a new organization's request to join, including
// the contact details of its prospective admin.
type OrganizationApplication struct {
	OrganizationName   string
	RegistrationNumber string
	Country            string
	AdminEmail         string
	AdminPhone         string
	AdminName          string
	AdminSurname       string
}

// Service orchestrates registration flows across the relational store, the
// identity service, the token service and the notification outbox.
type Service struct {
	store     account.Store
	tokens    *token.Service
	identity  identity.Client
	publisher messaging.Publisher
	passwords *PasswordGenerator
	log       *logrus.Logger
	// confirmBaseURL is the public prefix of confirmation links sent by email.
	confirmBaseURL string
}

// NewService wires a registration Service.
func NewService(
	store account.Store,
	tokens *token.Service,
	idClient identity.Client,
	publisher messaging.Publisher,
	passwords *PasswordGenerator,
	confirmBaseURL string,
	log *logrus.Logger,
) *Service {
	return &Service{
		store:          store,
		tokens:         tokens,
		identity:       idClient,
		publisher:      publisher,
		passwords:      passwords,
		confirmBaseURL: confirmBaseURL,
		log:            log,
	}
}

// RegisterSimpleUser provisions an individual account: identity credentials,
// a local profile, then a verification email. A submission matching an
// existing (email, mobile) pair is acknowledged without any side effects.
func (s *Service) RegisterSimpleUser(ctx context.Context, in SimpleUserInput) (*Receipt, error) {
	exists, err := s.store.Profiles().ExistsByEmailAndMobile(ctx, in.Email, in.MobileNumber)
	if err != nil {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}
	if exists {
		s.log.WithField("email", in.Email).Info("duplicate simple user registration ignored")
		return &Receipt{Message: receiptMessage}, nil
	}

	password, err := s.passwords.Generate()
	if err != nil {
		return nil, err
	}

	var accountID string
	run := saga.New("register-simple-user", s.log).
		Step("create-credentials",
			func(ctx context.Context) error {
				id, err := s.identity.CreateSimpleCredentials(ctx, identity.NewSimpleCredentials{
					Email:        in.Email,
					MobileNumber: in.MobileNumber,
					Password:     password,
				})
				if err != nil {
					return err
				}
				accountID = id
				return nil
			},
			func(ctx context.Context) error {
				return s.publisher.PublishCredentialsRollback(ctx, messaging.CredentialsRollback{AccountID: accountID})
			}).
		Step("create-profile",
			func(ctx context.Context) error {
				return s.store.Profiles().Create(ctx, &account.Profile{
					ID:           accountID,
					Email:        in.Email,
					MobileNumber: in.MobileNumber,
					Name:         in.Name,
					Surname:      in.Surname,
					BirthDate:    in.BirthDate,
				})
			},
			func(ctx context.Context) error {
				return s.store.Profiles().Delete(ctx, accountID)
			}).
		Step("send-verification-email",
			func(ctx context.Context) error {
				return s.sendVerificationEmail(ctx, accountID, in.Email, "", token.PurposeSimpleUser, "simple-user")
			},
			nil)

	if err := run.Run(ctx); err != nil {
		return nil, err
	}
	return &Receipt{Message: receiptMessage}, nil
}

// RegisterOrganizationUser provisions an employee account under an existing
// organization and opens the two-party approval trail. Submissions for an
// unknown organization or a duplicate (email, mobile) pair are acknowledged
// without side effects.
func (s *Service) RegisterOrganizationUser(ctx context.Context, in OrgUserInput) (*Receipt, error) {
	org, err := s.store.Organizations().FindByRegistrationNumber(ctx, in.RegistrationNumber)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			s.log.WithField("org", in.RegistrationNumber).Info("registration for unknown organization ignored")
			return &Receipt{Message: receiptMessage}, nil
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	exists, err := s.store.Profiles().ExistsByEmailAndMobile(ctx, in.Email, in.MobileNumber)
	if err != nil {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}
	if exists {
		s.log.WithField("email", in.Email).Info("duplicate organization user registration ignored")
		return &Receipt{Message: receiptMessage}, nil
	}

	password, err := s.passwords.Generate()
	if err != nil {
		return nil, err
	}

	var (
		accountID string
		requestID int64
	)
	run := saga.New("register-org-user", s.log).
		Step("create-credentials",
			func(ctx context.Context) error {
				id, err := s.identity.CreateOrganizationCredentials(ctx, identity.NewOrganizationCredentials{
					Email:              in.Email,
					MobileNumber:       in.MobileNumber,
					Password:           password,
					RegistrationNumber: in.RegistrationNumber,
				}, identity.RoleSimpleUser)
				if err != nil {
					return err
				}
				accountID = id
				return nil
			},
			func(ctx context.Context) error {
				return s.publisher.PublishCredentialsRollback(ctx, messaging.CredentialsRollback{AccountID: accountID})
			}).
		Step("create-profile",
			func(ctx context.Context) error {
				return s.store.Profiles().Create(ctx, &account.Profile{
					ID:           accountID,
					Email:        in.Email,
					MobileNumber: in.MobileNumber,
					Name:         in.Name,
					Surname:      in.Surname,
					BirthDate:    in.BirthDate,
					OrgID:        org.ID,
				})
			},
			func(ctx context.Context) error {
				return s.store.Profiles().Delete(ctx, accountID)
			}).
		Step("open-registration-request",
			func(ctx context.Context) error {
				req := &account.RegistrationRequest{
					UserEmail:          in.Email,
					RegistrationNumber: in.RegistrationNumber,
					Status:             account.StatusPendingEmployee,
				}
				if err := s.store.Requests().Create(ctx, req); err != nil {
					return err
				}
				requestID = req.ID
				return nil
			},
			func(ctx context.Context) error {
				return s.store.Requests().Delete(ctx, requestID)
			}).
		Step("send-verification-email",
			func(ctx context.Context) error {
				return s.sendVerificationEmail(ctx, accountID, in.Email, in.RegistrationNumber,
					token.PurposeOrgUserEmployee, "org-user")
			},
			nil)

	if err := run.Run(ctx); err != nil {
		return nil, err
	}
	return &Receipt{Message: receiptMessage}, nil
}

// RegisterOrganization records a new organization's application for later
// review. Nothing is provisioned until an operator approves it.
func (s *Service) RegisterOrganization(ctx context.Context, in OrganizationApplication) (*Receipt, error) {
	exists, err := s.store.Organizations().ExistsByRegistrationNumber(ctx, in.RegistrationNumber)
	if err != nil {
		return nil, fmt.Errorf("check existing organization: %w", err)
	}
	if exists {
		s.log.WithField("org", in.RegistrationNumber).Info("application for already registered organization ignored")
		return &Receipt{Message: receiptMessage}, nil
	}

	proc := &account.RegistrationProcess{
		OrganizationName:   in.OrganizationName,
		RegistrationNumber: in.RegistrationNumber,
		Country:            in.Country,
		AdminEmail:         in.AdminEmail,
		AdminPhone:         in.AdminPhone,
		AdminName:          in.AdminName,
		AdminSurname:       in.AdminSurname,
		Decision:           account.DecisionPending,
	}
	if err := s.store.Processes().Create(ctx, proc); err != nil {
		return nil, fmt.Errorf("create registration process: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"process_id": proc.ID,
		"org":        in.RegistrationNumber,
	}).Info("organization application recorded")
	return &Receipt{Message: receiptMessage}, nil
}

// sendVerificationEmail mints a verification token for the subject and
// enqueues the confirmation link email on the outbox.
func (s *Service) sendVerificationEmail(ctx context.Context, subjectID, email, orgRegNumber string, purpose token.Purpose, linkPath string) error {
	signed, err := s.tokens.Issue(ctx, token.IssueParams{
		SubjectID:    subjectID,
		Email:        email,
		Organization: orgRegNumber,
		Purpose:      purpose,
	})
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/%s?token=%s", s.confirmBaseURL, linkPath, url.QueryEscape(signed))
	return s.publisher.PublishEmail(ctx, messaging.SendEmail{
		Recipients: []string{email},
		Subject:    "Confirm your account",
		Body:       "Follow this link to confirm your account: " + link,
	})
}
