package registration

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/identity"
	"github.com/theodoreromeos/account-management/internal/ids"
	"github.com/theodoreromeos/account-management/internal/messaging"
	"github.com/theodoreromeos/account-management/internal/saga"
	"github.com/theodoreromeos/account-management/internal/token"
)

// Decide resolves a pending organization application. Rejection only flips
// the decision column. Approval provisions the organization and its admin
// account as one saga; a failure midway removes the organization again and
// deletes the application so it can be resubmitted.
func (s *Service) Decide(ctx context.Context, processID int64, approve bool) error {
	proc, err := s.store.Processes().Find(ctx, processID)
	if err != nil {
		return fmt.Errorf("find registration process: %w", err)
	}

	if !approve {
		if err := s.store.Processes().UpdateDecision(ctx, processID, account.DecisionRejected); err != nil {
			return fmt.Errorf("reject registration process: %w", err)
		}
		s.log.WithFields(logrus.Fields{
			"process_id": processID,
			"org":        proc.RegistrationNumber,
		}).Info("organization application rejected")
		return nil
	}

	password, err := s.passwords.Generate()
	if err != nil {
		return err
	}

	orgID := ids.New()
	var adminAccountID string
	run := saga.New("approve-organization", s.log).
		Step("mark-approved",
			func(ctx context.Context) error {
				return s.store.Processes().UpdateDecision(ctx, processID, account.DecisionApproved)
			},
			func(ctx context.Context) error {
				return s.store.Processes().Delete(ctx, processID)
			}).
		Step("create-organization",
			func(ctx context.Context) error {
				return s.store.Organizations().Create(ctx, &account.Organization{
					ID:                 orgID,
					Name:               proc.OrganizationName,
					RegistrationNumber: proc.RegistrationNumber,
					Email:              proc.AdminEmail,
					Country:            proc.Country,
					EmergencyPhone:     proc.AdminPhone,
				})
			},
			func(ctx context.Context) error {
				return s.store.Organizations().Delete(ctx, orgID)
			}).
		Step("create-admin-credentials",
			func(ctx context.Context) error {
				id, err := s.identity.CreateOrganizationCredentials(ctx, identity.NewOrganizationCredentials{
					Email:              proc.AdminEmail,
					MobileNumber:       proc.AdminPhone,
					Password:           password,
					RegistrationNumber: proc.RegistrationNumber,
				}, identity.RoleOrganizationAdmin)
				if err != nil {
					return err
				}
				adminAccountID = id
				return nil
			},
			func(ctx context.Context) error {
				return s.publisher.PublishCredentialsRollback(ctx, messaging.CredentialsRollback{AccountID: adminAccountID})
			}).
		Step("create-admin-profile",
			func(ctx context.Context) error {
				return s.store.Profiles().Create(ctx, &account.Profile{
					ID:           adminAccountID,
					Email:        proc.AdminEmail,
					MobileNumber: proc.AdminPhone,
					Name:         proc.AdminName,
					Surname:      proc.AdminSurname,
					OrgID:        orgID,
				})
			},
			nil).
		Step("send-admin-verification-email",
			func(ctx context.Context) error {
				return s.sendVerificationEmail(ctx, adminAccountID, proc.AdminEmail,
					proc.RegistrationNumber, token.PurposeOrgAdmin, "org-admin")
			},
			nil)

	if err := run.Run(ctx); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"process_id": processID,
		"org":        proc.RegistrationNumber,
		"org_id":     orgID,
	}).Info("organization application approved")
	return nil
}

// SearchProcesses pages through registration applications, newest first.
func (s *Service) SearchProcesses(ctx context.Context, filter account.ProcessFilter, page, pageSize int) (*account.ProcessPage, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	return s.store.Processes().Search(ctx, filter, page, pageSize)
}
