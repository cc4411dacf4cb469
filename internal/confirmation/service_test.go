package confirmation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/theodoreromeos/account-management/internal/account"
	"github.com/theodoreromeos/account-management/internal/identity"
	"github.com/theodoreromeos/account-management/internal/messaging"
	"github.com/theodoreromeos/account-management/internal/obs"
	"github.com/theodoreromeos/account-management/internal/token"
)

type memRequests struct {
	rows map[int64]*account.RegistrationRequest
	next int64
}

func (m *memRequests) Create(_ context.Context, r *account.RegistrationRequest) error {
	m.next++
	r.ID = m.next
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memRequests) FindByUserEmail(_ context.Context, email string) (*account.RegistrationRequest, error) {
	for _, r := range m.rows {
		if r.UserEmail == email {
			cp := *r
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *memRequests) Advance(_ context.Context, id int64, from, to account.RequestStatus) error {
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return account.ErrInvalidState
	}
	r.Status = to
	return nil
}

func (m *memRequests) Delete(_ context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

type memProfiles struct {
	rows map[string]*account.Profile
}

func (m *memProfiles) Create(_ context.Context, p *account.Profile) error {
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memProfiles) Find(_ context.Context, id string) (*account.Profile, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) FindByEmail(_ context.Context, email string) (*account.Profile, error) {
	for _, p := range m.rows {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *memProfiles) ExistsByEmailAndMobile(_ context.Context, email, mobile string) (bool, error) {
	for _, p := range m.rows {
		if p.Email == email && p.MobileNumber == mobile {
			return true, nil
		}
	}
	return false, nil
}

func (m *memProfiles) Update(_ context.Context, p *account.Profile) error {
	if _, ok := m.rows[p.ID]; !ok {
		return account.ErrNotFound
	}
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memProfiles) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

// memStore backs only the stores the confirmation flows touch.
type memStore struct {
	profiles *memProfiles
	requests *memRequests
}

func (m *memStore) Profiles() account.ProfileStore           { return m.profiles }
func (m *memStore) Organizations() account.OrganizationStore { return nil }
func (m *memStore) Processes() account.ProcessStore          { return nil }
func (m *memStore) Requests() account.RequestStore           { return m.requests }

type fakeIdentity struct {
	confirmStatus identity.ConfirmationStatus
	confirmErr    error
	admins        []identity.AdminContact
	confirms      []string
}

func (f *fakeIdentity) CreateSimpleCredentials(context.Context, identity.NewSimpleCredentials) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeIdentity) CreateOrganizationCredentials(context.Context, identity.NewOrganizationCredentials, identity.Role) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeIdentity) ConfirmAccount(_ context.Context, accountID string) (identity.ConfirmationStatus, error) {
	if f.confirmErr != nil {
		return identity.ConfirmationFailed, f.confirmErr
	}
	f.confirms = append(f.confirms, accountID)
	return f.confirmStatus, nil
}

func (f *fakeIdentity) ManageAccount(context.Context, identity.ManageAccount) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeIdentity) OrgAdminContacts(context.Context, string) ([]identity.AdminContact, error) {
	return f.admins, nil
}

func (f *fakeIdentity) ConfirmOrgAdminAccount(_ context.Context, accountID, _, _ string) (identity.ConfirmationStatus, error) {
	if f.confirmErr != nil {
		return identity.ConfirmationFailed, f.confirmErr
	}
	f.confirms = append(f.confirms, accountID)
	return f.confirmStatus, nil
}

type fakePublisher struct {
	emails []messaging.SendEmail
}

func (f *fakePublisher) PublishEmail(_ context.Context, msg messaging.SendEmail) error {
	f.emails = append(f.emails, msg)
	return nil
}

func (f *fakePublisher) PublishCredentialsRollback(context.Context, messaging.CredentialsRollback) error {
	return nil
}

type memTokenStore struct {
	rows map[int64]*token.VerificationToken
	next int64
}

func (m *memTokenStore) Create(_ context.Context, t *token.VerificationToken) error {
	m.next++
	t.ID = m.next
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memTokenStore) Find(_ context.Context, id int64) (*token.VerificationToken, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, token.ErrInvalidToken
	}
	cp := *t
	return &cp, nil
}

func (m *memTokenStore) MarkUsed(_ context.Context, id int64) error {
	t, ok := m.rows[id]
	if !ok || t.Status != token.StatusPending {
		return token.ErrInvalidToken
	}
	t.Status = token.StatusUsed
	return nil
}

type fixture struct {
	profiles *memProfiles
	requests *memRequests
	identity *fakeIdentity
	pub      *fakePublisher
	tokens   *token.Service
	tstore   *memTokenStore
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tstore := &memTokenStore{rows: map[int64]*token.VerificationToken{}}
	tokens, err := token.NewService(tstore, []byte("test-secret"))
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	profiles := &memProfiles{rows: map[string]*account.Profile{}}
	reqs := &memRequests{rows: map[int64]*account.RegistrationRequest{}}
	id := &fakeIdentity{confirmStatus: identity.ConfirmationConfirmed}
	pub := &fakePublisher{}
	svc := NewService(&memStore{profiles: profiles, requests: reqs}, tokens, id, pub, "http://localhost:8080/confirmation", obs.NewTestLogger())
	return &fixture{profiles: profiles, requests: reqs, identity: id, pub: pub, tokens: tokens, tstore: tstore, svc: svc}
}

// issue signs a token for subject acc-1 and seeds the matching profile row,
// which every redemption flow cross-checks against the claims.
func (f *fixture) issue(t *testing.T, purpose token.Purpose, email, org string) string {
	t.Helper()
	f.profiles.rows["acc-1"] = &account.Profile{ID: "acc-1", Email: email}
	signed, err := f.tokens.Issue(context.Background(), token.IssueParams{
		SubjectID:    "acc-1",
		Email:        email,
		Organization: org,
		Purpose:      purpose,
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return signed
}

func TestConfirmSimpleUser(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, token.PurposeSimpleUser, "jane@example.com", "")

	if _, err := f.svc.ConfirmSimpleUser(context.Background(), raw); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(f.identity.confirms) != 1 || f.identity.confirms[0] != "acc-1" {
		t.Fatalf("identity confirms = %v", f.identity.confirms)
	}
	if len(f.pub.emails) != 1 || f.pub.emails[0].Recipients[0] != "jane@example.com" {
		t.Fatalf("emails = %+v, want one welcome mail to jane@example.com", f.pub.emails)
	}
	if _, err := f.svc.ConfirmSimpleUser(context.Background(), raw); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("second redemption err = %v, want ErrInvalidToken", err)
	}
}

func TestConfirmSimpleUserStaleProfile(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, token.PurposeSimpleUser, "jane@example.com", "")
	// The profile email changed after the link was mailed.
	f.profiles.rows["acc-1"].Email = "jane.doe@example.com"

	if _, err := f.svc.ConfirmSimpleUser(context.Background(), raw); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if len(f.identity.confirms) != 0 {
		t.Fatal("identity must not be called for a stale token")
	}
}

func TestConfirmSimpleUserUpstreamRejectionKeepsTokenPending(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, token.PurposeSimpleUser, "jane@example.com", "")
	f.identity.confirmStatus = identity.ConfirmationFailed

	if _, err := f.svc.ConfirmSimpleUser(context.Background(), raw); !errors.Is(err, ErrIdentityRejected) {
		t.Fatalf("err = %v, want ErrIdentityRejected", err)
	}
	if f.tstore.rows[1].Status != token.StatusPending {
		t.Fatalf("token status = %s, want PENDING", f.tstore.rows[1].Status)
	}

	// Same link works once the upstream recovers.
	f.identity.confirmStatus = identity.ConfirmationConfirmed
	if _, err := f.svc.ConfirmSimpleUser(context.Background(), raw); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestConfirmSimpleUserWrongPurpose(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, token.PurposeOrgAdmin, "boss@corp.com", "REG-42")

	if _, err := f.svc.ConfirmSimpleUser(context.Background(), raw); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if len(f.identity.confirms) != 0 {
		t.Fatal("identity must not be called for a wrong-purpose token")
	}
}

func seedRequest(t *testing.T, f *fixture, status account.RequestStatus) *account.RegistrationRequest {
	t.Helper()
	req := &account.RegistrationRequest{
		UserEmail:          "emp@corp.com",
		RegistrationNumber: "REG-42",
		Status:             status,
	}
	if err := f.requests.Create(context.Background(), req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return req
}

func TestConfirmOrganizationUserByUser(t *testing.T) {
	f := newFixture(t)
	req := seedRequest(t, f, account.StatusPendingEmployee)
	f.identity.admins = []identity.AdminContact{
		{AccountID: "adm-1", Email: "boss@corp.com"},
		{AccountID: "adm-2", Email: "cto@corp.com"},
	}
	raw := f.issue(t, token.PurposeOrgUserEmployee, "emp@corp.com", "REG-42")

	if _, err := f.svc.ConfirmOrganizationUserByUser(context.Background(), raw); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := f.requests.rows[req.ID].Status; got != account.StatusPendingCompany {
		t.Fatalf("status = %s, want PENDING_COMPANY", got)
	}
	if len(f.pub.emails) != 1 {
		t.Fatalf("emails = %d, want 1", len(f.pub.emails))
	}
	mail := f.pub.emails[0]
	if len(mail.Recipients) != 2 || mail.Recipients[0] != "boss@corp.com" {
		t.Fatalf("recipients = %v", mail.Recipients)
	}
	if !strings.Contains(mail.Body, "/org-user/admin?token=") {
		t.Fatalf("unexpected body: %s", mail.Body)
	}
	if f.tstore.rows[1].Status != token.StatusUsed {
		t.Fatal("employee-stage token should be consumed")
	}
	if f.tstore.rows[2].Status != token.StatusPending {
		t.Fatal("company-stage token should be pending")
	}
}

func TestConfirmOrganizationUserByUserNoAdmins(t *testing.T) {
	f := newFixture(t)
	seedRequest(t, f, account.StatusPendingEmployee)
	raw := f.issue(t, token.PurposeOrgUserEmployee, "emp@corp.com", "REG-42")

	if _, err := f.svc.ConfirmOrganizationUserByUser(context.Background(), raw); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConfirmOrganizationUserByUserOrgMismatch(t *testing.T) {
	f := newFixture(t)
	seedRequest(t, f, account.StatusPendingEmployee)
	raw := f.issue(t, token.PurposeOrgUserEmployee, "emp@corp.com", "REG-OTHER")

	if _, err := f.svc.ConfirmOrganizationUserByUser(context.Background(), raw); !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestConfirmOrganizationUserByOrganization(t *testing.T) {
	f := newFixture(t)
	req := seedRequest(t, f, account.StatusPendingCompany)
	raw := f.issue(t, token.PurposeOrgUserCompany, "emp@corp.com", "REG-42")

	if _, err := f.svc.ConfirmOrganizationUserByOrganization(context.Background(), raw); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if got := f.requests.rows[req.ID].Status; got != account.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", got)
	}
	if len(f.identity.confirms) != 1 {
		t.Fatalf("identity confirms = %v", f.identity.confirms)
	}
}

func TestConfirmOrganizationUserByOrganizationOutOfOrder(t *testing.T) {
	f := newFixture(t)
	// Still at the employee stage; the company-stage transition must fail.
	seedRequest(t, f, account.StatusPendingEmployee)
	raw := f.issue(t, token.PurposeOrgUserCompany, "emp@corp.com", "REG-42")

	if _, err := f.svc.ConfirmOrganizationUserByOrganization(context.Background(), raw); !errors.Is(err, account.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
	if len(f.identity.confirms) != 0 {
		t.Fatal("identity must not be called when the transition is rejected")
	}
}

func TestConfirmOrganizationUserByOrganizationUpstreamRejection(t *testing.T) {
	f := newFixture(t)
	seedRequest(t, f, account.StatusPendingCompany)
	raw := f.issue(t, token.PurposeOrgUserCompany, "emp@corp.com", "REG-42")
	f.identity.confirmStatus = identity.ConfirmationFailed

	if _, err := f.svc.ConfirmOrganizationUserByOrganization(context.Background(), raw); !errors.Is(err, ErrIdentityRejected) {
		t.Fatalf("err = %v, want ErrIdentityRejected", err)
	}
	if f.tstore.rows[1].Status != token.StatusPending {
		t.Fatal("token must stay pending for a retry")
	}
}

func TestConfirmOrganizationAdmin(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, token.PurposeOrgAdmin, "boss@corp.com", "REG-42")

	res, err := f.svc.ConfirmOrganizationAdmin(context.Background(), raw, AdminConfirmInput{
		Email:           "boss@corp.com",
		OldPassword:     "placeholder",
		NewPassword:     "s3cret!",
		ConfirmPassword: "s3cret!",
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.Message == "" {
		t.Fatal("expected a result message")
	}
	if f.tstore.rows[1].Status != token.StatusUsed {
		t.Fatal("token should be consumed")
	}
}

func TestConfirmOrganizationAdminPasswordMismatch(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, token.PurposeOrgAdmin, "boss@corp.com", "REG-42")

	_, err := f.svc.ConfirmOrganizationAdmin(context.Background(), raw, AdminConfirmInput{
		Email:           "boss@corp.com",
		OldPassword:     "placeholder",
		NewPassword:     "one",
		ConfirmPassword: "two",
	})
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("err = %v, want ErrPasswordMismatch", err)
	}
	if f.tstore.rows[1].Status != token.StatusPending {
		t.Fatal("token must stay pending when the password check fails")
	}
}

func TestConfirmOrganizationAdminEmailMismatch(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, token.PurposeOrgAdmin, "boss@corp.com", "REG-42")

	_, err := f.svc.ConfirmOrganizationAdmin(context.Background(), raw, AdminConfirmInput{
		Email:           "other@corp.com",
		OldPassword:     "placeholder",
		NewPassword:     "s3cret!",
		ConfirmPassword: "s3cret!",
	})
	if !errors.Is(err, token.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
