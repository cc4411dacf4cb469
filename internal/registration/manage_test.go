package registration

import (
	"context"
	"testing"
	"time"

	"github.com/theodoreromeos/account-management/internal/account"
)

func TestManageProfileUpdatesExisting(t *testing.T) {
	f := newFixture(t)
	if err := f.store.Profiles().Create(context.Background(), &account.Profile{
		ID:           "acc-1",
		Email:        "old@example.com",
		MobileNumber: "555-0100",
		Name:         "Jane",
		Surname:      "Doe",
		BirthDate:    time.Date(1990, 4, 2, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	p, err := f.svc.ManageProfile(context.Background(), ManageProfileInput{
		OldEmail:     "old@example.com",
		NewEmail:     "new@example.com",
		MobileNumber: "555-0999",
	})
	if err != nil {
		t.Fatalf("manage: %v", err)
	}
	if p.ID != "acc-1" {
		t.Fatalf("id = %q, want acc-1", p.ID)
	}
	if p.Email != "new@example.com" || p.MobileNumber != "555-0999" {
		t.Fatalf("profile not updated: %+v", p)
	}
	if p.Name != "Jane" {
		t.Fatalf("untouched field changed: %+v", p)
	}
}

func TestManageProfileRecreatesMissing(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.ManageProfile(context.Background(), ManageProfileInput{
		OldEmail:     "ghost@example.com",
		NewEmail:     "new@example.com",
		MobileNumber: "555-0998",
		Name:         "Re",
		Surname:      "Created",
	})
	if err != nil {
		t.Fatalf("manage: %v", err)
	}
	if p.Email != "new@example.com" {
		t.Fatalf("email = %q", p.Email)
	}
	stored, err := f.store.Profiles().FindByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("recreated profile not stored: %v", err)
	}
	if stored.ID != p.ID {
		t.Fatalf("ids differ: %q vs %q", stored.ID, p.ID)
	}
}
