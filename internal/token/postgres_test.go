package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rec := &VerificationToken{
		JTI:       "jti-1",
		SubjectID: "acct-1",
		Status:    StatusPending,
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	mock.ExpectQuery("insert into email_verification_token").
		WithArgs("jti-1", "acct-1", string(StatusPending), now, now.Add(24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	if err := NewPGStore(db).Create(context.Background(), rec); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 7 {
		t.Fatalf("expected returned id 7, got %d", rec.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreMarkUsedRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("update email_verification_token set status").
		WithArgs(int64(7), string(StatusUsed), string(StatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPGStore(db).MarkUsed(context.Background(), 7)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken when no row transitions, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
