package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/theodoreromeos/account-management/internal/obs"
)

func TestPublishEmailEnqueues(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	payload, _ := json.Marshal(SendEmail{
		Recipients: []string{"a@b.com"},
		Subject:    "Verify your account",
		Body:       "http://localhost/confirmation/simple-user?token=x",
	})
	mock.ExpectExec(`INSERT INTO outbox_message`).
		WithArgs(sqlmock.AnyArg(), TopicSendEmail, payload).
		WillReturnResult(sqlmock.NewResult(1, 1))

	o := NewOutbox(db)
	if err := o.PublishEmail(context.Background(), SendEmail{
		Recipients: []string{"a@b.com"},
		Subject:    "Verify your account",
		Body:       "http://localhost/confirmation/simple-user?token=x",
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRelayDispatchesAndMarks(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, topic, payload`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic", "payload"}).
			AddRow(int64(1), TopicCredentialsRollback, []byte(`{"accountId":"acc-9"}`)))
	mock.ExpectExec(`UPDATE outbox_message SET dispatched_at`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var got []string
	sender := SenderFunc(func(_ context.Context, topic string, payload []byte) error {
		got = append(got, topic+":"+string(payload))
		return nil
	})

	r := NewRelay(db, sender, obs.NewTestLogger())
	if err := r.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(got) != 1 || got[0] != TopicCredentialsRollback+`:{"accountId":"acc-9"}` {
		t.Fatalf("unexpected dispatches: %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRelayRetriesOnSenderFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, topic, payload`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic", "payload"}).
			AddRow(int64(2), TopicSendEmail, []byte(`{}`)))
	mock.ExpectExec(`UPDATE outbox_message SET attempts`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sender := SenderFunc(func(context.Context, string, []byte) error {
		return errors.New("smtp down")
	})

	r := NewRelay(db, sender, obs.NewTestLogger())
	if err := r.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
