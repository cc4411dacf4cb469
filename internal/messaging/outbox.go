package messaging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/theodoreromeos/account-management/internal/obs"
)

// Outbox persists messages in the outbox_message table.
type Outbox struct {
	db *sql.DB
}

var _ Publisher = (*Outbox)(nil)

// NewOutbox creates an Outbox backed by db.
func NewOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db}
}

func (o *Outbox) PublishEmail(ctx context.Context, msg SendEmail) error {
	return o.enqueue(ctx, TopicSendEmail, msg)
}

func (o *Outbox) PublishCredentialsRollback(ctx context.Context, msg CredentialsRollback) error {
	return o.enqueue(ctx, TopicCredentialsRollback, msg)
}

func (o *Outbox) enqueue(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("outbox: encode %s payload: %w", topic, err)
	}
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO outbox_message (event_id, topic, payload, created_at)
		VALUES ($1, $2, $3, now())
	`, uuid.NewString(), topic, data)
	if err != nil {
		return fmt.Errorf("outbox: enqueue %s: %w", topic, err)
	}
	obs.OutboxEnqueuedTotal.WithLabelValues(topic).Inc()
	return nil
}
