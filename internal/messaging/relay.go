package messaging

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theodoreromeos/account-management/internal/obs"
)

// Sender delivers a single outbox message to its destination. Returning an
// error leaves the message undelivered; the relay retries it on a later tick.
type Sender interface {
	Send(ctx context.Context, topic string, payload []byte) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, topic string, payload []byte) error

func (f SenderFunc) Send(ctx context.Context, topic string, payload []byte) error {
	return f(ctx, topic, payload)
}

// LogSender logs message contents instead of delivering them. It stands in
// for a real mail or broker integration in development deployments.
func LogSender(log *logrus.Logger) Sender {
	return SenderFunc(func(_ context.Context, topic string, payload []byte) error {
		log.WithFields(logrus.Fields{
			"topic":   topic,
			"payload": string(payload),
		}).Info("outbox message dispatched")
		return nil
	})
}

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
	maxAttempts         = 10
)

// Relay polls the outbox table and hands pending messages to a Sender.
type Relay struct {
	db       *sql.DB
	sender   Sender
	log      *logrus.Logger
	interval time.Duration
	batch    int
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithPollInterval sets how often the relay scans for pending messages.
func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize sets how many messages one tick may dispatch.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

// NewRelay creates a relay dispatching through sender.
func NewRelay(db *sql.DB, sender Sender, log *logrus.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		db:       db,
		sender:   sender,
		log:      log,
		interval: defaultPollInterval,
		batch:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is done. It is meant to be started as a goroutine from
// main; errors on individual messages are logged and retried, never fatal.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.log.WithError(err).Warn("outbox relay tick failed")
			}
		}
	}
}

type pendingMessage struct {
	id      int64
	topic   string
	payload []byte
}

// Tick dispatches one batch of pending messages. Exported so tests and
// one-shot tools can drive the relay without the ticker loop.
func (r *Relay) Tick(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, topic, payload
		FROM outbox_message
		WHERE dispatched_at IS NULL AND attempts < $1
		ORDER BY id
		LIMIT $2
	`, maxAttempts, r.batch)
	if err != nil {
		return err
	}
	var batch []pendingMessage
	for rows.Next() {
		var m pendingMessage
		if err := rows.Scan(&m.id, &m.topic, &m.payload); err != nil {
			rows.Close()
			return err
		}
		batch = append(batch, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range batch {
		if err := r.sender.Send(ctx, m.topic, m.payload); err != nil {
			obs.OutboxDispatchedTotal.WithLabelValues(m.topic, "error").Inc()
			r.log.WithError(err).WithFields(logrus.Fields{
				"message_id": m.id,
				"topic":      m.topic,
			}).Warn("outbox dispatch failed")
			if _, uerr := r.db.ExecContext(ctx, `
				UPDATE outbox_message SET attempts = attempts + 1 WHERE id = $1
			`, m.id); uerr != nil {
				r.log.WithError(uerr).Error("outbox attempt update failed")
			}
			continue
		}
		if _, err := r.db.ExecContext(ctx, `
			UPDATE outbox_message SET dispatched_at = now(), attempts = attempts + 1 WHERE id = $1
		`, m.id); err != nil {
			r.log.WithError(err).Error("outbox dispatched update failed")
			continue
		}
		obs.OutboxDispatchedTotal.WithLabelValues(m.topic, "ok").Inc()
	}
	return nil
}
