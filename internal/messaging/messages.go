// Package messaging provides the asynchronous notification channel. Messages
// are written to a transactional outbox table and dispatched by a background
// relay, giving at-least-once delivery without a broker connection on the
// request path.
package messaging

import "context"

// Topics routed through the outbox.
const (
	TopicSendEmail           = "notifications.email"
	TopicCredentialsRollback = "identity.credentials.rollback"
)

// SendEmail asks the notification worker to deliver a message.
type SendEmail struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// CredentialsRollback asks the identity service to remove credentials that
// were created by a registration flow that later failed.
type CredentialsRollback struct {
	AccountID string `json:"accountId"`
}

// Publisher enqueues messages for asynchronous delivery.
type Publisher interface {
	PublishEmail(ctx context.Context, msg SendEmail) error
	PublishCredentialsRollback(ctx context.Context, msg CredentialsRollback) error
}
