package expense

import (
	"context"
	"time"

	"expensetracker/models"

	"github.com/shopspring/decimal"
)

const (
	EventCreated      = "transaction.created"
	EventUpdated      = "transaction.updated"
	EventDeleted      = "transaction.deleted"
	EventAccessDenied = "transaction.access_denied"
)

// Event is published after every mutation and every denied access.
type Event struct {
	Type          string           `json:"type"`
	UserID        uint             `json:"userId"`
	TransactionID uint             `json:"transactionId"`
	OwnerID       uint             `json:"ownerId,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Category      models.Category  `json:"category,omitempty"`
	At            time.Time        `json:"at"`
}

// Publisher delivers events to interested parties. Failures are logged by the
// service and never fail the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

func transactionEvent(typ string, t *models.Transaction, at time.Time) Event {
	amt := t.Amount
	return Event{
		Type:          typ,
		UserID:        t.UserID,
		TransactionID: t.ID,
		Amount:        &amt,
		Category:      t.Category,
		At:            at,
	}
}
