// Package events broadcasts order lifecycle changes once they are committed.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated       = "order.created"
	OrderUpdated       = "order.updated"
	OrderUpdatePending = "order.updatePending"
	OrderUpdateClose   = "order.updateClose"
	OrderTicketPrinted = "order.ticketPrinted"
	OrderDeleted       = "order.deleted"
	TableUpdated       = "table.updated"
)

const (
	contentTypeJSON     = "application/json"
	defaultPublishLimit = 5 * time.Second
)

type Bus interface {
	Publish(ctx context.Context, name string, payload any) error
}

type Envelope struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

func NewEnvelope(name string, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Name:       name,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
