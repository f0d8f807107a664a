package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneydrain/internal/core"
)

type EventType string

const (
	TransactionCreated  EventType = "transaction.created"
	TransactionDeleted  EventType = "transaction.deleted"
	TransactionsCleared EventType = "transactions.cleared"
	CategoryCreated     EventType = "category.created"
	CategoryDeleted     EventType = "category.deleted"
)

func (t EventType) Valid() bool {
	switch t {
	case TransactionCreated, TransactionDeleted, TransactionsCleared, CategoryCreated, CategoryDeleted:
		return true
	}
	return false
}

// Event notifies consumers that the ledger changed. It is a notification,
// not a replication log: consumers re-read the store for current state.
type Event struct {
	ID          string            `json:"id"`
	Type        EventType         `json:"type"`
	EntityID    int64             `json:"entityId,omitempty"`
	Count       int64             `json:"count,omitempty"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Category    *core.Category    `json:"category,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewEvent(t EventType, entityID int64) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

func TransactionCreatedEvent(tx core.Transaction) *Event {
	ev := NewEvent(TransactionCreated, tx.ID)
	ev.Transaction = &tx
	return ev
}

func CategoryCreatedEvent(c core.Category) *Event {
	ev := NewEvent(CategoryCreated, c.ID)
	ev.Category = &c
	return ev
}

func ClearedEvent(count int64) *Event {
	ev := NewEvent(TransactionsCleared, 0)
	ev.Count = count
	return ev
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", ev.Type)
	}
	if _, err := uuid.Parse(ev.ID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", ev.ID, err)
	}
	return &ev, nil
}
