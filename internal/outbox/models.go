// Package outbox records domain events next to the writes that caused them
// and relays them to Kafka from a background worker.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one pending or relayed event.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// Message is what the relay hands to a Publisher.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
