package domain

import "time"

// OutboxStatus — состояние сообщения transactional outbox.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// Имена полей outbox.
const (
	OutboxFieldStatus    = "status"
	OutboxFieldCreatedAt = "created_at"
	OutboxFieldEventType = "event_type"
)

// OutboxMessage хранит данные для публикуемого события.
// Сохраняется в той же единице работы, что и изменения заказа.
type OutboxMessage struct {
	ID            int64
	EventID       string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (m *OutboxMessage) GetID() int64    { return m.ID }
func (m *OutboxMessage) SetID(id int64) { m.ID = id }

func (m *OutboxMessage) Field(name string) (any, bool) {
	switch name {
	case FieldID:
		return m.ID, true
	case OutboxFieldStatus:
		return string(m.Status), true
	case OutboxFieldCreatedAt:
		return m.CreatedAt, true
	case OutboxFieldEventType:
		return m.EventType, true
	default:
		return nil, false
	}
}

func (m *OutboxMessage) Clone() Entity {
	c := *m
	c.Payload = append([]byte(nil), m.Payload...)
	return &c
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
